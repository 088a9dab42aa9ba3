package main

import "github.com/nextlevelbuilder/opsrelay/cmd"

func main() {
	cmd.Execute()
}
