package main

import "github.com/nextlevelbuilder/careerclaw/cmd"

func main() {
	cmd.Execute()
}
