package main

import "typedkv/cmd"

func main() {
	cmd.Execute()
}
