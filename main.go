package main

import "github.com/ondrejvana/rollcall/cmd"

func main() {
	cmd.Execute()
}
