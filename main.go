package main

import "github.com/pixelfin/pixelfin/cmd"

func main() {
	cmd.Execute()
}
