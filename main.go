package main

import "github.com/sergev/i2ctap/cmd"

func main() {
	cmd.Execute()
}
