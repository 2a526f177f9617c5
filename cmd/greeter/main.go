package main

import "face-greeter-go/internal/cli"

func main() {
	cli.Execute()
}
