package main

import "github.com/wtmux/wtmux/internal/cli"

func main() {
	cli.Execute()
}
