package main

import "github.com/fairside/validator/internal/cli"

func main() {
	cli.Execute()
}
