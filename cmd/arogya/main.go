package main

import "github.com/vbonduro/arogya/internal/cli"

func main() {
	cli.Execute()
}
