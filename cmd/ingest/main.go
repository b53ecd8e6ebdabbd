package main

import "github.com/markdave123-py/docvault/internal/cli"

func main() {
	cli.Execute()
}
