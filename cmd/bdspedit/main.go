package main

import "bdsp-batch-editor/internal/cli"

func main() {
	cli.Execute()
}
