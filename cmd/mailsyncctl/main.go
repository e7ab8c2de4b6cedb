package main

import "github.com/matheus3301/mailsync/internal/cli"

func main() {
	cli.Execute()
}
