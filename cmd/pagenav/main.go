package main

import "github.com/Alp4ka/pagenav/internal/cli"

func main() {
	cli.Execute()
}
