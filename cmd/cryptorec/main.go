package main

import (
	"github.com/mchmarny/cryptorec/pkg/cli"
)

func main() {
	cli.Execute()
}
