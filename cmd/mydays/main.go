package main

import (
	"context"
	"os"

	"github.com/roach88/mydays/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
