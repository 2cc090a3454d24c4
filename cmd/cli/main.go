package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/humanist/internal/cli"
)

func main() {

	ctx := context.Background()
	app := cli.NewDefaultApp()

	os.Exit(app.Run(ctx, os.Args[1:]))

}
