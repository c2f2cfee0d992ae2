package main

import (
	"context"
	"os"

	"exdform/internal/app"
)

func main() {
	os.Exit(app.Run(context.Background(), os.Args[1:], app.Env{}))
}
