package main

import (
	"os"

	"github.com/rgourley/styleluxe/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
