package main

import (
	"os"

	"github.com/signaldesk/signaldesk/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
