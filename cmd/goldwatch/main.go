package main

import (
	"github.com/joho/godotenv"

	"goldwatch/internal/cli"
)

func main() {
	// Optional; environment variables win over config file values.
	_ = godotenv.Load()

	cli.Execute()
}
