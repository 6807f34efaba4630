package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"llm-trade-verifier/internal/cli"
	"llm-trade-verifier/internal/logging"
)

func main() {
	_ = godotenv.Load()

	// Console only until the config, with its log file settings, is loaded.
	logger := logging.NewLoggerWithConfig(logging.LogConfig{Level: "info", Console: true})
	root := cli.NewRootCmd(nil, logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
