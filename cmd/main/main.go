package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/BartekS5/cinesync/internal/cli"
	"github.com/BartekS5/cinesync/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
