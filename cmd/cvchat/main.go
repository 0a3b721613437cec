// Package main provides the entry point for the cvchat command-chat service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cvchat",
	Short: "CV command chat service",
	Long:  "cvchat resolves free-text CV-authoring commands against an intent analysis service, executes the resolved backend calls, and normalizes the results for rendering.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
