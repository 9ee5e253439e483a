// Package main is the entry point for the tender analysis CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mebel",
	Short: "Tender analysis assistant",
	Long:  `Analyzes tender documents, finds candidate suppliers through web search, scores opportunities and produces bid recommendations.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(bidCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(contractsCmd)
	rootCmd.AddCommand(serveCmd)
}
