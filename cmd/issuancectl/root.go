package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "issuancectl",
	Short: "CLI for the issuance registry server",
	Long: `issuancectl is an administrative CLI for the student-government issuance registry.

It talks to the registry's HTTP API: listing and inspecting issuances, driving
status transitions, managing departments, and reading the audit trail.

Mutating commands require an admin bearer token (--token or ISSUANCE_TOKEN).`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Registry server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token for authenticated endpoints (default: from ISSUANCE_TOKEN env)")

	rootCmd.AddCommand(issuancesCmd)
	rootCmd.AddCommand(departmentsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedToken returns the effective bearer token.
// Priority: --token flag > ISSUANCE_TOKEN env var.
func resolvedToken() string {
	if authToken != "" {
		return authToken
	}
	return os.Getenv("ISSUANCE_TOKEN")
}
