package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check registry server health",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		resp, err := client.http.Get(client.baseURL + "/healthz")
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server unhealthy: %d: %s", resp.StatusCode, string(body))
		}

		fmt.Printf("Server %s is healthy\n", serverURL)
		return nil
	},
}
