package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

const auditLogsBase = "/api/admin/audit-logs"

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var (
	auditActor  string
	auditAction string
	auditPage   int
	auditLimit  int
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		q := url.Values{}
		if auditActor != "" {
			q.Set("performedBy", auditActor)
		}
		if auditAction != "" {
			q.Set("action", auditAction)
		}
		if auditPage > 0 {
			q.Set("page", strconv.Itoa(auditPage))
		}
		if auditLimit > 0 {
			q.Set("limit", strconv.Itoa(auditLimit))
		}

		path := auditLogsBase
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		data, err := client.getData(path)
		if err != nil {
			return fmt.Errorf("failed to list audit logs: %w", err)
		}

		if outputFmt != "table" {
			return printOutput(data)
		}

		page, _ := data.(map[string]any)
		items, _ := page["items"].([]any)
		printAuditRows(items)
		fmt.Printf("\nShowing %d of %s entries\n", len(items), field(page, "total"))
		return nil
	},
}

var auditRecentLimit int

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent audit activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := auditLogsBase + "/recent"
		if auditRecentLimit > 0 {
			path += "?limit=" + strconv.Itoa(auditRecentLimit)
		}
		data, err := client.getData(path)
		if err != nil {
			return fmt.Errorf("failed to get recent activity: %w", err)
		}

		if outputFmt != "table" {
			return printOutput(data)
		}
		items, _ := data.([]any)
		printAuditRows(items)
		return nil
	},
}

var auditEntityCmd = &cobra.Command{
	Use:   "entity <type> <id>",
	Short: "Show the audit trail for a single entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := fmt.Sprintf("%s/entity/%s/%s", auditLogsBase, args[0], args[1])
		data, err := client.getData(path)
		if err != nil {
			return fmt.Errorf("failed to get entity audit trail: %w", err)
		}

		if outputFmt != "table" {
			return printOutput(data)
		}
		items, _ := data.([]any)
		printAuditRows(items)
		return nil
	},
}

func printAuditRows(items []any) {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, []string{
			field(m, "timestamp"),
			field(m, "performedBy"),
			field(m, "action"),
			field(m, "entityType"),
			field(m, "entityId"),
			truncate(field(m, "description"), 50),
		})
	}
	printTable([]string{"timestamp", "actor", "action", "entity", "entity id", "description"}, rows)
}

func init() {
	auditListCmd.Flags().StringVar(&auditActor, "actor", "", "Filter by performing actor")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action")
	auditListCmd.Flags().IntVar(&auditPage, "page", 0, "Page number")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 0, "Page size")
	auditRecentCmd.Flags().IntVar(&auditRecentLimit, "limit", 0, "Number of entries")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditRecentCmd)
	auditCmd.AddCommand(auditEntityCmd)
}
