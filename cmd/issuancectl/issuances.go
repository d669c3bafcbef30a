package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

const adminIssuancesBase = "/api/admin/issuances"

var issuancesCmd = &cobra.Command{
	Use:   "issuances",
	Short: "Manage issuances",
}

var (
	listStatus     string
	listType       string
	listDepartment string
	listSearch     string
	listPage       int
	listLimit      int
)

var issuancesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issuances",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		q := url.Values{}
		if listStatus != "" {
			q.Set("status", listStatus)
		}
		if listType != "" {
			q.Set("type", listType)
		}
		if listDepartment != "" {
			q.Set("department", listDepartment)
		}
		if listSearch != "" {
			q.Set("search", listSearch)
		}
		if listPage > 0 {
			q.Set("page", fmt.Sprintf("%d", listPage))
		}
		if listLimit > 0 {
			q.Set("limit", fmt.Sprintf("%d", listLimit))
		}

		path := adminIssuancesBase
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		data, err := client.getData(path)
		if err != nil {
			return fmt.Errorf("failed to list issuances: %w", err)
		}

		if outputFmt != "table" {
			return printOutput(data)
		}

		page, _ := data.(map[string]any)
		items, _ := page["items"].([]any)
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			rows = append(rows, []string{
				field(m, "id"),
				truncate(field(m, "title"), 40),
				field(m, "type"),
				field(m, "status"),
				field(m, "priority"),
				field(m, "department"),
			})
		}
		printTable([]string{"id", "title", "type", "status", "priority", "department"}, rows)
		fmt.Printf("\nShowing %d of %s (page %s)\n", len(rows), field(page, "total"), field(page, "page"))
		return nil
	},
}

var issuancesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get an issuance with its attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		data, err := client.getData(fmt.Sprintf("%s/%s", adminIssuancesBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get issuance: %w", err)
		}
		if outputFmt == "table" {
			outputFmt = "yaml"
		}
		return printOutput(data)
	},
}

var setStatusReason string

var issuancesSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Transition an issuance to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"status": args[1]}
		if setStatusReason != "" {
			body["reason"] = setStatusReason
		}

		var result map[string]any
		path := fmt.Sprintf("%s/%s/status", adminIssuancesBase, args[0])
		if err := client.do(http.MethodPatch, path, body, &result); err != nil {
			return fmt.Errorf("failed to set status: %w", err)
		}
		if outputFmt == "table" {
			outputFmt = "yaml"
		}
		return printOutput(result)
	},
}

var issuancesValidStatusesCmd = &cobra.Command{
	Use:   "valid-statuses <id>",
	Short: "Show the statuses an issuance may transition to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		data, err := client.getData(fmt.Sprintf("%s/%s/valid-statuses", adminIssuancesBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get valid statuses: %w", err)
		}
		if outputFmt == "table" {
			outputFmt = "yaml"
		}
		return printOutput(data)
	},
}

var issuancesHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show the status history of an issuance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		data, err := client.getData(fmt.Sprintf("%s/%s/status-history", adminIssuancesBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get status history: %w", err)
		}

		if outputFmt != "table" {
			return printOutput(data)
		}

		items, _ := data.([]any)
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			rows = append(rows, []string{
				field(m, "fromStatus"),
				field(m, "toStatus"),
				field(m, "changedBy"),
				field(m, "changedAt"),
				truncate(field(m, "reason"), 50),
			})
		}
		printTable([]string{"from", "to", "changed by", "changed at", "reason"}, rows)
		return nil
	},
}

var issuancesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete an issuance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		path := fmt.Sprintf("%s/%s", adminIssuancesBase, args[0])
		if err := client.do(http.MethodDelete, path, nil, &result); err != nil {
			return fmt.Errorf("failed to delete issuance: %w", err)
		}
		fmt.Printf("Issuance %s deleted\n", args[0])
		return nil
	},
}

var issuancesAssignCmd = &cobra.Command{
	Use:   "assign <id> <department>",
	Short: "Assign an issuance to a department (by id or name)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		path := fmt.Sprintf("%s/%s/department", adminIssuancesBase, args[0])
		if err := client.do(http.MethodPost, path, map[string]any{"department": args[1]}, &result); err != nil {
			return fmt.Errorf("failed to assign department: %w", err)
		}
		if outputFmt == "table" {
			outputFmt = "yaml"
		}
		return printOutput(result)
	},
}

func init() {
	issuancesListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	issuancesListCmd.Flags().StringVar(&listType, "type", "", "Filter by document type")
	issuancesListCmd.Flags().StringVar(&listDepartment, "department", "", "Filter by department")
	issuancesListCmd.Flags().StringVar(&listSearch, "search", "", "Keyword search over title, description and tags")
	issuancesListCmd.Flags().IntVar(&listPage, "page", 0, "Page number")
	issuancesListCmd.Flags().IntVar(&listLimit, "limit", 0, "Page size")
	issuancesSetStatusCmd.Flags().StringVar(&setStatusReason, "reason", "", "Reason recorded in the status history")

	issuancesCmd.AddCommand(issuancesListCmd)
	issuancesCmd.AddCommand(issuancesGetCmd)
	issuancesCmd.AddCommand(issuancesSetStatusCmd)
	issuancesCmd.AddCommand(issuancesValidStatusesCmd)
	issuancesCmd.AddCommand(issuancesHistoryCmd)
	issuancesCmd.AddCommand(issuancesDeleteCmd)
	issuancesCmd.AddCommand(issuancesAssignCmd)
}
