package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

const departmentsBase = "/api/admin/departments"

var departmentsCmd = &cobra.Command{
	Use:   "departments",
	Short: "Manage the department registry",
}

var departmentsActiveOnly bool

var departmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List departments",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := departmentsBase
		if departmentsActiveOnly {
			path += "?activeOnly=true"
		}
		data, err := client.getData(path)
		if err != nil {
			return fmt.Errorf("failed to list departments: %w", err)
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
				field(m, "id"),
				field(m, "name"),
				field(m, "code"),
				field(m, "head"),
				field(m, "isActive"),
			})
		}
		printTable([]string{"id", "name", "code", "head", "active"}, rows)
		return nil
	},
}

var (
	deptName string
	deptCode string
	deptDesc string
	deptHead string
)

var departmentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a department",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deptName == "" || deptCode == "" {
			return fmt.Errorf("--name and --code are required")
		}
		client := newClient()

		body := map[string]any{
			"name": deptName,
			"code": deptCode,
		}
		if deptDesc != "" {
			body["description"] = deptDesc
		}
		if deptHead != "" {
			body["head"] = deptHead
		}

		var result map[string]any
		if err := client.do(http.MethodPost, departmentsBase, body, &result); err != nil {
			return fmt.Errorf("failed to create department: %w", err)
		}
		if outputFmt == "table" {
			outputFmt = "yaml"
		}
		return printOutput(result)
	},
}

var departmentsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a department",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := fmt.Sprintf("%s/%s", departmentsBase, args[0])
		if err := client.do(http.MethodDelete, path, nil, nil); err != nil {
			return fmt.Errorf("failed to delete department: %w", err)
		}
		fmt.Printf("Department %s deleted\n", args[0])
		return nil
	},
}

func init() {
	departmentsListCmd.Flags().BoolVar(&departmentsActiveOnly, "active", false, "Only list active departments")
	departmentsCreateCmd.Flags().StringVar(&deptName, "name", "", "Department name (required)")
	departmentsCreateCmd.Flags().StringVar(&deptCode, "code", "", "Short department code (required)")
	departmentsCreateCmd.Flags().StringVar(&deptDesc, "description", "", "Description")
	departmentsCreateCmd.Flags().StringVar(&deptHead, "head", "", "Department head")

	departmentsCmd.AddCommand(departmentsListCmd)
	departmentsCmd.AddCommand(departmentsCreateCmd)
	departmentsCmd.AddCommand(departmentsDeleteCmd)
}
