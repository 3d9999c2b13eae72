package main

import (
	"fmt"
	"strings"

	"github.com/minio/s3tables-go/pkg/s3tables"
	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tables", Short: "Iceberg Tables catalog operations"}
	cmd.AddCommand(newNamespaceCreateCmd())
	cmd.AddCommand(newNamespaceListCmd())
	cmd.AddCommand(newNamespaceDropCmd())
	cmd.AddCommand(newTableListCmd())
	cmd.AddCommand(newTableScanCmd())
	return cmd
}

func parseNamespace(s string) s3tables.Namespace {
	return s3tables.NewNamespace(strings.Split(s, ".")...)
}

func newNamespaceCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespace-create WAREHOUSE NAMESPACE",
		Short: "Create a namespace (dot-separated levels, e.g. accounting.ledgers)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newTablesClient(p)
			if err != nil {
				return err
			}
			return client.CreateNamespace(cmd.Context(), args[0], parseNamespace(args[1]), nil)
		},
	}
}

func newNamespaceListCmd() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "namespace-ls WAREHOUSE",
		Short: "List namespaces under a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newTablesClient(p)
			if err != nil {
				return err
			}
			var parentNS s3tables.Namespace
			if parent != "" {
				parentNS = parseNamespace(parent)
			}
			for ns, err := range client.ListNamespaces(cmd.Context(), args[0], parentNS) {
				if err != nil {
					return err
				}
				fmt.Println(ns.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "list only namespaces nested under this parent")
	return cmd
}

func newNamespaceDropCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "namespace-rm WAREHOUSE NAMESPACE",
		Short: "Drop a namespace; --purge cascades through its tables and views first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newTablesClient(p)
			if err != nil {
				return err
			}
			ns := parseNamespace(args[1])
			if purge {
				return client.DeleteAndPurgeNamespace(cmd.Context(), args[0], ns)
			}
			return client.DropNamespace(cmd.Context(), args[0], ns)
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "cascade-delete tables and views before dropping the namespace")
	return cmd
}

func newTableListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table-ls WAREHOUSE NAMESPACE",
		Short: "List tables in a namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newTablesClient(p)
			if err != nil {
				return err
			}
			for t, err := range client.ListTables(cmd.Context(), args[0], parseNamespace(args[1])) {
				if err != nil {
					return err
				}
				fmt.Println(t.Namespace.String() + "." + t.Name)
			}
			return nil
		},
	}
	return cmd
}

func newTableScanCmd() *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "scan WAREHOUSE NAMESPACE TABLE",
		Short: "Execute a table scan and stream the result rows to stdout",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newTablesClient(p)
			if err != nil {
				return err
			}
			req := s3tables.ScanRequest{OutputFormat: s3tables.OutputFormatJSONL}
			if limit > 0 {
				req.Limit = &limit
			}
			rows, err := client.ExecuteTableScan(cmd.Context(), args[0], parseNamespace(args[1]), args[2], req)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				fmt.Println(string(rows.Bytes()))
			}
			return rows.Err()
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 0, "maximum rows to return (0 = server default)")
	return cmd
}
