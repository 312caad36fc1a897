package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Fields string
	Filter string
	Sort   string
	Skip   int
	Limit  int
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List the records of a collection",
		Long: `List records with physical and computed fields.

Filters are JSON condition trees and may reference computed fields, which
are rewritten into conditions on columns before reaching storage.`,
		Example: `  # Full names of every user
  agent list users --fields id,fullname

  # Users named Jane, sorted by full name
  agent list users --fields fullname --filter '{"field":"fullname","operator":"Contains","value":"Jane"}' --sort fullname

  # Discounted amounts of the first two orders
  agent list orders --fields id,amount,amount_with_discount --sort -amount --limit 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Fields, "fields", "", "Comma-separated field paths (default: every field)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Condition tree as JSON")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Comma-separated sort clauses, prefix with - for descending")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "Number of records to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of records (0 for all)")

	return cmd
}

func runList(cmd *cobra.Command, collection string, opts *ListOptions) error {
	filter, err := opts.paginatedFilter()
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fields := splitList(opts.Fields)
	if len(fields) == 0 {
		c, err := cmdCtx.Engine.Registry().MustCollection(collection)
		if err != nil {
			return err
		}
		for _, f := range c.Fields() {
			fields = append(fields, f.Name)
		}
	}

	records, err := cmdCtx.Engine.List(cmd.Context(), collection, filter, fields)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	return renderRecords(w, outputMode(cmdCtx.Cfg.OutputFormat, w), fields, records)
}

func (o *ListOptions) paginatedFilter() (core.PaginatedFilter, error) {
	var filter core.PaginatedFilter

	tree, err := core.UnmarshalConditionTree([]byte(o.Filter))
	if err != nil {
		return filter, fmt.Errorf("invalid --filter: %w", err)
	}
	filter.ConditionTree = tree

	if filter.Sort, err = core.ParseSort(o.Sort); err != nil {
		return filter, fmt.Errorf("invalid --sort: %w", err)
	}

	if o.Skip < 0 || o.Limit < 0 {
		return filter, errors.New("--skip and --limit must not be negative")
	}
	if o.Skip > 0 || o.Limit > 0 {
		filter.Page = &core.Page{Skip: o.Skip, Limit: o.Limit}
	}
	return filter, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
