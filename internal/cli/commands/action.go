package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
)

// ActionOptions holds options for the action command.
type ActionOptions struct {
	IDs    []string
	Values string
	Form   bool
}

// NewActionCommand creates the action command.
func NewActionCommand() *cobra.Command {
	opts := &ActionOptions{}

	cmd := &cobra.Command{
		Use:   "action <collection> <name>",
		Short: "Run an action on selected records",
		Long: `Run an action on the records identified by --ids.

Form values are passed as a JSON object keyed by field label. Use --form to
print the form with its defaults for the selection instead of running it.
The command fails when the action reports an error.`,
		Example: `  # Resolve two tickets
  agent action tickets "Mark ticket(s) as resolved" --ids 1,2

  # Apply a coupon to an order
  agent action orders "Apply a coupon" --ids 2 --values '{"Coupon": [3]}'

  # Show the form of an action
  agent action users "Change a plan" --ids 1 --form`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.IDs, "ids", nil, "Comma-separated primary keys of the selected records")
	cmd.Flags().StringVar(&opts.Values, "values", "", "Form values as a JSON object")
	cmd.Flags().BoolVar(&opts.Form, "form", false, "Print the form instead of running the action")

	return cmd
}

func runAction(cmd *cobra.Command, collection, name string, opts *ActionOptions) error {
	var values map[string]any
	if opts.Values != "" {
		if err := json.Unmarshal([]byte(opts.Values), &values); err != nil {
			return fmt.Errorf("invalid --values: %w", err)
		}
	}
	ids := make([]any, len(opts.IDs))
	for i, id := range opts.IDs {
		ids[i] = id
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w := cmd.OutOrStdout()
	mode := outputMode(cmdCtx.Cfg.OutputFormat, w)

	if opts.Form {
		form, err := cmdCtx.Engine.ActionForm(cmd.Context(), collection, name, ids, values)
		if err != nil {
			return err
		}
		return renderForm(w, mode, form)
	}

	res, err := cmdCtx.Engine.ExecuteAction(cmd.Context(), collection, name, ids, values)
	if err != nil {
		return err
	}
	if err := renderResult(w, mode, res); err != nil {
		return err
	}
	if res.Kind == action.KindError {
		return fmt.Errorf("action %q failed: %s", name, res.Message)
	}
	return nil
}
