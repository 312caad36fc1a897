package customizations

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func customizeTickets(cb *registry.CollectionBuilder) {
	fields := []string{"id", "subject", "is_resolved"}
	cb.AddAction("Mark ticket(s) as resolved", action.Definition{
		Scope:   action.Bulk,
		Fields:  fields,
		Execute: setResolved(true, "Ticket(s) marked as resolved!", "resolved"),
	}).
		AddAction("Re-open ticket(s)", action.Definition{
			Scope:   action.Bulk,
			Fields:  fields,
			Execute: setResolved(false, "Ticket(s) reopened!", "not resolved"),
		})
}

// setResolved updates the selected tickets that are not yet in the target
// state and lists the others in the result.
func setResolved(target bool, message, state string) action.ExecuteFunc {
	return func(ctx context.Context, ac *action.Context, rb action.ResultBuilder) (action.Result, error) {
		var pending []any
		var already strings.Builder
		for _, r := range ac.Records() {
			if resolved, _ := r["is_resolved"].(bool); resolved == target {
				fmt.Fprintf(&already, `<p>Ticket "%s" is already %s.</p>`, html.EscapeString(text(r["subject"])), state)
				continue
			}
			pending = append(pending, r["id"])
		}

		if len(pending) > 0 {
			err := ac.Collection.Update(ctx, core.Leaf("id", core.OpIn, pending), core.Record{"is_resolved": target})
			if err != nil {
				return rb.Error(fmt.Sprintf("Failed to mark ticket(s) as resolved %s.", err)), nil
			}
		}
		var opts []action.SuccessOption
		if already.Len() > 0 {
			opts = append(opts, action.WithHTML(already.String()))
		}
		return rb.Success(message, opts...), nil
	}
}
