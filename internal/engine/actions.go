package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// UnknownActionError is returned for an action name not registered on a collection.
type UnknownActionError struct {
	Collection string
	Action     string
	Available  []string
}

func (e *UnknownActionError) Error() string {
	msg := fmt.Sprintf("unknown action %q on collection %s", e.Action, e.Collection)
	if len(e.Available) > 0 {
		msg += "\nAvailable actions: " + strings.Join(e.Available, ", ")
	}
	return msg
}

func (e *Engine) lookupAction(collection, name string) (*registry.Collection, *action.Definition, error) {
	c, err := e.registry.MustCollection(collection)
	if err != nil {
		return nil, nil, err
	}
	def, ok := c.Action(name)
	if !ok {
		return nil, nil, &UnknownActionError{Collection: collection, Action: name, Available: c.ActionNames()}
	}
	return c, def, nil
}

func (e *Engine) selection(c *registry.Collection, ids []any) (action.Selection, error) {
	keys, err := ParseIDs(c.Schema, ids)
	if err != nil {
		return action.Selection{}, err
	}
	return action.Selection{
		Collection: &collectionAccess{engine: e, name: c.Name},
		PrimaryKey: c.PrimaryKey(),
		IDs:        keys,
	}, nil
}

// ExecuteAction runs an action on the records with the given ids.
// Failures of the action itself are reported in the result; the error is
// only set when the action or collection does not exist or ids are malformed.
func (e *Engine) ExecuteAction(ctx context.Context, collection, name string, ids []any, values map[string]any) (action.Result, error) {
	c, def, err := e.lookupAction(collection, name)
	if err != nil {
		return action.Result{}, err
	}
	sel, err := e.selection(c, ids)
	if err != nil {
		return action.Result{}, err
	}
	if values == nil {
		values = map[string]any{}
	}
	return e.executor.Execute(ctx, def, action.Invocation{Selection: sel, DataSource: e, Values: values}), nil
}

// ActionForm returns the form of an action with defaults computed for the selection.
func (e *Engine) ActionForm(ctx context.Context, collection, name string, ids []any, values map[string]any) ([]action.FieldState, error) {
	c, def, err := e.lookupAction(collection, name)
	if err != nil {
		return nil, err
	}
	sel, err := e.selection(c, ids)
	if err != nil {
		return nil, err
	}
	return def.ResolveForm(ctx, &action.FormContext{Selection: sel, Values: values})
}

// ParseIDs converts ids received as text into the type of the primary key.
func ParseIDs(cs *core.CollectionSchema, ids []any) ([]any, error) {
	pk, _ := cs.Column(cs.PrimaryKey())
	out := make([]any, len(ids))
	for i, id := range ids {
		s, isString := id.(string)
		if !isString || pk.Type != core.TypeNumber {
			out[i] = id
			continue
		}
		n, err := core.ToInt64(s)
		if err != nil {
			return nil, &core.InvalidWriteValueError{Collection: cs.Name, Field: pk.Name, Value: id, Reason: "not a valid identifier"}
		}
		out[i] = n
	}
	return out, nil
}
