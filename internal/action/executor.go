package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Config configures an Executor.
type Config struct {
	Logger *slog.Logger
	// OnTransition, when set, is called on every state change.
	OnTransition func(Transition)
}

// Executor runs action definitions.
type Executor struct {
	logger       *slog.Logger
	onTransition func(Transition)
}

// NewExecutor creates an executor.
func NewExecutor(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{logger: logger, onTransition: cfg.OnTransition}
}

// Invocation is one request to run an action.
type Invocation struct {
	Selection  Selection
	DataSource core.DataSource
	Values     map[string]any
}

// run tracks the state of one execution.
type run struct {
	id     string
	action string
	logger *slog.Logger
	notify func(Transition)

	mu       sync.Mutex
	state    State
	writes   int
	writeErr error
}

func (r *run) transition(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(next)
}

func (r *run) transitionLocked(next State) error {
	if !r.state.CanTransition(next) {
		return &InvalidTransitionError{From: r.state, To: next}
	}
	t := Transition{InvocationID: r.id, Action: r.action, From: r.state, To: next}
	r.state = next
	r.logger.Debug("action state", slog.String("from", t.From.String()), slog.String("to", t.To.String()))
	if r.notify != nil {
		r.notify(t)
	}
	return nil
}

// beginWrite admits a write or refuses it after a failure.
func (r *run) beginWrite() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		r.logger.Warn("write refused", slog.String("cause", r.writeErr.Error()))
		return &WriteRefusedError{Cause: r.writeErr}
	}
	if r.state.Terminal() {
		return &InvalidTransitionError{From: r.state, To: Mutating}
	}
	if r.state == Resolving {
		if err := r.transitionLocked(Mutating); err != nil {
			return err
		}
	}
	r.writes++
	return nil
}

func (r *run) endWrite(collection string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr == nil {
		r.writeErr = fmt.Errorf("write on %s failed: %w", collection, err)
	}
}

func (r *run) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeErr
}

// finish moves to the terminal state matching res.
func (r *run) finish(res Result) Result {
	res.InvocationID = r.id
	next := Succeeded
	if res.Kind == KindError {
		next = Failed
	}
	if err := r.transition(next); err != nil {
		r.logger.Error("action state", slog.String("error", err.Error()))
	}
	return res
}

// Execute runs def for the invocation and returns its single outcome.
// A panic inside the action is recovered into an Error result.
func (e *Executor) Execute(ctx context.Context, def *Definition, inv Invocation) (res Result) {
	r := &run{
		id:     uuid.NewString(),
		action: def.Name,
		notify: e.onTransition,
		state:  Pending,
	}
	r.logger = e.logger.With(slog.String("action", def.Name), slog.String("invocation_id", r.id))
	var rb ResultBuilder

	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("action panicked", slog.Any("panic", p))
			res = r.finish(rb.Error(fmt.Sprintf("action %q failed: %v", def.Name, p)))
		}
		r.logger.Info("action executed",
			slog.String("result", string(res.Kind)),
			slog.Int("writes", r.writes))
	}()

	if err := def.checkSelection(inv.Selection.IDs); err != nil {
		return r.finish(rb.Error(err.Error()))
	}
	if err := def.CheckValues(inv.Values); err != nil {
		return r.finish(rb.Error(err.Error()))
	}

	if err := r.transition(Resolving); err != nil {
		return r.finish(rb.Error(err.Error()))
	}
	var records []core.Record
	if len(def.Fields) > 0 {
		var err error
		if records, err = inv.Selection.Read(ctx, def.Fields); err != nil {
			return r.finish(rb.Error(fmt.Sprintf("failed to read selected records: %v", err)))
		}
	}

	selection := inv.Selection
	selection.Collection = guardedCollection{CollectionAccess: inv.Selection.Collection, run: r}
	ac := &Context{
		InvocationID: r.id,
		Collection:   selection.Collection,
		DataSource:   guardedSource{DataSource: inv.DataSource, run: r},
		FormValues:   inv.Values,
		Logger:       r.logger,
		selection:    selection,
		records:      records,
	}

	out, err := def.Execute(ctx, ac, rb)
	switch {
	case err != nil:
		return r.finish(rb.Error(err.Error()))
	case out.Kind == "":
		return r.finish(rb.Error(fmt.Sprintf("action %q returned no result", def.Name)))
	}
	if failure := r.failure(); failure != nil && out.Kind != KindError {
		return r.finish(rb.Error(failure.Error()))
	}
	return r.finish(out)
}
