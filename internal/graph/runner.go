package graph

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Event is emitted after a node's delta has been merged. State is a
// snapshot of the merged state at that point; events arrive in node
// finish order, not graph order.
type Event struct {
	Node  string       `json:"node"`
	State TradingState `json:"state"`
	Err   error        `json:"-"`
}

// Runner executes a compiled graph. Fan-out is real concurrency: every
// node whose predecessors have all completed is launched immediately,
// and joins are explicit counting barriers on the remaining-predecessor
// count. Merges are serialized in the run loop, so nodes never see a
// half-applied state.
type Runner struct {
	graph *CompiledGraph
	log   zerolog.Logger
}

// NewRunner creates a runner for the compiled graph.
func NewRunner(cg *CompiledGraph, log zerolog.Logger) *Runner {
	return &Runner{graph: cg, log: log}
}

// Invoke runs the graph to completion and returns the final state. The
// first node error aborts the run; in-flight nodes are cancelled and
// their results discarded.
func (r *Runner) Invoke(ctx context.Context, initial TradingState) (TradingState, error) {
	final := initial.Clone()
	err := r.run(ctx, &final, nil)
	if err != nil {
		return TradingState{}, err
	}
	return final, nil
}

// Stream runs the graph and emits an Event after each node completes.
// On failure the last event carries the error. The returned channel is
// closed when the run finishes.
func (r *Runner) Stream(ctx context.Context, initial TradingState) <-chan Event {
	events := make(chan Event, len(r.graph.nodes)+1)
	go func() {
		defer close(events)
		state := initial.Clone()
		if err := r.run(ctx, &state, events); err != nil {
			events <- Event{Err: err}
		}
	}()
	return events
}

type nodeResult struct {
	node  string
	delta StateDelta
	err   error
}

func (r *Runner) run(ctx context.Context, state *TradingState, events chan<- Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	remaining := make(map[string]int, len(r.graph.indegree))
	for name, n := range r.graph.indegree {
		remaining[name] = n
	}

	// Buffered so a node finishing after an abort never blocks.
	completions := make(chan nodeResult, len(r.graph.nodes))
	running := 0

	launch := func(name string) {
		node := r.graph.nodes[name]
		snapshot := state.Clone()
		running++
		r.log.Debug().Str("node", name).Msg("node started")
		go func() {
			delta, err := node.Run(ctx, snapshot)
			completions <- nodeResult{node: name, delta: delta, err: err}
		}()
	}

	// Seed: Start's successors whose only predecessor is Start.
	for _, name := range r.graph.succ[Start] {
		if name == End {
			continue
		}
		remaining[name]--
		if remaining[name] == 0 {
			launch(name)
		}
	}

	for running > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-completions:
			running--
			if res.err != nil {
				cancel()
				return fmt.Errorf("node %s: %w", res.node, res.err)
			}
			if err := r.checkOwnership(res.node, res.delta); err != nil {
				cancel()
				return err
			}
			state.Apply(res.delta)
			r.log.Debug().Str("node", res.node).Msg("node completed")
			if events != nil {
				events <- Event{Node: res.node, State: state.Clone()}
			}
			for _, next := range r.graph.succ[res.node] {
				remaining[next]--
				if remaining[next] == 0 && next != End {
					launch(next)
				}
			}
		}
	}

	if remaining[End] != 0 {
		return fmt.Errorf("graph: run finished with %d unsatisfied edges into %s", remaining[End], End)
	}
	return nil
}

// checkOwnership rejects a delta writing a scalar field the node did
// not declare.
func (r *Runner) checkOwnership(node string, d StateDelta) error {
	for f := range d.Set {
		if owner, ok := r.graph.owner[f]; !ok || owner != node {
			return fmt.Errorf("graph: node %s wrote undeclared field %q", node, f)
		}
	}
	return nil
}
