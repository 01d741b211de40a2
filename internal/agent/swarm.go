package agent

import (
	"context"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

// BuildGraph wires the full analysis graph: supervisor fans out to the
// four analysts, which join at the judge.
func BuildGraph(cfg Config) (*graph.CompiledGraph, error) {
	g := graph.New().
		AddNode(NewSupervisor(cfg)).
		AddNode(NewTechnicalAnalyst(cfg)).
		AddNode(NewFundamentalAnalyst(cfg)).
		AddNode(NewSentimentAnalyst(cfg)).
		AddNode(NewRiskAnalyst(cfg)).
		AddNode(NewJudge(cfg))

	g.AddEdge(graph.Start, prompts.AgentSupervisor)
	for _, analyst := range []string{
		prompts.AgentTechnical,
		prompts.AgentFundamental,
		prompts.AgentSentiment,
		prompts.AgentRisk,
	} {
		g.AddEdge(prompts.AgentSupervisor, analyst)
		g.AddEdge(analyst, prompts.AgentJudge)
	}
	g.AddEdge(prompts.AgentJudge, graph.End)

	return g.Compile()
}

// Swarm is the compiled graph plus its runner, ready to serve queries.
type Swarm struct {
	compiled *graph.CompiledGraph
	runner   *graph.Runner
}

func NewSwarm(cfg Config) (*Swarm, error) {
	compiled, err := BuildGraph(cfg)
	if err != nil {
		return nil, err
	}
	return &Swarm{
		compiled: compiled,
		runner:   graph.NewRunner(compiled, cfg.Logger),
	}, nil
}

// Nodes lists the graph's node names, sorted.
func (s *Swarm) Nodes() []string {
	return s.compiled.Nodes()
}

// Analyze runs the graph to completion for a natural-language query.
func (s *Swarm) Analyze(ctx context.Context, query string) (graph.TradingState, error) {
	return s.runner.Invoke(ctx, graph.TradingState{UserQuery: query})
}

// AnalyzeTicker runs the graph for a known ticker, skipping extraction.
func (s *Swarm) AnalyzeTicker(ctx context.Context, ticker string) (graph.TradingState, error) {
	return s.runner.Invoke(ctx, graph.TradingState{UserQuery: ticker, Ticker: ticker})
}

// Stream runs the graph and yields one event per completed node in
// finish order. The channel closes when the run ends; a failed run's
// last event carries the error.
func (s *Swarm) Stream(ctx context.Context, query string) <-chan graph.Event {
	return s.runner.Stream(ctx, graph.TradingState{UserQuery: query})
}
