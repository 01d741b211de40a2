package agent

import (
	"context"
	"strings"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
	"github.com/tradeswarm/tradeswarm/pkg/utils"
)

// Supervisor resolves the target ticker from the user query. It is the
// single entry node of the graph; every analyst depends on its output.
type Supervisor struct {
	cfg Config
}

func NewSupervisor(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

func (n *Supervisor) Name() string { return prompts.AgentSupervisor }

func (n *Supervisor) Writes() []graph.Field {
	return []graph.Field{graph.FieldTicker}
}

// Run extracts the ticker. When the caller already supplied one, the
// model is bypassed entirely and the ticker passes through unchanged.
func (n *Supervisor) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	var d graph.StateDelta

	if state.Ticker != "" {
		d.SetField(graph.FieldTicker, state.Ticker)
		return d, nil
	}

	out, err := n.cfg.chat(ctx, tempSupervisor, prompts.SupervisorSystemPrompt, state.UserQuery)
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	ticker := strings.TrimSpace(out)
	if ticker != "" && ticker != TickerUnknown {
		ticker = utils.EnsureSuffix(utils.NormalizeTicker(ticker))
	}

	n.cfg.Logger.Debug().Str("node", n.Name()).Str("ticker", ticker).Msg("ticker resolved")

	d.SetField(graph.FieldTicker, ticker)
	d.AddMessage(n.Name(), "resolved ticker "+ticker)
	return d, nil
}
