package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

// RiskAnalyst rates investment risk from beta, the 52-week range, and
// leverage. Unlike the fundamental analyst it degrades instead of
// bailing: with no beta available the model still gets asked, with a
// placeholder in the data block.
type RiskAnalyst struct {
	cfg Config
}

func NewRiskAnalyst(cfg Config) *RiskAnalyst {
	return &RiskAnalyst{cfg: cfg}
}

func (n *RiskAnalyst) Name() string { return prompts.AgentRisk }

func (n *RiskAnalyst) Writes() []graph.Field {
	return []graph.Field{graph.FieldRiskAnalysis}
}

func (n *RiskAnalyst) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	var d graph.StateDelta

	if missingTicker(state.Ticker) {
		d.SetField(graph.FieldRiskAnalysis, "Error: No ticker provided.")
		return d, nil
	}

	metrics, err := n.cfg.Market.Metrics(ctx, state.Ticker)

	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\n", state.Ticker)
	if err != nil || metrics.Beta == nil {
		if err != nil {
			n.cfg.Logger.Warn().Err(err).Str("ticker", state.Ticker).Msg("metrics fetch failed")
		}
		b.WriteString("Beta: Data Unavailable\n")
	} else {
		fmt.Fprintf(&b, "Beta: %s\n", floatOrNA(metrics.Beta))
		fmt.Fprintf(&b, "52-Week High: %s\n", floatOrNA(metrics.FiftyTwoWeekHigh))
		fmt.Fprintf(&b, "52-Week Low: %s\n", floatOrNA(metrics.FiftyTwoWeekLow))
		fmt.Fprintf(&b, "Debt to Equity: %s\n", floatOrNA(metrics.DebtToEquity))
	}

	out, err := n.cfg.chat(ctx, tempRisk,
		prompts.RiskSystemPrompt, prompts.RiskTask(state.Ticker, b.String()))
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	d.SetField(graph.FieldRiskAnalysis, out)
	d.AddMessage(n.Name(), "assessed risk for "+state.Ticker)
	return d, nil
}
