package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/analysis/technical"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

// indicatorTailRows caps how many dated rows reach the model.
const indicatorTailRows = 10

// TechnicalAnalyst fetches three months of daily candles, computes the
// standard indicator set, and asks the model for a price-action read.
type TechnicalAnalyst struct {
	cfg Config
}

func NewTechnicalAnalyst(cfg Config) *TechnicalAnalyst {
	return &TechnicalAnalyst{cfg: cfg}
}

func (n *TechnicalAnalyst) Name() string { return prompts.AgentTechnical }

func (n *TechnicalAnalyst) Writes() []graph.Field {
	return []graph.Field{graph.FieldTechnicalAnalysis}
}

func (n *TechnicalAnalyst) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	var d graph.StateDelta

	if missingTicker(state.Ticker) {
		d.SetField(graph.FieldTechnicalAnalysis, "Error: No ticker provided for technical analysis.")
		return d, nil
	}

	candles, err := n.cfg.Market.History(ctx, state.Ticker, n.cfg.historyDays())
	if err != nil || len(candles) == 0 {
		if err != nil {
			n.cfg.Logger.Warn().Err(err).Str("ticker", state.Ticker).Msg("history fetch failed")
		}
		d.SetField(graph.FieldTechnicalAnalysis,
			fmt.Sprintf("Could not retrieve historical data for %s.", state.Ticker))
		return d, nil
	}

	rows := technical.Tail(technical.BuildTable(candles), indicatorTailRows)
	data, err := json.Marshal(rows)
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	out, err := n.cfg.chat(ctx, tempTechnical,
		prompts.TechnicalSystemPrompt, prompts.TechnicalTask(state.Ticker, string(data)))
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	d.SetField(graph.FieldTechnicalAnalysis, out)
	d.AddMessage(n.Name(), fmt.Sprintf("analyzed %d candles for %s", len(candles), state.Ticker))
	return d, nil
}
