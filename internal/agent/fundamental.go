package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

// FundamentalAnalyst evaluates valuation and financial health from the
// quote-summary metric set. A missing market cap is treated as "no data
// for this symbol" and short-circuits without a model call.
type FundamentalAnalyst struct {
	cfg Config
}

func NewFundamentalAnalyst(cfg Config) *FundamentalAnalyst {
	return &FundamentalAnalyst{cfg: cfg}
}

func (n *FundamentalAnalyst) Name() string { return prompts.AgentFundamental }

func (n *FundamentalAnalyst) Writes() []graph.Field {
	return []graph.Field{graph.FieldFundamentalAnalysis}
}

func (n *FundamentalAnalyst) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	var d graph.StateDelta

	if missingTicker(state.Ticker) {
		d.SetField(graph.FieldFundamentalAnalysis, "Error: No ticker provided.")
		return d, nil
	}

	metrics, err := n.cfg.Market.Metrics(ctx, state.Ticker)
	if err != nil || metrics.MarketCap == nil {
		if err != nil {
			n.cfg.Logger.Warn().Err(err).Str("ticker", state.Ticker).Msg("metrics fetch failed")
		}
		d.SetField(graph.FieldFundamentalAnalysis,
			fmt.Sprintf("Could not retrieve fundamental metrics for %s.", state.Ticker))
		return d, nil
	}

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	out, err := n.cfg.chat(ctx, tempFundamental,
		prompts.FundamentalSystemPrompt, prompts.FundamentalTask(state.Ticker, string(data)))
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	d.SetField(graph.FieldFundamentalAnalysis, out)
	d.AddMessage(n.Name(), "analyzed fundamentals for "+state.Ticker)
	return d, nil
}
