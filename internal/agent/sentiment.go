package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
	"github.com/tradeswarm/tradeswarm/pkg/utils"
)

// SentimentAnalyst gauges market mood from recent news headlines. The
// search term drops the exchange suffix because news indexes know the
// company by its bare symbol.
type SentimentAnalyst struct {
	cfg Config
}

func NewSentimentAnalyst(cfg Config) *SentimentAnalyst {
	return &SentimentAnalyst{cfg: cfg}
}

func (n *SentimentAnalyst) Name() string { return prompts.AgentSentiment }

func (n *SentimentAnalyst) Writes() []graph.Field {
	return []graph.Field{graph.FieldSentimentAnalysis}
}

func (n *SentimentAnalyst) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	var d graph.StateDelta

	if missingTicker(state.Ticker) {
		d.SetField(graph.FieldSentimentAnalysis, "Error: No ticker provided.")
		return d, nil
	}

	query := utils.BaseSymbol(state.Ticker) + " share news Indian stock market"
	items, err := n.cfg.News.Search(ctx, query, n.cfg.newsLimit())
	if err != nil || len(items) == 0 {
		if err != nil {
			n.cfg.Logger.Warn().Err(err).Str("ticker", state.Ticker).Msg("news search failed")
		}
		d.SetField(graph.FieldSentimentAnalysis,
			fmt.Sprintf("Could not find recent news for %s.", state.Ticker))
		return d, nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	out, err := n.cfg.chat(ctx, tempSentiment,
		prompts.SentimentSystemPrompt, prompts.SentimentTask(state.Ticker, string(data)))
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	d.SetField(graph.FieldSentimentAnalysis, out)
	d.AddMessage(n.Name(), fmt.Sprintf("scored %d headlines for %s", len(items), state.Ticker))
	return d, nil
}
