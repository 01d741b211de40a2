package agent

import (
	"context"
	"fmt"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
)

// Judge synthesizes the four analyst reports into a final decision. It
// runs only after every analyst has completed; the graph's join barrier
// guarantees that. The model's output is stored as-is, including the
// trailing FINAL RECOMMENDATION line, without validation.
type Judge struct {
	cfg Config
}

func NewJudge(cfg Config) *Judge {
	return &Judge{cfg: cfg}
}

func (n *Judge) Name() string { return prompts.AgentJudge }

func (n *Judge) Writes() []graph.Field {
	return []graph.Field{graph.FieldFinalRecommendation}
}

func (n *Judge) Run(ctx context.Context, state graph.TradingState) (graph.StateDelta, error) {
	ticker := state.Ticker
	if ticker == "" {
		ticker = "Unknown"
	}

	report := fmt.Sprintf(`--- STOCK: %s ---

[TECHNICAL ANALYSIS]
%s

[FUNDAMENTAL ANALYSIS]
%s

[SENTIMENT ANALYSIS]
%s

[RISK ANALYSIS]
%s
`, ticker, state.TechnicalAnalysis, state.FundamentalAnalysis,
		state.SentimentAnalysis, state.RiskAnalysis)

	out, err := n.cfg.chat(ctx, tempJudge, prompts.JudgeSystemPrompt, prompts.JudgeTask(report))
	if err != nil {
		return graph.StateDelta{}, wrapNodeErr(n.Name(), err)
	}

	var d graph.StateDelta
	d.SetField(graph.FieldFinalRecommendation, out)
	d.AddMessage(n.Name(), "issued final recommendation for "+ticker)
	return d, nil
}
