// Package agent implements the nodes of the TradeSwarm analysis graph:
// a supervisor that resolves the target ticker, four parallel analysts
// (technical, fundamental, sentiment, risk), and a judge that
// synthesizes their reports into a final recommendation.
package agent

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/datasource"
	"github.com/tradeswarm/tradeswarm/internal/llm"
)

// Node names, re-exported so callers consuming run events can switch on
// them without importing the prompts package.
const (
	AgentSupervisor  = prompts.AgentSupervisor
	AgentTechnical   = prompts.AgentTechnical
	AgentFundamental = prompts.AgentFundamental
	AgentSentiment   = prompts.AgentSentiment
	AgentRisk        = prompts.AgentRisk
	AgentJudge       = prompts.AgentJudge
)

// TickerUnknown is the sentinel the supervisor emits when no ticker can
// be extracted from the user query. Analysts treat it like a missing
// ticker and skip all external calls.
const TickerUnknown = "UNKNOWN"

// Role temperatures. The supervisor runs at zero for deterministic
// string extraction; the judge gets the most headroom for synthesis.
const (
	tempSupervisor  = 0.0
	tempTechnical   = 0.1
	tempFundamental = 0.1
	tempSentiment   = 0.2
	tempRisk        = 0.1
	tempJudge       = 0.3
)

// Config carries the shared dependencies handed to every node.
type Config struct {
	Provider llm.Provider
	Market   datasource.MarketData
	News     datasource.NewsSearch

	Model     string
	MaxTokens int

	// HistoryDays bounds the technical analyst's candle fetch.
	// Zero means the default of 90 calendar days (~3 months).
	HistoryDays int

	// NewsLimit caps the sentiment analyst's headline fetch; it is
	// clamped to 5 to keep the prompt bounded.
	NewsLimit int

	Logger zerolog.Logger
}

func (c Config) historyDays() int {
	if c.HistoryDays <= 0 {
		return 90
	}
	return c.HistoryDays
}

func (c Config) newsLimit() int {
	if c.NewsLimit <= 0 || c.NewsLimit > 5 {
		return 5
	}
	return c.NewsLimit
}

// chat performs a single system+user exchange at the given temperature.
func (c Config) chat(ctx context.Context, temperature float64, system, user string) (string, error) {
	resp, err := c.Provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(system),
		llm.UserMessage(user),
	}, &llm.ChatOptions{
		Model:       c.Model,
		Temperature: temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// missingTicker reports whether a node should refuse to run because the
// supervisor produced nothing usable.
func missingTicker(ticker string) bool {
	return ticker == "" || ticker == TickerUnknown
}

// floatOrNA renders an optional metric for a plain-text prompt block.
func floatOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func wrapNodeErr(node string, err error) error {
	return fmt.Errorf("%s: %w", node, err)
}
