package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tradeswarm/tradeswarm/internal/agent/prompts"
	"github.com/tradeswarm/tradeswarm/internal/graph"
	"github.com/tradeswarm/tradeswarm/internal/llm"
	"github.com/tradeswarm/tradeswarm/pkg/models"
)

// ── Fakes ──

type chatCall struct {
	system string
	user   string
	opts   llm.ChatOptions
}

// mockProvider scripts Chat responses and records every call. It is
// goroutine-safe because analysts call it concurrently.
type mockProvider struct {
	mu       sync.Mutex
	calls    []chatCall
	chatFunc func(system, user string, opts *llm.ChatOptions) (string, error)
}

func (m *mockProvider) Name() string     { return "mock" }
func (m *mockProvider) Models() []string { return []string{"mock-model"} }

func (m *mockProvider) Ping(ctx context.Context) error { return nil }

func (m *mockProvider) Chat(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	var system, user string
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = msg.Content
		case llm.RoleUser:
			user = msg.Content
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, chatCall{system: system, user: user, opts: *opts})
	m.mu.Unlock()

	content := "ok"
	if m.chatFunc != nil {
		var err error
		content, err = m.chatFunc(system, user, opts)
		if err != nil {
			return nil, err
		}
	}
	return &llm.Response{Content: content, Provider: "mock"}, nil
}

func (m *mockProvider) ChatStream(ctx context.Context, messages []llm.Message, opts *llm.ChatOptions) (<-chan llm.StreamChunk, error) {
	return nil, errors.New("mock: streaming not supported")
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockProvider) callsFor(system string) []chatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chatCall
	for _, c := range m.calls {
		if c.system == system {
			out = append(out, c)
		}
	}
	return out
}

type fakeMarket struct {
	mu           sync.Mutex
	historyCalls int
	metricsCalls int

	candles    []models.OHLCV
	historyErr error
	metrics    models.FundamentalMetrics
	metricsErr error
}

func (f *fakeMarket) History(ctx context.Context, ticker string, days int) ([]models.OHLCV, error) {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.candles, nil
}

func (f *fakeMarket) Metrics(ctx context.Context, ticker string) (models.FundamentalMetrics, error) {
	f.mu.Lock()
	f.metricsCalls++
	f.mu.Unlock()
	if f.metricsErr != nil {
		return models.FundamentalMetrics{}, f.metricsErr
	}
	return f.metrics, nil
}

type fakeNews struct {
	mu        sync.Mutex
	calls     int
	lastQuery string
	lastLimit int

	articles []models.NewsArticle
	err      error
}

func (f *fakeNews) Search(ctx context.Context, query string, limit int) ([]models.NewsArticle, error) {
	f.mu.Lock()
	f.calls++
	f.lastQuery = query
	f.lastLimit = limit
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func fp(v float64) *float64 { return &v }

func makeCandles(n int) []models.OHLCV {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.OHLCV, n)
	for i := range candles {
		price := decimal.NewFromFloat(100 + float64(i))
		candles[i] = models.OHLCV{
			Date: base.AddDate(0, 0, i), Open: price, High: price,
			Low: price, Close: price, AdjClose: price, Volume: 1000,
		}
	}
	return candles
}

func fullMetrics() models.FundamentalMetrics {
	return models.FundamentalMetrics{
		Symbol:           "RELIANCE.NS",
		MarketCap:        fp(1.9e13),
		PERatio:          fp(27.4),
		Beta:             fp(0.52),
		FiftyTwoWeekHigh: fp(1608.8),
		FiftyTwoWeekLow:  fp(1114.85),
		DebtToEquity:     fp(36.5),
		Sector:           "Energy",
	}
}

func testConfig(p llm.Provider, market *fakeMarket, news *fakeNews) Config {
	return Config{
		Provider: p,
		Market:   market,
		News:     news,
		Model:    "mock-model",
		Logger:   zerolog.Nop(),
	}
}

// ── Supervisor ──

func TestSupervisorPassThrough(t *testing.T) {
	p := &mockProvider{}
	n := NewSupervisor(testConfig(p, &fakeMarket{}, &fakeNews{}))

	d, err := n.Run(context.Background(), graph.TradingState{Ticker: "TCS.NS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Set[graph.FieldTicker] != "TCS.NS" {
		t.Errorf("ticker: got %q", d.Set[graph.FieldTicker])
	}
	if p.callCount() != 0 {
		t.Errorf("pre-set ticker must not invoke the model, got %d calls", p.callCount())
	}
}

func TestSupervisorExtraction(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"already suffixed", "RELIANCE.NS", "RELIANCE.NS"},
		{"whitespace trimmed", "  RELIANCE.NS\n", "RELIANCE.NS"},
		{"suffix appended", "TCS", "TCS.NS"},
		{"lowercase normalized", "infy", "INFY.NS"},
		{"bse suffix kept", "TATAPOWER.BO", "TATAPOWER.BO"},
		{"unknown passed through", "UNKNOWN", "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
				return tt.output, nil
			}}
			n := NewSupervisor(testConfig(p, &fakeMarket{}, &fakeNews{}))

			d, err := n.Run(context.Background(), graph.TradingState{UserQuery: "analyze something"})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := d.Set[graph.FieldTicker]; got != tt.want {
				t.Errorf("ticker: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSupervisorZeroTemperature(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "SBIN.NS", nil
	}}
	n := NewSupervisor(testConfig(p, &fakeMarket{}, &fakeNews{}))

	if _, err := n.Run(context.Background(), graph.TradingState{UserQuery: "should I buy SBI?"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := p.callsFor(prompts.SupervisorSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d, want 1", len(calls))
	}
	if calls[0].opts.Temperature != 0 {
		t.Errorf("temperature: got %v, want 0", calls[0].opts.Temperature)
	}
	if calls[0].user != "should I buy SBI?" {
		t.Errorf("user message: got %q", calls[0].user)
	}
}

func TestSupervisorModelErrorIsFatal(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "", llm.ErrRateLimit
	}}
	n := NewSupervisor(testConfig(p, &fakeMarket{}, &fakeNews{}))

	_, err := n.Run(context.Background(), graph.TradingState{UserQuery: "q"})
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
}

// ── Guard behavior shared by all analysts ──

func TestAnalystGuardsSkipExternalCalls(t *testing.T) {
	for _, ticker := range []string{"", TickerUnknown} {
		p := &mockProvider{}
		market := &fakeMarket{}
		news := &fakeNews{}
		cfg := testConfig(p, market, news)

		nodes := []graph.Node{
			NewTechnicalAnalyst(cfg),
			NewFundamentalAnalyst(cfg),
			NewSentimentAnalyst(cfg),
			NewRiskAnalyst(cfg),
		}
		for _, n := range nodes {
			d, err := n.Run(context.Background(), graph.TradingState{Ticker: ticker})
			if err != nil {
				t.Fatalf("%s(%q): %v", n.Name(), ticker, err)
			}
			field := n.Writes()[0]
			if !strings.HasPrefix(d.Set[field], "Error: No ticker provided") {
				t.Errorf("%s(%q): field = %q", n.Name(), ticker, d.Set[field])
			}
		}
		if p.callCount() != 0 || market.historyCalls != 0 || market.metricsCalls != 0 || news.calls != 0 {
			t.Errorf("guards must make zero external calls (ticker %q)", ticker)
		}
	}
}

// ── Technical analyst ──

func TestTechnicalAnalyst(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "Bullish on the trend.", nil
	}}
	market := &fakeMarket{candles: makeCandles(60)}
	n := NewTechnicalAnalyst(testConfig(p, market, &fakeNews{}))

	d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Set[graph.FieldTechnicalAnalysis] != "Bullish on the trend." {
		t.Errorf("field: got %q", d.Set[graph.FieldTechnicalAnalysis])
	}

	calls := p.callsFor(prompts.TechnicalSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].opts.Temperature != 0.1 {
		t.Errorf("temperature: got %v, want 0.1", calls[0].opts.Temperature)
	}
	// Bounded payload: only the last ten rows go to the model.
	if got := strings.Count(calls[0].user, `"date"`); got != 10 {
		t.Errorf("rows in prompt: got %d, want 10", got)
	}
	if !strings.Contains(calls[0].user, "RELIANCE.NS") {
		t.Error("prompt should name the ticker")
	}
}

func TestTechnicalAnalystNoHistory(t *testing.T) {
	for _, market := range []*fakeMarket{
		{historyErr: errors.New("upstream down")},
		{candles: nil},
	} {
		p := &mockProvider{}
		n := NewTechnicalAnalyst(testConfig(p, market, &fakeNews{}))

		d, err := n.Run(context.Background(), graph.TradingState{Ticker: "NOHIST.NS"})
		if err != nil {
			t.Fatalf("fetch failure must not be fatal: %v", err)
		}
		want := "Could not retrieve historical data for NOHIST.NS."
		if d.Set[graph.FieldTechnicalAnalysis] != want {
			t.Errorf("field: got %q, want %q", d.Set[graph.FieldTechnicalAnalysis], want)
		}
		if p.callCount() != 0 {
			t.Error("no data means no model call")
		}
	}
}

// ── Fundamental analyst ──

func TestFundamentalAnalyst(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "Fairly Valued.", nil
	}}
	market := &fakeMarket{metrics: fullMetrics()}
	n := NewFundamentalAnalyst(testConfig(p, market, &fakeNews{}))

	d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Set[graph.FieldFundamentalAnalysis] != "Fairly Valued." {
		t.Errorf("field: got %q", d.Set[graph.FieldFundamentalAnalysis])
	}

	calls := p.callsFor(prompts.FundamentalSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].opts.Temperature != 0.1 {
		t.Errorf("temperature: got %v", calls[0].opts.Temperature)
	}
	if !strings.Contains(calls[0].user, "market_cap") {
		t.Error("prompt should carry serialized metrics")
	}
}

func TestFundamentalAnalystHardFail(t *testing.T) {
	for _, market := range []*fakeMarket{
		{metricsErr: errors.New("upstream down")},
		{metrics: models.FundamentalMetrics{Symbol: "X", PERatio: fp(12)}}, // no market cap
	} {
		p := &mockProvider{}
		n := NewFundamentalAnalyst(testConfig(p, market, &fakeNews{}))

		d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
		if err != nil {
			t.Fatalf("fetch failure must not be fatal: %v", err)
		}
		want := "Could not retrieve fundamental metrics for RELIANCE.NS."
		if d.Set[graph.FieldFundamentalAnalysis] != want {
			t.Errorf("field: got %q, want %q", d.Set[graph.FieldFundamentalAnalysis], want)
		}
		if p.callCount() != 0 {
			t.Error("no metrics means no model call")
		}
	}
}

// ── Sentiment analyst ──

func TestSentimentAnalyst(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "Neutral overall.", nil
	}}
	news := &fakeNews{articles: []models.NewsArticle{
		{Title: "Reliance Q1 beats estimates", Source: "Economic Times"},
		{Title: "Jio subscriber growth slows", Source: "Mint"},
	}}
	n := NewSentimentAnalyst(testConfig(p, &fakeMarket{}, news))

	d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Set[graph.FieldSentimentAnalysis] != "Neutral overall." {
		t.Errorf("field: got %q", d.Set[graph.FieldSentimentAnalysis])
	}

	// The search term uses the bare symbol, not the suffixed ticker.
	if news.lastQuery != "RELIANCE share news Indian stock market" {
		t.Errorf("query: got %q", news.lastQuery)
	}
	if news.lastLimit != 5 {
		t.Errorf("limit: got %d, want 5", news.lastLimit)
	}

	calls := p.callsFor(prompts.SentimentSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].opts.Temperature != 0.2 {
		t.Errorf("temperature: got %v", calls[0].opts.Temperature)
	}
	if !strings.Contains(calls[0].user, "Reliance Q1 beats estimates") {
		t.Error("prompt should carry the headlines")
	}
}

func TestSentimentAnalystNoNews(t *testing.T) {
	for _, news := range []*fakeNews{
		{err: errors.New("feed down")},
		{articles: nil},
	} {
		p := &mockProvider{}
		n := NewSentimentAnalyst(testConfig(p, &fakeMarket{}, news))

		d, err := n.Run(context.Background(), graph.TradingState{Ticker: "OBSCURE.NS"})
		if err != nil {
			t.Fatalf("fetch failure must not be fatal: %v", err)
		}
		want := "Could not find recent news for OBSCURE.NS."
		if d.Set[graph.FieldSentimentAnalysis] != want {
			t.Errorf("field: got %q, want %q", d.Set[graph.FieldSentimentAnalysis], want)
		}
		if p.callCount() != 0 {
			t.Error("no news means no model call")
		}
	}
}

// ── Risk analyst ──

func TestRiskAnalyst(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "Low Risk.", nil
	}}
	market := &fakeMarket{metrics: fullMetrics()}
	n := NewRiskAnalyst(testConfig(p, market, &fakeNews{}))

	d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d.Set[graph.FieldRiskAnalysis] != "Low Risk." {
		t.Errorf("field: got %q", d.Set[graph.FieldRiskAnalysis])
	}

	calls := p.callsFor(prompts.RiskSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].opts.Temperature != 0.1 {
		t.Errorf("temperature: got %v", calls[0].opts.Temperature)
	}
	for _, want := range []string{"Beta: 0.52", "52-Week High: 1608.8", "52-Week Low: 1114.85", "Debt to Equity: 36.5"} {
		if !strings.Contains(calls[0].user, want) {
			t.Errorf("prompt missing %q:\n%s", want, calls[0].user)
		}
	}
}

func TestRiskAnalystDegradesWithoutBeta(t *testing.T) {
	// Missing beta does not hard-fail: the model is still consulted
	// with a placeholder block.
	for _, market := range []*fakeMarket{
		{metricsErr: errors.New("upstream down")},
		{metrics: models.FundamentalMetrics{Symbol: "X", MarketCap: fp(1e12)}},
	} {
		p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
			return "High Risk due to missing data.", nil
		}}
		n := NewRiskAnalyst(testConfig(p, market, &fakeNews{}))

		d, err := n.Run(context.Background(), graph.TradingState{Ticker: "RELIANCE.NS"})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if d.Set[graph.FieldRiskAnalysis] != "High Risk due to missing data." {
			t.Errorf("field: got %q", d.Set[graph.FieldRiskAnalysis])
		}
		calls := p.callsFor(prompts.RiskSystemPrompt)
		if len(calls) != 1 {
			t.Fatalf("model must still be consulted, got %d calls", len(calls))
		}
		if !strings.Contains(calls[0].user, "Beta: Data Unavailable") {
			t.Errorf("prompt should carry the placeholder:\n%s", calls[0].user)
		}
	}
}

// ── Judge ──

func TestJudgeReportLayout(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		return "Balanced view.\nFINAL RECOMMENDATION: HOLD", nil
	}}
	n := NewJudge(testConfig(p, &fakeMarket{}, &fakeNews{}))

	state := graph.TradingState{
		Ticker:              "RELIANCE.NS",
		TechnicalAnalysis:   "tech text",
		FundamentalAnalysis: "fund text",
		SentimentAnalysis:   "sent text",
		RiskAnalysis:        "risk text",
	}
	d, err := n.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(d.Set[graph.FieldFinalRecommendation], "FINAL RECOMMENDATION: HOLD") {
		t.Errorf("field: got %q", d.Set[graph.FieldFinalRecommendation])
	}

	calls := p.callsFor(prompts.JudgeSystemPrompt)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].opts.Temperature != 0.3 {
		t.Errorf("temperature: got %v", calls[0].opts.Temperature)
	}

	user := calls[0].user
	sections := []string{
		"--- STOCK: RELIANCE.NS ---",
		"[TECHNICAL ANALYSIS]\ntech text",
		"[FUNDAMENTAL ANALYSIS]\nfund text",
		"[SENTIMENT ANALYSIS]\nsent text",
		"[RISK ANALYSIS]\nrisk text",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(user, s)
		if idx < 0 {
			t.Fatalf("report missing %q:\n%s", s, user)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestJudgeUnknownTickerFallback(t *testing.T) {
	p := &mockProvider{}
	n := NewJudge(testConfig(p, &fakeMarket{}, &fakeNews{}))

	if _, err := n.Run(context.Background(), graph.TradingState{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	calls := p.callsFor(prompts.JudgeSystemPrompt)
	if !strings.Contains(calls[0].user, "--- STOCK: Unknown ---") {
		t.Errorf("empty ticker should render as Unknown:\n%s", calls[0].user)
	}
}

// ── End to end ──

// scriptedProvider routes responses by system prompt so one run can
// drive all six nodes.
func scriptedProvider() *mockProvider {
	return &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		switch system {
		case prompts.SupervisorSystemPrompt:
			return "RELIANCE.NS", nil
		case prompts.TechnicalSystemPrompt:
			return "technical: Bullish", nil
		case prompts.FundamentalSystemPrompt:
			return "fundamental: Undervalued", nil
		case prompts.SentimentSystemPrompt:
			return "sentiment: Neutral", nil
		case prompts.RiskSystemPrompt:
			return "risk: Medium Risk", nil
		case prompts.JudgeSystemPrompt:
			return "Synthesis.\nFINAL RECOMMENDATION: BUY", nil
		}
		return "", errors.New("unexpected system prompt")
	}}
}

func TestSwarmAnalyze(t *testing.T) {
	p := scriptedProvider()
	market := &fakeMarket{candles: makeCandles(60), metrics: fullMetrics()}
	news := &fakeNews{articles: []models.NewsArticle{{Title: "RIL hits record high"}}}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	final, err := swarm.Analyze(context.Background(), "Should I buy Reliance?")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if final.Ticker != "RELIANCE.NS" {
		t.Errorf("Ticker: got %q", final.Ticker)
	}
	if final.TechnicalAnalysis != "technical: Bullish" ||
		final.FundamentalAnalysis != "fundamental: Undervalued" ||
		final.SentimentAnalysis != "sentiment: Neutral" ||
		final.RiskAnalysis != "risk: Medium Risk" {
		t.Errorf("analyst fields: %+v", final)
	}
	if !strings.HasSuffix(final.FinalRecommendation, "FINAL RECOMMENDATION: BUY") {
		t.Errorf("FinalRecommendation: got %q", final.FinalRecommendation)
	}

	// Judge saw all four reports.
	judgeCalls := p.callsFor(prompts.JudgeSystemPrompt)
	if len(judgeCalls) != 1 {
		t.Fatalf("judge calls: got %d", len(judgeCalls))
	}
	for _, want := range []string{"technical: Bullish", "fundamental: Undervalued", "sentiment: Neutral", "risk: Medium Risk"} {
		if !strings.Contains(judgeCalls[0].user, want) {
			t.Errorf("judge report missing %q", want)
		}
	}

	// Risk and fundamental fetch metrics independently.
	if market.metricsCalls != 2 {
		t.Errorf("metrics calls: got %d, want 2", market.metricsCalls)
	}
	if market.historyCalls != 1 || news.calls != 1 {
		t.Errorf("history calls %d, news calls %d", market.historyCalls, news.calls)
	}
}

func TestSwarmAnalyzeTickerSkipsExtraction(t *testing.T) {
	p := scriptedProvider()
	market := &fakeMarket{candles: makeCandles(60), metrics: fullMetrics()}
	news := &fakeNews{articles: []models.NewsArticle{{Title: "headline"}}}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}
	if _, err := swarm.AnalyzeTicker(context.Background(), "TCS.NS"); err != nil {
		t.Fatalf("AnalyzeTicker: %v", err)
	}
	if got := len(p.callsFor(prompts.SupervisorSystemPrompt)); got != 0 {
		t.Errorf("supervisor model calls: got %d, want 0", got)
	}
}

func TestSwarmUnknownTickerShortCircuits(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		switch system {
		case prompts.SupervisorSystemPrompt:
			return "UNKNOWN", nil
		case prompts.JudgeSystemPrompt:
			return "No ticker to analyze.\nFINAL RECOMMENDATION: HOLD", nil
		}
		return "", errors.New("analysts must not reach the model for UNKNOWN")
	}}
	market := &fakeMarket{}
	news := &fakeNews{}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}
	final, err := swarm.Analyze(context.Background(), "what is the meaning of life")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if market.historyCalls != 0 || market.metricsCalls != 0 || news.calls != 0 {
		t.Error("UNKNOWN ticker must not trigger data fetches")
	}
	if !strings.HasPrefix(final.TechnicalAnalysis, "Error: No ticker provided") {
		t.Errorf("technical field: got %q", final.TechnicalAnalysis)
	}
}

func TestSwarmModelFailureAbortsRun(t *testing.T) {
	p := &mockProvider{chatFunc: func(system, user string, opts *llm.ChatOptions) (string, error) {
		if system == prompts.FundamentalSystemPrompt {
			return "", llm.ErrProviderDown
		}
		if system == prompts.SupervisorSystemPrompt {
			return "RELIANCE.NS", nil
		}
		return "ok", nil
	}}
	market := &fakeMarket{candles: makeCandles(60), metrics: fullMetrics()}
	news := &fakeNews{articles: []models.NewsArticle{{Title: "headline"}}}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}
	_, err = swarm.Analyze(context.Background(), "Reliance?")
	if !errors.Is(err, llm.ErrProviderDown) {
		t.Fatalf("got %v, want ErrProviderDown", err)
	}
}

func TestSwarmNodeNamesMatchGraph(t *testing.T) {
	p := scriptedProvider()
	market := &fakeMarket{candles: makeCandles(60), metrics: fullMetrics()}
	news := &fakeNews{articles: []models.NewsArticle{{Title: "headline"}}}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	want := []string{
		AgentFundamental,
		AgentJudge,
		AgentRisk,
		AgentSentiment,
		AgentSupervisor,
		AgentTechnical,
	}
	got := swarm.Nodes()
	if len(got) != len(want) {
		t.Fatalf("Nodes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Nodes[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSwarmStream(t *testing.T) {
	p := scriptedProvider()
	market := &fakeMarket{candles: makeCandles(60), metrics: fullMetrics()}
	news := &fakeNews{articles: []models.NewsArticle{{Title: "headline"}}}

	swarm, err := NewSwarm(testConfig(p, market, news))
	if err != nil {
		t.Fatalf("NewSwarm: %v", err)
	}

	var nodes []string
	for ev := range swarm.Stream(context.Background(), "Reliance?") {
		if ev.Err != nil {
			t.Fatalf("event error: %v", ev.Err)
		}
		nodes = append(nodes, ev.Node)
	}
	if len(nodes) != 6 {
		t.Fatalf("events: got %d, want 6 (%v)", len(nodes), nodes)
	}
	if nodes[0] != prompts.AgentSupervisor || nodes[len(nodes)-1] != prompts.AgentJudge {
		t.Errorf("event order: %v", nodes)
	}
}
