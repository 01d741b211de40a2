// Package graph implements the fan-out/join execution engine the
// analysis swarm runs on. State flows through the graph as a single
// shared TradingState; nodes never mutate it directly but return sparse
// StateDelta patches that the runner merges in completion order.
package graph

import "time"

// Field identifies a writable slot in TradingState. Every scalar field
// is owned by exactly one node; the runner enforces ownership when
// merging deltas.
type Field string

const (
	FieldUserQuery           Field = "user_query"
	FieldTicker              Field = "ticker"
	FieldTechnicalAnalysis   Field = "technical_analysis"
	FieldFundamentalAnalysis Field = "fundamental_analysis"
	FieldSentimentAnalysis   Field = "sentiment_analysis"
	FieldRiskAnalysis        Field = "risk_analysis"
	FieldFinalRecommendation Field = "final_recommendation"
)

// TraceEntry is one append-only trace message. Any node may contribute
// trace entries regardless of field ownership.
type TraceEntry struct {
	Node    string    `json:"node"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// TradingState is the shared state for one analysis run.
type TradingState struct {
	UserQuery           string       `json:"user_query"`
	Ticker              string       `json:"ticker"`
	TechnicalAnalysis   string       `json:"technical_analysis"`
	FundamentalAnalysis string       `json:"fundamental_analysis"`
	SentimentAnalysis   string       `json:"sentiment_analysis"`
	RiskAnalysis        string       `json:"risk_analysis"`
	FinalRecommendation string       `json:"final_recommendation"`
	Messages            []TraceEntry `json:"messages"`
}

// Clone returns a deep copy safe to hand to a concurrently running node.
func (s TradingState) Clone() TradingState {
	out := s
	if s.Messages != nil {
		out.Messages = make([]TraceEntry, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// Get returns the value of a scalar field.
func (s TradingState) Get(f Field) string {
	switch f {
	case FieldUserQuery:
		return s.UserQuery
	case FieldTicker:
		return s.Ticker
	case FieldTechnicalAnalysis:
		return s.TechnicalAnalysis
	case FieldFundamentalAnalysis:
		return s.FundamentalAnalysis
	case FieldSentimentAnalysis:
		return s.SentimentAnalysis
	case FieldRiskAnalysis:
		return s.RiskAnalysis
	case FieldFinalRecommendation:
		return s.FinalRecommendation
	}
	return ""
}

// set overwrites a scalar field. Unknown fields are ignored; the runner
// validates them before merging.
func (s *TradingState) set(f Field, v string) {
	switch f {
	case FieldUserQuery:
		s.UserQuery = v
	case FieldTicker:
		s.Ticker = v
	case FieldTechnicalAnalysis:
		s.TechnicalAnalysis = v
	case FieldFundamentalAnalysis:
		s.FundamentalAnalysis = v
	case FieldSentimentAnalysis:
		s.SentimentAnalysis = v
	case FieldRiskAnalysis:
		s.RiskAnalysis = v
	case FieldFinalRecommendation:
		s.FinalRecommendation = v
	}
}

// StateDelta is a sparse patch returned by a node. Scalar writes
// overwrite; Messages append.
type StateDelta struct {
	Set      map[Field]string
	Messages []TraceEntry
}

// SetField records a scalar write, allocating the map on first use.
func (d *StateDelta) SetField(f Field, v string) {
	if d.Set == nil {
		d.Set = make(map[Field]string)
	}
	d.Set[f] = v
}

// AddMessage appends a trace entry to the delta.
func (d *StateDelta) AddMessage(node, content string) {
	d.Messages = append(d.Messages, TraceEntry{
		Node:    node,
		Content: content,
		Time:    time.Now(),
	})
}

// Empty reports whether the delta carries no writes at all.
func (d StateDelta) Empty() bool {
	return len(d.Set) == 0 && len(d.Messages) == 0
}

// Apply merges a delta into the state: scalars overwrite, messages
// append. Callers are expected to have validated field ownership.
func (s *TradingState) Apply(d StateDelta) {
	for f, v := range d.Set {
		s.set(f, v)
	}
	s.Messages = append(s.Messages, d.Messages...)
}
