// Package insights scores a trading history against a fixed catalog of
// heuristics and produces ranked findings.
package insights

import (
	"trade-journal/internal/models"
)

// Category is the severity of an insight.
type Category string

const (
	CategoryCritical Category = "critical"
	CategoryWarning  Category = "warning"
	CategoryInfo     Category = "info"
	CategoryPositive Category = "positive"
)

// Type is the kind of an insight.
type Type string

const (
	TypeError    Type = "error"
	TypeAdvice   Type = "advice"
	TypePattern  Type = "pattern"
	TypeStrength Type = "strength"
)

// Insight is a single generated finding. Insights are produced fresh on every
// analysis and never persisted.
type Insight struct {
	ID         string   `json:"id"`
	Category   Category `json:"category"`
	Type       Type     `json:"type"`
	Priority   int      `json:"priority"` // 1 is most important
	Message    string   `json:"message"`
	Confidence int      `json:"confidence"` // percent
	BasedOn    []string `json:"based_on"`
}

// Report holds the two ranked insight lists.
type Report struct {
	Errors []Insight `json:"errors"`
	Advice []Insight `json:"advice"`
}

// Len returns the total number of insights in the report.
func (r Report) Len() int {
	return len(r.Errors) + len(r.Advice)
}

// Input is everything a rule may look at.
type Input struct {
	Trades      []models.Trade
	Stats       models.TradeAnalytics
	EmotionLogs []models.EmotionLog
	Emotions    models.EmotionStats
}

// Rule is a tagged rule descriptor: a pure predicate, a message template and
// static ranking metadata.
type Rule struct {
	ID         string
	Category   Category
	Type       Type
	Priority   int
	Confidence int
	BasedOn    []string
	Match      func(in *Input) (bool, error)
	Message    func(in *Input) string
}

func (r Rule) insight(message string) Insight {
	return Insight{
		ID:         r.ID,
		Category:   r.Category,
		Type:       r.Type,
		Priority:   r.Priority,
		Message:    message,
		Confidence: r.Confidence,
		BasedOn:    append([]string(nil), r.BasedOn...),
	}
}
