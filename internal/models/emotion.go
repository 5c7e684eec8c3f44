package models

import "time"

// Sentiment classifies an emotion.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Emotion is a predefined or user-defined emotional state.
type Emotion struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"` // empty for predefined emotions
	Name       string    `json:"name"`
	Sentiment  Sentiment `json:"sentiment"`
	Predefined bool      `json:"predefined"`
}

// EmotionLog records an emotion felt by a user, optionally tied to a trade.
type EmotionLog struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TradeID     string    `json:"trade_id,omitempty"`
	EmotionID   string    `json:"emotion_id"`
	EmotionName string    `json:"emotion_name"`
	Sentiment   Sentiment `json:"sentiment"`
	Intensity   int       `json:"intensity"` // 1-10
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EmotionBreakdown summarizes one emotion across a user's logs.
type EmotionBreakdown struct {
	Name         string    `json:"name"`
	Sentiment    Sentiment `json:"sentiment"`
	Count        int       `json:"count"`
	AvgIntensity float64   `json:"avg_intensity"`
	TradeCount   int       `json:"trade_count"`
	AvgTradePnL  float64   `json:"avg_trade_pnl"`
}

// EmotionStats is the derived emotion summary used by the insight rules.
type EmotionStats struct {
	TotalLogs        int                `json:"total_logs"`
	PositiveCount    int                `json:"positive_count"`
	NegativeCount    int                `json:"negative_count"`
	NeutralCount     int                `json:"neutral_count"`
	PositiveRatio    float64            `json:"positive_ratio"`
	NegativeRatio    float64            `json:"negative_ratio"`
	AverageIntensity float64            `json:"average_intensity"`
	MostFrequent     string             `json:"most_frequent,omitempty"`
	PositiveTrades   int                `json:"positive_trades"`
	NegativeTrades   int                `json:"negative_trades"`
	PositiveAvgPnL   float64            `json:"positive_avg_pnl"`
	NegativeAvgPnL   float64            `json:"negative_avg_pnl"`
	ByEmotion        []EmotionBreakdown `json:"by_emotion"`
}

// EmotionLogFilter represents filters for querying emotion logs.
type EmotionLogFilter struct {
	UserID    string
	TradeID   string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
