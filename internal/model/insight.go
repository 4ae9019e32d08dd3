package model

import "time"

// Sentiments an insight may carry.
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Insight is the persisted analysis of one chat log. Insights are never
// modified after creation.
type Insight struct {
	ID            int64     `json:"id"`
	RawText       string    `json:"raw_text"`
	ProcessedJSON string    `json:"processed_json"`
	Summary       string    `json:"summary"`
	Sentiment     string    `json:"sentiment"`
	Revenue       float64   `json:"revenue"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}
