package models

// Tick is one timestamped price/volume observation for a symbol.
// Ticks are write-once: ingestion appends them and nothing mutates them after.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp string  `json:"timestamp"` // wall-clock ordered, second or better resolution
	Price     float64 `json:"price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
}

// NewsItem is one timestamped free-text item joined to ticks by symbol and
// time proximity.
type NewsItem struct {
	Symbol    string `json:"symbol"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	NewsType  string `json:"news_type"`
}

// CaseMeta describes one replay case. Tick/news counts are recomputed from
// the stored data at write time.
type CaseMeta struct {
	CaseID      string `json:"case_id"`
	Symbol      string `json:"symbol"`
	SymbolName  string `json:"symbol_name"`
	CaseDate    string `json:"case_date"`
	Description string `json:"description"`
	AnomalyType string `json:"anomaly_type"`
	TickCount   int    `json:"tick_count"`
	NewsCount   int    `json:"news_count"`
}
