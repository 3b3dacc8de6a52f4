package alpaca

import "time"

// barPayload is one bar as served by the market data API.
type barPayload struct {
	Time       time.Time `json:"t"`
	Open       float64   `json:"o"`
	High       float64   `json:"h"`
	Low        float64   `json:"l"`
	Close      float64   `json:"c"`
	Volume     int64     `json:"v"`
	TradeCount int64     `json:"n"`
	VWAP       float64   `json:"vw"`
}

type barsResponse struct {
	Bars          []barPayload `json:"bars"`
	Symbol        string       `json:"symbol"`
	NextPageToken *string      `json:"next_page_token"`
}

// NewsArticle is one article from the news API.
type NewsArticle struct {
	ID        int64     `json:"id"`
	Headline  string    `json:"headline"`
	Author    string    `json:"author"`
	Summary   string    `json:"summary"`
	URL       string    `json:"url"`
	Symbols   []string  `json:"symbols"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type newsResponse struct {
	News          []NewsArticle `json:"news"`
	NextPageToken *string       `json:"next_page_token"`
}
