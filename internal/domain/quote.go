package domain

// Quote is a collateral price in USD from the external feed.
type Quote struct {
	Symbol    string  `json:"symbol"`
	USD       float64 `json:"usd"`
	FetchedAt int64   `json:"fetchedAt"` // Unix timestamp in milliseconds
}
