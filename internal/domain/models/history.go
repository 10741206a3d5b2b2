package models

import "time"

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	Symbol    string       `json:"symbol"`
	Days      int          `json:"days"`
	Timeframe string       `json:"timeframe"`
	Data      []CandleWire `json:"data"`
}

// CandleWire is one history row as sent by the backend; timestamp has no offset.
type CandleWire struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Candle is an OHLCV row with its timestamp resolved.
type Candle struct {
	Time   time.Time `json:"time"`
	Raw    string    `json:"raw,omitempty"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// QuoteVolume is the volume expressed in the quote currency.
func (c Candle) QuoteVolume() float64 { return c.Volume * c.Close }

// AllowedHistoryDays are the ranges the backend accepts.
var AllowedHistoryDays = []int{1, 7, 30}
