package models

// Requests for HTTP endpoints. Bound with echo and checked with validator.

type ValidateHorizonRequest struct {
	Value string `query:"value" json:"value"`
	Paste bool   `query:"paste" json:"paste"`
}

type ForecastRequest struct {
	Custom string `query:"custom" json:"custom" form:"custom"`
	Preset int    `query:"preset" json:"preset" form:"preset" validate:"gte=0,lte=168"`
}

type HistoryRequest struct {
	Days int `query:"days" json:"days" default:"1" validate:"oneof=1 7 30"`
}

type EvalSeriesRequest struct {
	Limit int `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
