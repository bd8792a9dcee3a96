package models

// Requests for the flow HTTP endpoints. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type PatternRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type FlowsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Days   int    `query:"days" json:"days" default:"5" validate:"gte=1,lte=30"`
}

type LevelsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Lookback int    `query:"lookback" json:"lookback" default:"20" validate:"gte=5,lte=252"`
}
