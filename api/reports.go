package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendSummary reports marketplace spend over a period for the dashboard
// and reporting views.
type SpendSummary struct {
	Start     time.Time       `json:"start"`
	End       time.Time       `json:"end"`
	Currency  string          `json:"currency"`
	Total     decimal.Decimal `json:"total"`
	GPUHours  float64         `json:"gpu_hours"`
	Intervals []SpendInterval `json:"intervals"`
}

// SpendInterval is one bucket of a spend report, typically a day.
type SpendInterval struct {
	Start         time.Time       `json:"start"`
	Cost          decimal.Decimal `json:"cost"`
	GPUHours      float64         `json:"gpu_hours"`
	InstanceCount int             `json:"instance_count"`
}
