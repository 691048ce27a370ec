package model

// EnvelopeState is one row of the monthly reconciliation report.
type EnvelopeState struct {
	Envelope   string  `json:"envelope"`
	Month      string  `json:"month"`
	Budget     float64 `json:"budget"`      // monthly budget after rollup and gap-fill
	Adjustment float64 `json:"adjustment"`  // one-off and transfer corrections for the month
	StateMonth float64 `json:"state_month"` // round(budget + adjustment - spent)
	State      float64 `json:"state"`       // cumulative surplus/deficit through this month
	Carryover  float64 `json:"carryover"`   // balance entering the month, i.e. state - state_month
}

// YearlyEnvelopeState is the report pre-aggregated to calendar years:
// summed budget and adjustment, and the state at the end of the year.
type YearlyEnvelopeState struct {
	Envelope   string  `json:"envelope"`
	Year       string  `json:"year"`
	Budget     float64 `json:"budget"`
	Adjustment float64 `json:"adjustment"`
	State      float64 `json:"state"`
}
