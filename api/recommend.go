package api

// RecommendationRequest asks the advisor service to suggest offers for a
// workload described in free text.
type RecommendationRequest struct {
	Workload  string  `json:"workload"`
	BudgetDPH float64 `json:"budget_dph,omitempty"`
	Region    string  `json:"region,omitempty"`
}

// Recommendation is the advisor's answer: a short rationale plus concrete
// offers, best first.
type Recommendation struct {
	Rationale string  `json:"rationale"`
	Offers    []Offer `json:"offers"`
}
