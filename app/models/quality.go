package models

// QualityBreakdown is the heuristic score of a generated prompt.
type QualityBreakdown struct {
	Structure   float64  `json:"structure"`
	Clarity     float64  `json:"clarity"`
	Examples    float64  `json:"examples"`
	Specificity float64  `json:"specificity"`
	Total       float64  `json:"total"`
	Suggestions []string `json:"suggestions"`
}
