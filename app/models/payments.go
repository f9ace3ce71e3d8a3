package models

type Plan string

const (
	SparkPlan     Plan = "spark"
	ArchitectPlan Plan = "architect"
	StudioPlan    Plan = "studio"
)

type PlanInfo struct {
	Name             Plan     `json:"name"`
	GenerationsLimit int      `json:"generations_limit"`
	Price            int      `json:"price"`
	Features         []string `json:"features"`
}

// Prices are monthly, in rupees.
var Plans = map[Plan]PlanInfo{
	SparkPlan: {
		Name:             SparkPlan,
		GenerationsLimit: 30,
		Price:            0,
		Features: []string{
			"30 prompts/month",
			"Quick Mode only",
			"Basic frameworks",
			"Standard quality",
		},
	},
	ArchitectPlan: {
		Name:             ArchitectPlan,
		GenerationsLimit: 500,
		Price:            299,
		Features: []string{
			"500 prompts/month",
			"Quick + Pro Mode",
			"All frameworks",
			"Priority quality",
			"Version history (10 versions)",
			"Export to PDF",
			"Email support",
		},
	},
	StudioPlan: {
		Name:             StudioPlan,
		GenerationsLimit: 2500,
		Price:            999,
		Features: []string{
			"2,500 prompts/month",
			"Everything in Architect",
			"Unlimited version history",
			"Team collaboration (coming soon)",
			"Priority support",
			"Custom frameworks",
			"API access (coming soon)",
		},
	},
}

// PlanOrder is the display order, cheapest first.
var PlanOrder = []Plan{SparkPlan, ArchitectPlan, StudioPlan}

func IsValidPlan(plan Plan) bool {
	_, ok := Plans[plan]
	return ok
}

// PlanForAmount maps a paid amount back to a plan; anything that is not the studio price is architect.
func PlanForAmount(amount float64) Plan {
	if amount == float64(Plans[StudioPlan].Price) {
		return StudioPlan
	}
	return ArchitectPlan
}

type UsageThresholds struct {
	Thresholds []UsageThreshold
}

type UsageThreshold struct {
	Percentage float64
	Message    string
}
