package lib

import "time"

const (
	SystemTotalGenerationsKey = "system_totals:generations"
	SystemTotalTokensKey      = "system_totals:tokens"
	SystemStatusKey           = "system-status"
	WaitlistCountKey          = "waitlist:count"
)

// UserMonthlyGenerationsKey counts a user's generations in the current billing month.
func UserMonthlyGenerationsKey(user string) string {
	return user + ":monthly_generations"
}

// UsageResetKey marks the billing month whose usage reset already ran.
func UsageResetKey(month time.Time) string {
	return "usage_reset:" + month.UTC().Format("2006-01")
}

func UserTotalTokensKey(user string) string {
	return user + ":total_tokens"
}

// EstimateTokens is a rough chars/4 estimate, rounded up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
