package models

// SubscriptionResponse represents subscription state in responses
type SubscriptionResponse struct {
	PlanType         string `json:"plan_type"`
	Status           string `json:"status"`
	TrialEndsAt      string `json:"trial_ends_at,omitempty"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty"`
}
