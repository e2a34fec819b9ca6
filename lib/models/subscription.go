package models

const SubscriptionActive = "active"

type Subscription struct {
	Plan        string `json:"plan"`
	Status      string `json:"status"`
	RenewalDate string `json:"renewalDate"`
}
