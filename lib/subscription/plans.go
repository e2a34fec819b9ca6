package subscription

import (
	"strings"
	"time"
)

// DateLayout is how renewal dates are written to the user profile.
const DateLayout = "2006-01-02"

type Plan struct {
	Name  string
	Title string
	// Price is in whole rupees.
	Price int64
	Label string
	Trial string
	Badge string
	renew func(time.Time) time.Time
}

// Renewal is the date the plan renews when bought at t.
func (p Plan) Renewal(t time.Time) time.Time {
	return p.renew(t)
}

var plans = []Plan{
	{
		Name:  "Weekly",
		Title: "MANZIL Premium Weekly",
		Price: 1,
		Label: "₹ 1 /-",
		Trial: "7-day FREE TRIAL",
		renew: func(t time.Time) time.Time { return t.AddDate(0, 0, 7) },
	},
	{
		Name:  "Monthly",
		Title: "MANZIL Premium Monthly",
		Price: 249,
		Label: "₹ 249 /-",
		Trial: "14-day FREE TRIAL",
		Badge: "Most Popular",
		renew: func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
	},
	{
		Name:  "Annual",
		Title: "MANZIL Premium Annual",
		Price: 2499,
		Label: "₹ 2,499 /-",
		Trial: "30-day FREE TRIAL",
		Badge: "Best Deal",
		renew: func(t time.Time) time.Time { return t.AddDate(1, 0, 0) },
	},
}

// Plans returns the catalogue in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// Lookup finds a plan by name, ignoring case.
func Lookup(name string) (Plan, bool) {
	name = strings.TrimSpace(name)
	for _, p := range plans {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Plan{}, false
}
