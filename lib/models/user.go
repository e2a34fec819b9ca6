package models

type User struct {
	ID           uint          `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Session is the signed-in user's token and profile as held in client storage.
type Session struct {
	Token string
	User  User
}

func (s *Session) Subscribed() bool {
	return s != nil && s.User.Subscription != nil && s.User.Subscription.Status == SubscriptionActive
}
