package cms

import (
	"context"

	"github.com/fiffu/manzil/lib/models"
)

// AuthResult is the outcome of a successful register or login call.
type AuthResult struct {
	Token string
	User  models.User
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var res authResponse
	rb := c.request("/auth/local/register").
		Post().
		BodyJSON(map[string]string{
			"username": username,
			"email":    email,
			"password": password,
		}).
		ToJSON(&res)
	if err := c.send(ctx, rb, "An error occurred during registration!"); err != nil {
		c.log.Sugar().Infow("Registration failed", "email", email, "err", err)
		return nil, err
	}
	if res.JWT == "" {
		return nil, &APIError{Message: "Registration failed. Try again!"}
	}
	return &AuthResult{Token: res.JWT, User: res.User.model()}, nil
}

func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	var res authResponse
	rb := c.request("/auth/local").
		Post().
		BodyJSON(map[string]string{
			"identifier": identifier,
			"password":   password,
		}).
		ToJSON(&res)
	if err := c.send(ctx, rb, "An error occurred during login!"); err != nil {
		c.log.Sugar().Infow("Login failed", "identifier", identifier, "err", err)
		return nil, err
	}
	if res.JWT == "" {
		return nil, &APIError{Message: "Invalid email or password!"}
	}
	return &AuthResult{Token: res.JWT, User: res.User.model()}, nil
}

func (u userWire) model() models.User {
	user := models.User{ID: u.ID, Username: u.Username, Email: u.Email}
	if u.Plan != "" || u.SubscriptionStatus != "" {
		user.Subscription = &models.Subscription{
			Plan:        u.Plan,
			Status:      u.SubscriptionStatus,
			RenewalDate: u.RenewalDate,
		}
	}
	return user
}
