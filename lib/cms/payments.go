package cms

import (
	"context"
	"net/http"
	"time"

	"github.com/fiffu/manzil/lib/models"
)

// Payment is the backend's record of a gateway transaction.
type Payment struct {
	Reference     string    `json:"reference"`
	UserID        uint      `json:"userId"`
	Email         string    `json:"email"`
	Plan          string    `json:"plan"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func (c *Client) RecordPayment(ctx context.Context, token string, p Payment) error {
	rb := c.authorized("/payments", token).
		Post().
		BodyJSON(map[string]any{"data": p})
	return c.send(ctx, rb, "Failed to save payment.")
}

// UpdateUserSubscription stores the subscription on the user's profile.
func (c *Client) UpdateUserSubscription(ctx context.Context, token string, userID uint, sub models.Subscription) error {
	rb := c.authorized("/users/"+idParam(userID), token).
		Method(http.MethodPut).
		BodyJSON(map[string]string{
			"subscriptionStatus": sub.Status,
			"plan":               sub.Plan,
			"renewalDate":        sub.RenewalDate,
		})
	return c.send(ctx, rb, "Failed to update subscription.")
}
