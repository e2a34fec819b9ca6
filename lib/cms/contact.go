package cms

import "context"

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
	Message string `json:"message"`
}

func (c *Client) SubmitContactMessage(ctx context.Context, msg ContactMessage) error {
	rb := c.request("/contactmessage").
		Post().
		BodyJSON(map[string]any{"data": msg})
	return c.send(ctx, rb, "An error occurred while submitting your message.")
}
