// Notification composition boundary: SMS, email, and call channels
package dispatch

import (
	"context"
	"time"
)

// Dispatcher hands messages off to external composition channels. An error
// means the channel was unavailable, never that a human declined to send.
type Dispatcher interface {
	ComposeSMS(ctx context.Context, phoneNumber, body string) error
	ComposeEmail(ctx context.Context, address, subject, body string) error
	ComposeCall(ctx context.Context, phoneNumber string) error
}

// Channel names used in dispatch records.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	ChannelCall  = "call"
)

// Record is one attempted composition, as logged by the file writer.
type Record struct {
	Channel   string    `json:"channel"`
	Target    string    `json:"target"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"ts"`
}
