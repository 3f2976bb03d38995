// Dispatcher implementation printing compositions to STDOUT
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// StdoutDispatcher prints each composition using ANSI colors. It stands in
// for the device SMS/email/dialer composers.
type StdoutDispatcher struct {
	out io.Writer
}

// NewStdoutDispatcher creates a StdoutDispatcher writing to os.Stdout.
func NewStdoutDispatcher() *StdoutDispatcher {
	return &StdoutDispatcher{out: os.Stdout}
}

// ComposeSMS prints an SMS composition line.
func (d *StdoutDispatcher) ComposeSMS(ctx context.Context, phoneNumber, body string) error {
	fmt.Fprintf(d.out, "%s[%s]%s %sSMS%s to=%s %s%s%s\n",
		colorGray, time.Now().Format(time.RFC3339), colorReset,
		colorGreen, colorReset, phoneNumber,
		colorCyan, body, colorReset)
	return nil
}

// ComposeEmail prints an email composition line.
func (d *StdoutDispatcher) ComposeEmail(ctx context.Context, address, subject, body string) error {
	fmt.Fprintf(d.out, "%s[%s]%s %sEMAIL%s to=%s subject=%q %s%s%s\n",
		colorGray, time.Now().Format(time.RFC3339), colorReset,
		colorBlue, colorReset, address, subject,
		colorCyan, body, colorReset)
	return nil
}

// ComposeCall prints a dial composition line.
func (d *StdoutDispatcher) ComposeCall(ctx context.Context, phoneNumber string) error {
	fmt.Fprintf(d.out, "%s[%s]%s %sCALL%s to=%s\n",
		colorGray, time.Now().Format(time.RFC3339), colorReset,
		colorRed, colorReset, phoneNumber)
	return nil
}
