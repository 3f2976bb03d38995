package dispatch

import "context"

// MultiDispatcher fans each composition out to multiple dispatchers.
type MultiDispatcher struct {
	dispatchers []Dispatcher
}

// NewMultiDispatcher creates a new MultiDispatcher.
func NewMultiDispatcher(ds ...Dispatcher) *MultiDispatcher {
	return &MultiDispatcher{dispatchers: ds}
}

// ComposeSMS sends the SMS to all dispatchers, returning the first error.
func (m *MultiDispatcher) ComposeSMS(ctx context.Context, phoneNumber, body string) error {
	var first error
	for _, d := range m.dispatchers {
		if err := d.ComposeSMS(ctx, phoneNumber, body); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ComposeEmail sends the email to all dispatchers, returning the first error.
func (m *MultiDispatcher) ComposeEmail(ctx context.Context, address, subject, body string) error {
	var first error
	for _, d := range m.dispatchers {
		if err := d.ComposeEmail(ctx, address, subject, body); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ComposeCall sends the call to all dispatchers, returning the first error.
func (m *MultiDispatcher) ComposeCall(ctx context.Context, phoneNumber string) error {
	var first error
	for _, d := range m.dispatchers {
		if err := d.ComposeCall(ctx, phoneNumber); err != nil && first == nil {
			first = err
		}
	}
	return first
}
