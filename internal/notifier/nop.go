package notifier

import "context"

// NopNotifier drops every event. Used when the notifier driver is "off".
type NopNotifier struct{}

func NewNopNotifier() *NopNotifier {
	return &NopNotifier{}
}

func (n *NopNotifier) Publish(_ context.Context, _ string, _ Event) error {
	return nil
}
