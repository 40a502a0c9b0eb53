// Package platforms delivers formatted messages to chat webhooks.
package platforms

import "context"

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is platform-neutral. A non-empty PanelKey asks the adapter to edit
// the message it previously posted under the same key instead of posting a
// new one.
type Message struct {
	PanelKey    string
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []Field
}

type Adapter interface {
	Name() string
	Send(ctx context.Context, endpoint, secret string, msg Message) error
}

// PanelCleaner is implemented by adapters that remember posted panel ids.
type PanelCleaner interface {
	ForgetPanel(endpoint, panelKey string)
}
