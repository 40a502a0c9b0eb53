package spectatorpush

import (
	"time"

	"agent-arena/internal/events"
)

// Scope types a target can subscribe to.
const (
	ScopeAll   = "all"
	ScopeAgent = "agent"
	ScopeMatch = "match"
)

// PushTarget is one webhook. ScopeValue holds the agent id or match id for
// the agent and match scopes.
type PushTarget struct {
	Platform       string   `json:"platform"`
	Endpoint       string   `json:"endpoint"`
	Secret         string   `json:"secret"`
	ScopeType      string   `json:"scope_type"`
	ScopeValue     string   `json:"scope_value"`
	EventAllowlist []string `json:"event_allowlist"`
	// Panel edits one message per match instead of posting once per event.
	Panel   bool `json:"panel"`
	Enabled bool `json:"enabled"`
}

type Config struct {
	Enabled             bool
	ConfigPath          string
	ConfigReload        time.Duration
	Targets             []PushTarget
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

type MessageField struct {
	Name   string
	Value  string
	Inline bool
}

type FormattedMessage struct {
	PanelKey    string
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []MessageField
}

type pushJob struct {
	Target    PushTarget
	Event     events.Event
	Formatted FormattedMessage
	Attempt   int
	// Terminal marks the last message of a panel.
	Terminal bool
}

func (j pushJob) key() string {
	return targetKey(j.Target)
}

func targetKey(t PushTarget) string {
	return t.Platform + "|" + t.Endpoint + "|" + t.ScopeType + "|" + t.ScopeValue
}
