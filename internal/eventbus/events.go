package eventbus

import "time"

// The event catalog from spec.md §4.1. Every event is timestamped at publish.

// MessageReceived is published by the Transport adapter for each inbound
// chat message.
type MessageReceived struct {
	Timestamp time.Time
	UserID    string
	UserName  string
	Content   string
	ChannelID string
}

// ResponseGenerated is published once the orchestrator has a final utterance
// (or a refusal) for an inbound message.
type ResponseGenerated struct {
	Timestamp       time.Time
	Content         string
	ContextUsed     []string
	GenerationTime  time.Duration
}

// AutonomousMessageSent is published after the orchestrator successfully
// handles a ProactiveImpulse and produces outgoing speech.
type AutonomousMessageSent struct {
	Timestamp time.Time
	Content   string
	ChannelID string
}

// ProactiveImpulse is published by the BDI engine when a desire crosses into
// an executed intention.
type ProactiveImpulse struct {
	Timestamp     time.Time
	TriggerReason string
	Confidence    float64
}

// EmotionalStateChanged is published after the PAD vector is updated and
// persisted.
type EmotionalStateChanged struct {
	Timestamp time.Time
	OldP      float64
	OldA      float64
	OldD      float64
	NewP      float64
	NewA      float64
	NewD      float64
	Trigger   string
}

// SystemResourceAlert is published by the resource gater when a monitored
// resource crosses its configured threshold.
type SystemResourceAlert struct {
	Timestamp time.Time
	Resource  string
	Value     float64
	Threshold float64
	Action    string
}

// CryostasisActivated is published when the LLM is unloaded to free resources.
type CryostasisActivated struct {
	Timestamp time.Time
	Reason    string
	FreedMB   float64
}

// CryostasisDeactivated is published when the agent wakes from hibernation.
type CryostasisDeactivated struct {
	Timestamp time.Time
	LoadTime  time.Duration
}

// UserActivityChanged is published by an ActivitySensor implementation.
type UserActivityChanged struct {
	Timestamp time.Time
	Old       string
	New       string
	AppName   string
}
