// Package transport defines spec.md §6's abstract chat Transport contract:
// inbound delivery into the orchestrator and outbound delivery of generated
// speech, paced by the Speech Governor. Concrete adapters (e.g.
// internal/transport/wsadapter) live outside the core and are exercised only
// by tests and cmd/ghost.
package transport

import "context"

// Transport is the abstract chat-network boundary. An implementation
// forwards inbound messages into the orchestrator (by publishing
// eventbus.MessageReceived) and delivers outbound speech (subscribed from
// eventbus.ResponseGenerated and eventbus.AutonomousMessageSent) back to the
// chat network, chunked and paced by the Speech Governor.
type Transport interface {
	// Start begins accepting inbound connections/messages and delivering
	// outbound ones. It blocks until ctx is canceled or an unrecoverable
	// error occurs.
	Start(ctx context.Context) error
	// Send delivers a single already-segmented chunk of outbound text to
	// channelID. Called once per chunk by the Speech Governor's Deliver.
	Send(ctx context.Context, channelID, chunk string) error
}
