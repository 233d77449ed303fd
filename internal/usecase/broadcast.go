package usecase

import "github.com/pitchside/matchtracker/internal/domain/stream"

// Broadcaster publishes state deltas to every client subscribed to a match
// channel. The realtime hub implements it.
type Broadcaster interface {
	Publish(matchID string, kind stream.Kind, payload any) stream.Delta
}
