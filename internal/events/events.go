// Package events fans match lifecycle notifications out to subscribers.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	TypeMatchFound   = "match_found"
	TypeMatchSettled = "match_settled"
)

type Event struct {
	Type      string    `json:"type"`
	MatchID   string    `json:"match_id"`
	GameType  string    `json:"game_type,omitempty"`
	Player1ID string    `json:"player1_id"`
	Player2ID string    `json:"player2_id"`
	Stake     int64     `json:"stake_amount"`
	WinnerID  string    `json:"winner_id,omitempty"`
	IsDraw    bool      `json:"is_draw,omitempty"`
	HouseFee  int64     `json:"house_fee,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events best-effort. Callers log failures and carry on;
// no arena state depends on delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher writes events to the global logger only.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev Event) error {
	log.Info().
		Str("event", ev.Type).
		Str("match_id", ev.MatchID).
		Str("player1_id", ev.Player1ID).
		Str("player2_id", ev.Player2ID).
		Int64("stake", ev.Stake).
		Str("winner_id", ev.WinnerID).
		Bool("is_draw", ev.IsDraw).
		Msg("arena_event")
	return nil
}

// RedisPublisher publishes JSON events on a pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of type typ were published.
func (r *Recorder) Count(typ string) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// Multi publishes to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
