// Package broadcast carries activation diffs to other processes over a
// nanomsg PUB/SUB bus.
package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/logging"
	"github.com/dd0wney/cluso-synapse/pkg/metrics"
)

// Topic prefixes every frame.
const Topic = "activation.diff"

var topicPrefix = []byte(Topic + " ")

// ErrBadFrame is returned for frames that do not carry the topic prefix or
// do not decode.
var ErrBadFrame = errors.New("broadcast: malformed frame")

// Message is one activation change as seen by the publishing process.
type Message struct {
	Diff    activation.Diff   `json:"diff"`
	Active  []activation.Node `json:"activeNodes"`
	Version uint64            `json:"version"`
	At      time.Time         `json:"at"`
}

// Encode renders m as a topic-prefixed frame.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(topicPrefix)+len(body))
	frame = append(frame, topicPrefix...)
	return append(frame, body...), nil
}

// Decode parses a frame produced by Encode.
func Decode(frame []byte) (Message, error) {
	body, ok := bytes.CutPrefix(frame, topicPrefix)
	if !ok {
		return Message{}, ErrBadFrame
	}
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return m, nil
}

// Publisher owns a PUB socket.
type Publisher struct {
	mu      sync.Mutex
	sock    mangos.Socket
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewPublisher opens a PUB socket. logger and reg may be nil.
func NewPublisher(logger logging.Logger, reg *metrics.Registry) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	return &Publisher{sock: sock, logger: logging.ForComponent(logger, "broadcast"), metrics: reg}, nil
}

// Listen binds the socket, e.g. "tcp://127.0.0.1:7400".
func (p *Publisher) Listen(addr string) error {
	if err := p.sock.Listen(addr); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	p.logger.Info("broadcast listening", logging.String("addr", addr))
	return nil
}

// Publish sends m to every connected subscriber.
func (p *Publisher) Publish(m Message) error {
	frame, err := Encode(m)
	if err != nil {
		p.metrics.RecordBroadcast("error")
		return err
	}
	p.mu.Lock()
	err = p.sock.Send(frame)
	p.mu.Unlock()
	if err != nil {
		p.metrics.RecordBroadcast("error")
		return fmt.Errorf("send: %w", err)
	}
	p.metrics.RecordBroadcast("sent")
	return nil
}

// Forward publishes every update from updates until ctx is done or updates
// is closed. active is the set the first update applies to; each message
// carries the diff from the last set sent, so a skipped update is folded
// into the next one.
func (p *Publisher) Forward(ctx context.Context, active activation.Set, updates <-chan activation.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d := u.Since(active)
			if d.Empty() {
				continue
			}
			active = u.Set
			m := Message{Diff: d, Active: active.Nodes(), Version: u.Version, At: time.Now()}
			if err := p.Publish(m); err != nil {
				p.logger.Warn("broadcast failed", logging.Error(err))
			}
		}
	}
}
