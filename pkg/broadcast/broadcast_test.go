package broadcast

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
)

func TestEncodeDecode(t *testing.T) {
	m := Message{
		Diff:    activation.Diff{Activated: []activation.Node{{ID: "A", Name: "Neuron A"}}, Deactivated: []string{"B"}},
		Active:  []activation.Node{{ID: "A", Name: "Neuron A"}},
		Version: 4,
	}
	frame, err := Encode(m)
	require.NoError(t, err)
	assert.True(t, len(frame) > len(Topic) && string(frame[:len(Topic)]) == Topic)

	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Version)
	assert.Equal(t, []string{"B"}, got.Diff.Deactivated)

	_, err = Decode([]byte("other.topic {}"))
	assert.ErrorIs(t, err, ErrBadFrame)
	_, err = Decode([]byte(Topic + " {not json"))
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestPublisherSubscriber(t *testing.T) {
	addr := fmt.Sprintf("inproc://synapse-%d", time.Now().UnixNano())

	p, err := NewPublisher(nil, nil)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Listen(addr))

	s, err := NewSubscriber()
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Dial(addr))

	updates := make(chan activation.Update)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go p.Forward(ctx, activation.Set{}, updates)

	received := make(chan Message, 1)
	go func() {
		m, err := s.Next(ctx)
		if err == nil {
			received <- m
		}
	}()

	// PUB drops frames until the SUB side is connected, so keep sending.
	// Each send alternates the set so Forward never sees a repeat.
	sets := []activation.Set{
		activation.NewSet([]activation.Node{{ID: "A", Name: "Neuron A"}}),
		{},
	}
	for i := 0; ; i++ {
		set := sets[i%2]
		u := activation.Update{Set: set, Version: uint64(i + 1)}
		select {
		case m := <-received:
			assert.NotZero(t, m.Version)
			if len(m.Active) == 1 {
				assert.Equal(t, "A", m.Active[0].ID)
				require.Len(t, m.Diff.Activated, 1)
			} else {
				assert.Empty(t, m.Active)
				assert.Equal(t, []string{"A"}, m.Diff.Deactivated)
			}
			return
		case updates <- u:
			time.Sleep(20 * time.Millisecond)
		case <-ctx.Done():
			t.Fatal("no message received")
		}
	}
}
