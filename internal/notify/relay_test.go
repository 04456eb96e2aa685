package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"consultbot/internal/chat"
	"consultbot/internal/events"
	"consultbot/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   []chat.Message
	failOn map[int64]error
	done   chan struct{}
}

func (f *fakeSender) Send(_ context.Context, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done != nil {
		defer func() { f.done <- struct{}{} }()
	}
	if err := f.failOn[msg.To]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) recipients() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, m := range f.sent {
		ids = append(ids, m.To)
	}
	return ids
}

func newTestRelay(sender chat.Sender, recipients ...int64) *Relay {
	logger := zerolog.New(io.Discard)
	return NewRelay(sender, recipients, Config{RatePerSecond: 1000, Burst: 100}, &logger)
}

func TestBroadcast_IndependentFailures(t *testing.T) {
	sender := &fakeSender{failOn: map[int64]error{
		2: &chat.DeliveryError{Code: 403, Message: "Forbidden: bot was blocked by the user"},
		3: errors.New("timeout"),
	}}
	relay := newTestRelay(sender, 1, 2, 3, 4)

	rep := relay.Broadcast(context.Background(), chat.Message{Text: "hello"})
	assert.Equal(t, Report{Delivered: 2, Failed: 2}, rep)
	assert.Equal(t, []int64{1, 4}, sender.recipients())
}

func TestDeliver(t *testing.T) {
	sender := &fakeSender{failOn: map[int64]error{9: errors.New("chat not found")}}
	relay := newTestRelay(sender)

	require.NoError(t, relay.Deliver(context.Background(), chat.Message{To: 5, Text: "hi"}))
	assert.Error(t, relay.Deliver(context.Background(), chat.Message{To: 9, Text: "hi"}))
}

func TestDeliver_CancelledContext(t *testing.T) {
	sender := &fakeSender{}
	logger := zerolog.New(io.Discard)
	relay := NewRelay(sender, nil, Config{RatePerSecond: 0.001, Burst: 1}, &logger)

	require.NoError(t, relay.Deliver(context.Background(), chat.Message{To: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, relay.Deliver(ctx, chat.Message{To: 1}))
}

func TestSubscribeRegistrations(t *testing.T) {
	sender := &fakeSender{done: make(chan struct{}, 2)}
	relay := newTestRelay(sender, 100, 200)
	logger := zerolog.New(io.Discard)
	bus := events.NewEventBus(&logger)
	relay.SubscribeRegistrations(bus, time.Second)

	reg := model.Registration{
		ID: 7, UserID: 55, FullName: "Ali Valiyev", Phone: "+998901234567",
		Address: "Toshkent", Company: "Inex", MeetingDate: "25.12.2025",
	}
	require.NoError(t, bus.PublishJSON(events.TypeRegistrationCreated,
		RegistrationCreated{Registration: reg, Username: "ali", Language: model.LangRu}))

	for i := 0; i < 2; i++ {
		select {
		case <-sender.done:
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast did not reach all operators")
		}
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Text, "25.12.2025")
	assert.Contains(t, sender.sent[0].Text, "@ali")
	assert.Equal(t, chat.ReplyUser(55), sender.sent[0].Choices[0][0].Action)
}
