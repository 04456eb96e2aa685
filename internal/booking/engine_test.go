package booking

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"consultbot/internal/chat"
	"consultbot/internal/db"
	"consultbot/internal/events"
	"consultbot/internal/model"
	"consultbot/internal/notify"
	"consultbot/internal/session"
	"consultbot/internal/slots"
	"consultbot/internal/texts"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type oracleMock struct {
	mock.Mock
}

func (m *oracleMock) CheckMembership(ctx context.Context, userID int64) (Membership, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(Membership), args.Error(1)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []chat.Message
}

func (s *recordingSender) Send(_ context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) texts(userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.sent {
		if m.To == userID {
			out = append(out, m.Text)
		}
	}
	return out
}

func (s *recordingSender) last(t *testing.T, userID int64) chat.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].To == userID {
			return s.sent[i]
		}
	}
	t.Fatalf("no message sent to %d", userID)
	return chat.Message{}
}

type recordingRelay struct {
	mu        sync.Mutex
	messages  []chat.Message
	delivered int
}

func (r *recordingRelay) Broadcast(_ context.Context, msg chat.Message) notify.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return notify.Report{Delivered: r.delivered}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.RegistrationCreated
}

func (p *recordingPublisher) PublishJSON(eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if eventType == events.TypeRegistrationCreated {
		p.events = append(p.events, payload.(notify.RegistrationCreated))
	}
	return nil
}

type failingRegistrations struct {
	RegistrationStore
	err error
}

func (f failingRegistrations) AddRegistration(context.Context, *model.Registration) (int64, error) {
	return 0, f.err
}

type harness struct {
	eng      *Engine
	db       *db.DB
	sessions *session.Memory[Session]
	sender   *recordingSender
	relay    *recordingRelay
	oracle   *oracleMock
	events   *recordingPublisher
}

func newHarness(t *testing.T, dates ...string) *harness {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store, err := db.NewDB(filepath.Join(t.TempDir(), "bot.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, d := range dates {
		_, err := store.AddMeetingDate(ctx, d)
		require.NoError(t, err)
	}

	h := &harness{
		db:       store,
		sessions: session.NewMemory[Session](),
		sender:   &recordingSender{},
		relay:    &recordingRelay{delivered: 2},
		oracle:   &oracleMock{},
		events:   &recordingPublisher{},
	}
	h.eng = NewEngine(Deps{
		Users:         store,
		Registrations: store,
		Slots:         slots.NewResolver(store, time.Hour),
		Sessions:      h.sessions,
		Oracle:        h.oracle,
		Sender:        h.sender,
		Relay:         h.relay,
		Events:        h.events,
	}, Config{ChannelURL: "https://t.me/consult_channel"}, &logger)
	return h
}

func profile(id int64) chat.Profile {
	return chat.Profile{UserID: id, Username: "user", FirstName: "Ali"}
}

func (h *harness) state(t *testing.T, userID int64) (Session, bool) {
	t.Helper()
	sess, ok, err := h.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return sess, ok
}

// toSelectingDate drives a member through start and language choice.
func (h *harness) toSelectingDate(t *testing.T, userID int64) {
	t.Helper()
	h.oracle.On("CheckMembership", mock.Anything, userID).Return(Member, nil)
	h.eng.Start(context.Background(), profile(userID))
	h.eng.HandleAction(context.Background(), profile(userID), chat.Lang(model.LangUz))
	sess, ok := h.state(t, userID)
	require.True(t, ok)
	require.Equal(t, StateSelectingDate, sess.State)
}

func (h *harness) fill(t *testing.T, userID int64, inputs ...string) {
	t.Helper()
	for _, in := range inputs {
		h.eng.HandleText(context.Background(), profile(userID), in)
	}
}

func TestStart(t *testing.T) {
	h := newHarness(t)
	h.eng.Start(context.Background(), profile(1))

	sess, ok := h.state(t, 1)
	require.True(t, ok)
	assert.Equal(t, StateLanguageSelection, sess.State)

	msg := h.sender.last(t, 1)
	assert.Equal(t, texts.T(model.LangUz, texts.Welcome), msg.Text)
	require.Len(t, msg.Choices, 1)
	assert.Equal(t, chat.Lang(model.LangRu), msg.Choices[0][1].Action)

	u, err := h.db.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "user", u.Username)
}

func TestSubscriptionGate(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()

	h.oracle.On("CheckMembership", mock.Anything, int64(1)).Return(NotMember, nil).Twice()
	h.eng.Start(ctx, profile(1))
	h.eng.HandleAction(ctx, profile(1), chat.Lang(model.LangRu))

	sess, _ := h.state(t, 1)
	assert.Equal(t, StateWaitingForSubscription, sess.State)
	assert.Equal(t, model.LangRu, sess.Language)
	gate := h.sender.last(t, 1)
	assert.Equal(t, texts.T(model.LangRu, texts.SubscribeGate), gate.Text)
	require.Len(t, gate.Choices, 2)
	assert.Equal(t, "https://t.me/consult_channel", gate.Choices[0][0].URL)

	// Still not subscribed: gate shown again, state unchanged.
	h.eng.HandleAction(ctx, profile(1), chat.Simple(chat.KindCheckSubscription))
	sess, _ = h.state(t, 1)
	assert.Equal(t, StateWaitingForSubscription, sess.State)
	assert.Contains(t, h.sender.texts(1), texts.T(model.LangRu, texts.NotSubscribed))

	h.oracle.On("CheckMembership", mock.Anything, int64(1)).Return(Member, nil).Once()
	h.eng.HandleAction(ctx, profile(1), chat.Simple(chat.KindCheckSubscription))
	sess, _ = h.state(t, 1)
	assert.Equal(t, StateSelectingDate, sess.State)

	u, err := h.db.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, u.IsSubscribed)
	assert.Equal(t, model.LangRu, u.Language)
	h.oracle.AssertExpectations(t)
}

func TestSubscriptionGate_OracleErrorFailsClosed(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()

	h.oracle.On("CheckMembership", mock.Anything, int64(1)).Return(MembershipUnknown, errors.New("chat not found"))
	h.eng.Start(ctx, profile(1))
	h.eng.HandleAction(ctx, profile(1), chat.Lang(model.LangUz))

	sess, _ := h.state(t, 1)
	assert.Equal(t, StateWaitingForSubscription, sess.State)
	assert.Contains(t, h.sender.texts(1), texts.T(model.LangUz, texts.VerifyFailed))
}

func TestHappyPath(t *testing.T) {
	h := newHarness(t, "10.03.2030", "11.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)

	board := h.sender.last(t, 1)
	assert.Equal(t, texts.T(model.LangUz, texts.ChooseDate), board.Text)
	require.Len(t, board.Choices, 2)
	assert.Equal(t, chat.PickDate("10.03.2030"), board.Choices[0][0].Action)
	assert.Equal(t, chat.Cancel(), board.Choices[1][0].Action)

	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	sess, _ := h.state(t, 1)
	assert.Equal(t, StateEnteringFullName, sess.State)

	h.fill(t, 1, "  Ali Valiyev ", "90 123 45 67", "Toshkent, Chilonzor 5", "Inex")

	_, ok := h.state(t, 1)
	assert.False(t, ok)
	assert.Equal(t, texts.T(model.LangUz, texts.Registered,
		"10.03.2030", "Ali Valiyev", "+998901234567", "Toshkent, Chilonzor 5", "Inex"), h.sender.last(t, 1).Text)

	reg, err := h.db.GetLatestRegistration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.03.2030", reg.MeetingDate)
	assert.Equal(t, "+998901234567", reg.Phone)

	available, err := h.db.ListAvailableDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"11.03.2030"}, available)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, "user", h.events.events[0].Username)
	assert.Equal(t, "Inex", h.events.events[0].Registration.Company)

	h.eng.MyRegistration(ctx, profile(1))
	assert.Equal(t, texts.T(model.LangUz, texts.MyRegistration,
		"10.03.2030", "Ali Valiyev", "+998901234567", "Toshkent, Chilonzor 5", "Inex"), h.sender.last(t, 1).Text)
}

func TestValidationKeepsState(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))

	h.fill(t, 1, "Al")
	sess, _ := h.state(t, 1)
	assert.Equal(t, StateEnteringFullName, sess.State)
	assert.Equal(t, texts.T(model.LangUz, texts.BadFullName, 3), h.sender.last(t, 1).Text)

	h.fill(t, 1, "Ali", "+7 912 345 67 89")
	sess, _ = h.state(t, 1)
	assert.Equal(t, StateEnteringPhone, sess.State)
	assert.Equal(t, texts.T(model.LangUz, texts.BadPhone), h.sender.last(t, 1).Text)

	h.fill(t, 1, "998901234567", "Uy")
	sess, _ = h.state(t, 1)
	assert.Equal(t, StateEnteringAddress, sess.State)
	assert.Equal(t, "+998901234567", sess.Draft.Phone)

	h.fill(t, 1, "Toshkent", "X")
	sess, _ = h.state(t, 1)
	assert.Equal(t, StateEnteringCompany, sess.State)
	assert.Equal(t, texts.T(model.LangUz, texts.BadCompany, 2), h.sender.last(t, 1).Text)
}

func TestConcurrentPick_OneWinner(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)
	h.toSelectingDate(t, 2)

	var wg sync.WaitGroup
	for _, id := range []int64{1, 2} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.eng.HandleAction(ctx, profile(id), chat.PickDate("10.03.2030"))
		}()
	}
	wg.Wait()

	advanced := 0
	for _, id := range []int64{1, 2} {
		s, ok := h.state(t, id)
		require.True(t, ok)
		if s.State == StateEnteringFullName {
			advanced++
			continue
		}
		assert.Equal(t, StateSelectingDate, s.State)
		board := h.sender.last(t, id)
		assert.Equal(t, texts.T(model.LangUz, texts.AllDatesTaken), board.Text)
		require.Len(t, board.Choices, 2)
		assert.Equal(t, chat.BookedDate("10.03.2030"), board.Choices[0][0].Action)
		assert.Equal(t, chat.Cancel(), board.Choices[1][0].Action)
	}
	assert.Equal(t, 1, advanced)
}

func TestCommitConflict_LastDateKeepsDraft(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	h.fill(t, 1, "Ali Valiyev", "+998901234567", "Toshkent, Chilonzor")

	require.NoError(t, h.db.ReleaseHolds(ctx, 1))
	_, err := h.db.AddRegistration(ctx, &model.Registration{
		UserID: 2, FullName: "Vali", Phone: "+998907654321", Address: "Samarqand",
		Company: "Acme", MeetingDate: "10.03.2030",
	})
	require.NoError(t, err)

	h.fill(t, 1, "Inex")
	sess, ok := h.state(t, 1)
	require.True(t, ok)
	assert.Equal(t, StateSelectingDate, sess.State)
	assert.Equal(t, Draft{FullName: "Ali Valiyev", Phone: "+998901234567",
		Address: "Toshkent, Chilonzor", Company: "Inex"}, sess.Draft)

	board := h.sender.last(t, 1)
	assert.Equal(t, texts.T(model.LangUz, texts.AllDatesTaken), board.Text)
	assert.Equal(t, chat.BookedDate("10.03.2030"), board.Choices[0][0].Action)

	// A date added later can still be picked, which commits the kept form.
	_, err = h.db.AddMeetingDate(ctx, "12.03.2030")
	require.NoError(t, err)
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("12.03.2030"))
	_, ok = h.state(t, 1)
	assert.False(t, ok)
	reg, err := h.db.GetLatestRegistration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "12.03.2030", reg.MeetingDate)
}

func TestCommitConflictResumes(t *testing.T) {
	h := newHarness(t, "10.03.2030", "11.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	h.fill(t, 1, "Ali Valiyev", "+998901234567", "Toshkent, Chilonzor")

	// Another user books the date after the lease is gone.
	require.NoError(t, h.db.ReleaseHolds(ctx, 1))
	_, err := h.db.AddRegistration(ctx, &model.Registration{
		UserID: 2, FullName: "Vali", Phone: "+998907654321", Address: "Samarqand",
		Company: "Acme", MeetingDate: "10.03.2030",
	})
	require.NoError(t, err)

	h.fill(t, 1, "Inex")
	sess, ok := h.state(t, 1)
	require.True(t, ok)
	assert.Equal(t, StateSelectingDate, sess.State)
	assert.Empty(t, sess.Draft.Date)
	assert.Equal(t, "Inex", sess.Draft.Company)
	assert.Contains(t, h.sender.texts(1), texts.T(model.LangUz, texts.CommitConflict, "10.03.2030"))

	board := h.sender.last(t, 1)
	assert.Equal(t, chat.BookedDate("10.03.2030"), board.Choices[0][0].Action)
	assert.Equal(t, chat.PickDate("11.03.2030"), board.Choices[0][1].Action)

	h.eng.HandleAction(ctx, profile(1), chat.PickDate("11.03.2030"))
	_, ok = h.state(t, 1)
	assert.False(t, ok)

	reg, err := h.db.GetLatestRegistration(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "11.03.2030", reg.MeetingDate)
	assert.Equal(t, "Inex", reg.Company)
}

func TestSaveFailureAllowsRetry(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()
	h.toSelectingDate(t, 1)
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	h.fill(t, 1, "Ali Valiyev", "+998901234567", "Toshkent, Chilonzor")

	h.eng.Registrations = failingRegistrations{RegistrationStore: h.db, err: errors.New("disk I/O error")}
	h.fill(t, 1, "Inex")

	sess, ok := h.state(t, 1)
	require.True(t, ok)
	assert.Equal(t, StateEnteringCompany, sess.State)
	assert.Equal(t, texts.T(model.LangUz, texts.SaveFailed), h.sender.last(t, 1).Text)
	assert.Empty(t, h.events.events)

	h.eng.Registrations = h.db
	h.fill(t, 1, "Inex")
	_, ok = h.state(t, 1)
	assert.False(t, ok)
	assert.Len(t, h.events.events, 1)
}

func TestCancelFromEveryState(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()

	for state := range transitions {
		t.Run(string(state), func(t *testing.T) {
			sess := NewSession(state, model.LangRu)
			sess.Draft.FullName = "Ali"
			require.NoError(t, h.sessions.Put(ctx, 7, sess))
			require.NoError(t, h.eng.Slots.Reserve(ctx, "10.03.2030", 7))

			h.eng.HandleAction(ctx, profile(7), chat.Cancel())

			_, ok := h.state(t, 7)
			assert.False(t, ok)
			assert.Equal(t, texts.T(model.LangRu, texts.Cancelled), h.sender.last(t, 7).Text)
			held, err := h.db.ListHeldDates(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, held)
		})
	}

	h.eng.HandleAction(ctx, profile(7), chat.Cancel())
	assert.Equal(t, texts.T(model.LangUz, texts.Outdated), h.sender.last(t, 7).Text)
}

func TestStaleActions(t *testing.T) {
	h := newHarness(t, "10.03.2030")
	ctx := context.Background()

	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	assert.Equal(t, texts.T(model.LangUz, texts.Outdated), h.sender.last(t, 1).Text)

	require.NoError(t, h.sessions.Put(ctx, 1, NewSession(StateEnteringPhone, model.LangUz)))
	h.eng.HandleAction(ctx, profile(1), chat.PickDate("10.03.2030"))
	h.eng.HandleAction(ctx, profile(1), chat.Lang(model.LangRu))
	sess, _ := h.state(t, 1)
	assert.Equal(t, StateEnteringPhone, sess.State)
	assert.Equal(t, model.LangUz, sess.Language)

	h.eng.HandleAction(ctx, profile(1), chat.BookedDate("10.03.2030"))
	assert.Equal(t, texts.T(model.LangUz, texts.DateBooked, "10.03.2030"), h.sender.last(t, 1).Text)
}

func TestNoDatesEndsDialog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.oracle.On("CheckMembership", mock.Anything, int64(1)).Return(Member, nil)

	h.eng.Start(ctx, profile(1))
	h.eng.HandleAction(ctx, profile(1), chat.Lang(model.LangUz))

	_, ok := h.state(t, 1)
	assert.False(t, ok)
	assert.Equal(t, texts.T(model.LangUz, texts.NoDates), h.sender.last(t, 1).Text)
}

func TestRelayMode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.oracle.On("CheckMembership", mock.Anything, int64(1)).Return(Member, nil)
	h.eng.HandleText(ctx, profile(1), " Savolim bor ")

	require.Len(t, h.relay.messages, 1)
	msg := h.relay.messages[0]
	assert.Equal(t, texts.T(model.LangUz, texts.RelayMessage, "@user", int64(1), "Savolim bor"), msg.Text)
	assert.Equal(t, chat.ReplyUser(1), msg.Choices[0][0].Action)
	assert.Equal(t, texts.T(model.LangUz, texts.RelaySent), h.sender.last(t, 1).Text)

	h.oracle.On("CheckMembership", mock.Anything, int64(2)).Return(NotMember, nil)
	h.eng.HandleText(ctx, profile(2), "hello")
	assert.Len(t, h.relay.messages, 1)
	assert.Equal(t, texts.T(model.LangUz, texts.SubscribeGate), h.sender.last(t, 2).Text)

	h.relay.delivered = 0
	h.eng.HandleText(ctx, profile(1), "again")
	assert.Equal(t, texts.T(model.LangUz, texts.GenericError), h.sender.last(t, 1).Text)
}
