package bot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"consultbot/internal/booking"
	"consultbot/internal/chat"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegram struct {
	mock.Mock
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegram) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(cfg)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegram) StopReceivingUpdates() {
	m.Called()
}

func (m *mockTelegram) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	args := m.Called(cfg)
	return args.Get(0).(tgbotapi.ChatMember), args.Error(1)
}

func (m *mockTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "consult_bot"}
}

type call struct {
	flow   string
	method string
	userID int64
	arg    string
}

type recorder struct {
	mu       sync.Mutex
	calls    []call
	captures bool
}

func (r *recorder) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type userFlow struct{ *recorder }

func (f userFlow) Start(_ context.Context, p chat.Profile) {
	f.add(call{"user", "start", p.UserID, ""})
}

func (f userFlow) HandleAction(_ context.Context, p chat.Profile, a chat.Action) {
	f.add(call{"user", "action", p.UserID, a.Encode()})
}

func (f userFlow) HandleText(_ context.Context, p chat.Profile, text string) {
	if text == "slow" {
		time.Sleep(50 * time.Millisecond)
	}
	f.add(call{"user", "text", p.UserID, text})
}

func (f userFlow) MyRegistration(_ context.Context, p chat.Profile) {
	f.add(call{"user", "my", p.UserID, ""})
}

type operatorFlow struct{ *recorder }

func (f operatorFlow) Open(_ context.Context, p chat.Profile) {
	f.add(call{"operator", "open", p.UserID, ""})
}

func (f operatorFlow) HandleAction(_ context.Context, p chat.Profile, a chat.Action) {
	f.add(call{"operator", "action", p.UserID, a.Encode()})
}

func (f operatorFlow) HandleText(_ context.Context, p chat.Profile, text string) {
	f.add(call{"operator", "text", p.UserID, text})
}

func (f operatorFlow) Captures(context.Context, int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

func newTestBot(t *testing.T, tg *mockTelegram) (*Bot, *recorder) {
	t.Helper()
	rec := &recorder{}
	logger := zerolog.New(io.Discard)
	b, err := New(tg, userFlow{rec}, operatorFlow{rec}, 4, &logger)
	require.NoError(t, err)
	return b, rec
}

func testCtx() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}

func textUpdate(userID int64, text string, chatType string) *tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID, UserName: "ali"},
		Chat: &tgbotapi.Chat{ID: userID, Type: chatType},
	}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return &tgbotapi.Update{Message: msg}
}

func callbackUpdate(userID int64, data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID},
		Data: data,
	}}
}

func TestNew_Validation(t *testing.T) {
	logger := zerolog.New(io.Discard)
	_, err := New(nil, userFlow{&recorder{}}, operatorFlow{&recorder{}}, 1, &logger)
	assert.Error(t, err)
	_, err = New(&mockTelegram{}, nil, operatorFlow{&recorder{}}, 1, &logger)
	assert.Error(t, err)
}

func TestRouting_Commands(t *testing.T) {
	b, rec := newTestBot(t, &mockTelegram{})
	ctx := testCtx()

	b.handleUpdate(ctx, textUpdate(1, "/start", "private"))
	b.handleUpdate(ctx, textUpdate(1, "/admin", "private"))
	b.handleUpdate(ctx, textUpdate(1, "/my", "private"))
	b.handleUpdate(ctx, textUpdate(1, "/unknown", "private"))
	b.handleUpdate(ctx, textUpdate(1, "/start", "group"))

	assert.Equal(t, []call{
		{"user", "start", 1, ""},
		{"operator", "open", 1, ""},
		{"user", "my", 1, ""},
	}, rec.snapshot())
}

func TestRouting_Text(t *testing.T) {
	b, rec := newTestBot(t, &mockTelegram{})
	ctx := testCtx()

	b.handleUpdate(ctx, textUpdate(1, "Ali Valiyev", "private"))
	rec.captures = true
	b.handleUpdate(ctx, textUpdate(2, "reply text", "private"))

	assert.Equal(t, []call{
		{"user", "text", 1, "Ali Valiyev"},
		{"operator", "text", 2, "reply text"},
	}, rec.snapshot())
}

func TestRouting_Callbacks(t *testing.T) {
	tg := &mockTelegram{}
	tg.On("Request", mock.AnythingOfType("tgbotapi.CallbackConfig")).Return(&tgbotapi.APIResponse{Ok: true}, nil)
	b, rec := newTestBot(t, tg)
	ctx := testCtx()

	b.handleUpdate(ctx, callbackUpdate(1, "date:10.03.2030"))
	b.handleUpdate(ctx, callbackUpdate(1, "adm_regs:2"))
	b.handleUpdate(ctx, callbackUpdate(1, "cancel"))
	b.handleUpdate(ctx, callbackUpdate(1, "noop"))
	b.handleUpdate(ctx, callbackUpdate(1, "bogus:1"))
	rec.captures = true
	b.handleUpdate(ctx, callbackUpdate(1, "cancel"))

	assert.Equal(t, []call{
		{"user", "action", 1, "date:10.03.2030"},
		{"operator", "action", 1, "adm_regs:2"},
		{"user", "action", 1, "cancel"},
		{"operator", "action", 1, "cancel"},
	}, rec.snapshot())
	tg.AssertNumberOfCalls(t, "Request", 6)
}

func TestStart_DrainsUpdates(t *testing.T) {
	tg := &mockTelegram{}
	updates := make(chan tgbotapi.Update, 3)
	tg.On("GetUpdatesChan", mock.Anything).Return(tgbotapi.UpdatesChannel(updates))
	tg.On("StopReceivingUpdates").Return()
	b, rec := newTestBot(t, tg)

	for i := int64(1); i <= 3; i++ {
		updates <- *textUpdate(i, "hello", "private")
	}
	close(updates)

	b.Start(context.Background())

	assert.Len(t, rec.snapshot(), 3)
	tg.AssertCalled(t, "StopReceivingUpdates")
}

func TestStart_KeepsPerUserOrder(t *testing.T) {
	tg := &mockTelegram{}
	updates := make(chan tgbotapi.Update, 4)
	tg.On("GetUpdatesChan", mock.Anything).Return(tgbotapi.UpdatesChannel(updates))
	tg.On("StopReceivingUpdates").Return()
	b, rec := newTestBot(t, tg)

	for _, text := range []string{"slow", "second", "third"} {
		updates <- *textUpdate(1, text, "private")
	}
	updates <- *textUpdate(2, "other", "private")
	close(updates)

	b.Start(context.Background())

	var user1 []string
	for _, c := range rec.snapshot() {
		if c.userID == 1 {
			user1 = append(user1, c.arg)
		}
	}
	assert.Equal(t, []string{"slow", "second", "third"}, user1)
	assert.Len(t, rec.snapshot(), 4)
	assert.Empty(t, b.tails)
}

func TestSender_Keyboard(t *testing.T) {
	tg := &mockTelegram{}
	var sent tgbotapi.MessageConfig
	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).
		Run(func(args mock.Arguments) { sent = args.Get(0).(tgbotapi.MessageConfig) }).
		Return(tgbotapi.Message{}, nil)

	s := NewSender(tg)
	err := s.Send(context.Background(), chat.Message{
		To:   5,
		Text: "pick",
		Choices: [][]chat.Choice{
			{chat.Button("10.03", chat.PickDate("10.03.2030")), chat.Link("Kanal", "https://t.me/x")},
			{chat.Button("Cancel", chat.Cancel())},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), sent.ChatID)
	markup, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "date:10.03.2030", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "https://t.me/x", *markup.InlineKeyboard[0][1].URL)
	assert.Equal(t, "cancel", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestSender_DeliveryError(t *testing.T) {
	tg := &mockTelegram{}
	tg.On("Send", mock.Anything).Return(tgbotapi.Message{},
		&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"})

	err := NewSender(tg).Send(context.Background(), chat.Message{To: 5, Text: "hi"})
	de, ok := chat.AsDeliveryError(err)
	require.True(t, ok)
	assert.Equal(t, 403, de.Code)
	assert.True(t, de.Permanent())
}

func TestSender_Document(t *testing.T) {
	tg := &mockTelegram{}
	tg.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		doc, ok := c.(tgbotapi.DocumentConfig)
		return ok && doc.ChatID == 7 && doc.Caption == "report" && doc.File == tgbotapi.FilePath("/tmp/r.xlsx")
	})).Return(tgbotapi.Message{}, nil)

	err := NewSender(tg).SendDocument(context.Background(), chat.Document{To: 7, Path: "/tmp/r.xlsx", Caption: "report"})
	require.NoError(t, err)
	tg.AssertExpectations(t)
}

func TestChannelOracle(t *testing.T) {
	tests := []struct {
		status   string
		isMember bool
		want     booking.Membership
		wantErr  bool
	}{
		{status: "creator", want: booking.Member},
		{status: "administrator", want: booking.Member},
		{status: "member", want: booking.Member},
		{status: "restricted", isMember: true, want: booking.Member},
		{status: "restricted", want: booking.NotMember},
		{status: "left", want: booking.NotMember},
		{status: "kicked", want: booking.NotMember},
		{status: "weird", want: booking.MembershipUnknown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			tg := &mockTelegram{}
			tg.On("GetChatMember", tgbotapi.GetChatMemberConfig{
				ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: -100, UserID: 9},
			}).Return(tgbotapi.ChatMember{Status: tt.status, IsMember: tt.isMember}, nil)

			got, err := NewChannelOracle(tg, -100).CheckMembership(context.Background(), 9)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestChannelOracle_Error(t *testing.T) {
	tg := &mockTelegram{}
	tg.On("GetChatMember", mock.Anything).Return(tgbotapi.ChatMember{},
		&tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"})

	got, err := NewChannelOracle(tg, -100).CheckMembership(context.Background(), 9)
	assert.Equal(t, booking.MembershipUnknown, got)
	de, ok := chat.AsDeliveryError(err)
	require.True(t, ok)
	assert.Equal(t, 400, de.Code)
	assert.False(t, errors.Is(err, context.Canceled))
}
