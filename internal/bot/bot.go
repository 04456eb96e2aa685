package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"consultbot/internal/chat"
	"consultbot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Bot receives Telegram updates and routes them to the user dialog or the
// operator panel. Each update runs in its own goroutine; updates of one user
// are processed in arrival order.
type Bot struct {
	tg       TelegramClient
	users    UserFlow
	operator OperatorFlow
	logger   *zerolog.Logger

	sem   chan struct{}
	wg    sync.WaitGroup
	mu    sync.Mutex
	tails map[int64]chan struct{} // user id -> done channel of the last queued update
}

func New(tg TelegramClient, users UserFlow, operator OperatorFlow, workers int, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if users == nil || operator == nil {
		return nil, fmt.Errorf("flows are required")
	}
	if workers <= 0 {
		workers = 16
	}
	return &Bot{
		tg:       tg,
		users:    users,
		operator: operator,
		logger:   logger,
		sem:      make(chan struct{}, workers),
		tails:    make(map[int64]chan struct{}),
	}, nil
}

// Start polls updates until ctx is done, then waits for in-flight handlers.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Bot authorized")

	defer func() {
		b.tg.StopReceivingUpdates()
		b.wg.Wait()
		b.logger.Info().Msg("Bot stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			// Chained on the receiving goroutine to keep arrival order.
			userID, hasUser := updateUser(&update)
			var prev, done chan struct{}
			if hasUser {
				prev, done = b.enqueue(userID)
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer func() {
					if done != nil {
						b.finish(userID, done)
					}
					<-b.sem
					b.wg.Done()
				}()
				if prev != nil {
					<-prev
				}
				requestID := uuid.New().String()
				l := b.logger.With().Str("request_id", requestID).Logger()
				b.handleUpdate(l.WithContext(ctx), &update)
			}(update)
		}
	}
}

// enqueue appends an update of userID to its chain. The caller waits on prev
// and closes done through finish.
func (b *Bot) enqueue(userID int64) (prev, done chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev = b.tails[userID]
	done = make(chan struct{})
	b.tails[userID] = done
	return prev, done
}

func (b *Bot) finish(userID int64, done chan struct{}) {
	b.mu.Lock()
	if b.tails[userID] == done {
		delete(b.tails, userID)
	}
	b.mu.Unlock()
	close(done)
}

func updateUser(update *tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	}
	return 0, false
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		l.Debug().
			Int64("user_id", cb.From.ID).
			Str("data", cb.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, cb)
		metrics.ObserveUpdate("callback", time.Since(start).Seconds())
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
			return
		}
		l.Debug().
			Int64("user_id", msg.From.ID).
			Str("text", msg.Text).
			Msg("Handling message")
		b.handleMessage(ctx, msg)
		metrics.ObserveUpdate("message", time.Since(start).Seconds())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.tg.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Failed to answer callback")
	}

	a, err := chat.Parse(cb.Data)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", cb.From.ID).Msg("Ignoring callback")
		return
	}

	p := profile(cb.From)
	switch {
	case a.Kind == chat.KindIgnore:
	case a.IsOperator():
		b.operator.HandleAction(ctx, p, a)
	case a.Kind == chat.KindCancel && b.operator.Captures(ctx, p.UserID):
		b.operator.HandleAction(ctx, p, a)
	default:
		b.users.HandleAction(ctx, p, a)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	p := profile(msg.From)
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.users.Start(ctx, p)
		case "admin":
			b.operator.Open(ctx, p)
		case "my":
			b.users.MyRegistration(ctx, p)
		default:
			zerolog.Ctx(ctx).Debug().Str("command", msg.Command()).Msg("Unknown command")
		}
		return
	}
	if msg.Text == "" {
		return
	}
	if b.operator.Captures(ctx, p.UserID) {
		b.operator.HandleText(ctx, p, msg.Text)
		return
	}
	b.users.HandleText(ctx, p, msg.Text)
}

func profile(u *tgbotapi.User) chat.Profile {
	return chat.Profile{
		UserID:    u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
