package booking

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"consultbot/internal/chat"
	"consultbot/internal/db"
	"consultbot/internal/events"
	"consultbot/internal/metrics"
	"consultbot/internal/model"
	"consultbot/internal/notify"
	"consultbot/internal/session"
	"consultbot/internal/slots"
	"consultbot/internal/texts"

	"github.com/rs/zerolog"
)

// Membership is the answer of the subscription oracle.
type Membership int

const (
	MembershipUnknown Membership = iota
	Member
	NotMember
)

// SubscriptionOracle tells whether a user has joined the channel.
type SubscriptionOracle interface {
	CheckMembership(ctx context.Context, userID int64) (Membership, error)
}

// UserStore persists user profiles.
type UserStore interface {
	UpsertUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	SetUserLanguage(ctx context.Context, userID int64, lang model.Language) error
	SetUserSubscribed(ctx context.Context, userID int64, subscribed bool) error
}

// RegistrationStore commits registrations.
type RegistrationStore interface {
	AddRegistration(ctx context.Context, r *model.Registration) (int64, error)
	GetLatestRegistration(ctx context.Context, userID int64) (*model.Registration, error)
}

// SlotService is the availability resolver as seen by the dialog.
type SlotService interface {
	Board(ctx context.Context, viewer int64) ([]slots.DateSlot, error)
	Reserve(ctx context.Context, date string, userID int64) error
	Release(ctx context.Context, userID int64) error
}

// OperatorRelay forwards free-form messages to operators.
type OperatorRelay interface {
	Broadcast(ctx context.Context, msg chat.Message) notify.Report
}

// Publisher emits domain events.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// Rules are the minimum lengths of the free-text fields, in characters.
type Rules struct {
	MinFullName int
	MinAddress  int
	MinCompany  int
}

// DefaultRules returns the standard field limits.
func DefaultRules() Rules {
	return Rules{MinFullName: 3, MinAddress: 5, MinCompany: 2}
}

// Config is the immutable configuration of the engine.
type Config struct {
	Rules      Rules
	ChannelURL string
}

// Deps bundles the collaborators of the engine.
type Deps struct {
	Users         UserStore
	Registrations RegistrationStore
	Slots         SlotService
	Sessions      session.Store[Session]
	Oracle        SubscriptionOracle
	Sender        chat.Sender
	Relay         OperatorRelay
	Events        Publisher
}

// Engine drives users through the registration dialog.
type Engine struct {
	Deps
	cfg    Config
	logger zerolog.Logger
}

func NewEngine(deps Deps, cfg Config, logger *zerolog.Logger) *Engine {
	def := DefaultRules()
	if cfg.Rules.MinFullName <= 0 {
		cfg.Rules.MinFullName = def.MinFullName
	}
	if cfg.Rules.MinAddress <= 0 {
		cfg.Rules.MinAddress = def.MinAddress
	}
	if cfg.Rules.MinCompany <= 0 {
		cfg.Rules.MinCompany = def.MinCompany
	}
	return &Engine{
		Deps:   deps,
		cfg:    cfg,
		logger: logger.With().Str("component", "booking").Logger(),
	}
}

func (e *Engine) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &e.logger
}

// Start opens a fresh dialog with the language choice. Any previous dialog
// of the user is discarded.
func (e *Engine) Start(ctx context.Context, p chat.Profile) {
	l := e.log(ctx)
	if err := e.Users.UpsertUser(ctx, p.User()); err != nil {
		l.Error().Err(err).Int64("user_id", p.UserID).Msg("failed to upsert user")
		e.say(ctx, p.UserID, texts.T(model.DefaultLanguage, texts.GenericError))
		return
	}
	if err := e.Slots.Release(ctx, p.UserID); err != nil {
		l.Warn().Err(err).Int64("user_id", p.UserID).Msg("failed to release holds")
	}

	sess := NewSession(StateLanguageSelection, e.userLanguage(ctx, p.UserID))
	if err := e.Sessions.Put(ctx, p.UserID, sess); err != nil {
		l.Error().Err(err).Int64("user_id", p.UserID).Msg("failed to store session")
		e.say(ctx, p.UserID, texts.T(sess.Language, texts.GenericError))
		return
	}
	e.say(ctx, p.UserID, texts.T(sess.Language, texts.Welcome), languageChoices()...)
}

// HandleAction processes a button press of a user.
func (e *Engine) HandleAction(ctx context.Context, p chat.Profile, a chat.Action) {
	sess, ok, err := e.load(ctx, p.UserID)
	if err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("failed to load session")
		e.say(ctx, p.UserID, texts.T(e.userLanguage(ctx, p.UserID), texts.GenericError))
		return
	}

	switch a.Kind {
	case chat.KindIgnore:
	case chat.KindLanguage:
		e.chooseLanguage(ctx, p, sess, ok, a.Language)
	case chat.KindCheckSubscription:
		e.checkSubscription(ctx, p, sess, ok)
	case chat.KindPickDate:
		e.pickDate(ctx, p, sess, ok, a.Date)
	case chat.KindBookedDate:
		e.say(ctx, p.UserID, texts.T(e.lang(ctx, p, sess, ok), texts.DateBooked, a.Date))
	case chat.KindCancel:
		e.cancel(ctx, p, sess, ok)
	default:
		e.outdated(ctx, p, sess, ok)
	}
}

// HandleText processes a free-text message of a user.
func (e *Engine) HandleText(ctx context.Context, p chat.Profile, text string) {
	sess, ok, err := e.load(ctx, p.UserID)
	if err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("failed to load session")
		e.say(ctx, p.UserID, texts.T(e.userLanguage(ctx, p.UserID), texts.GenericError))
		return
	}
	if !ok {
		e.relayToOperators(ctx, p, text)
		return
	}

	lang := sess.Language
	value := strings.TrimSpace(text)
	switch sess.State {
	case StateLanguageSelection:
		e.say(ctx, p.UserID, texts.T(lang, texts.ChooseLanguage), languageChoices()...)
	case StateWaitingForSubscription:
		e.say(ctx, p.UserID, texts.T(lang, texts.SubscribeGate), e.gateChoices(lang)...)
	case StateSelectingDate:
		e.say(ctx, p.UserID, texts.T(lang, texts.PickFromList))
		e.showDates(ctx, p, sess, false)
	case StateEnteringFullName:
		if utf8.RuneCountInString(value) < e.cfg.Rules.MinFullName {
			e.say(ctx, p.UserID, texts.T(lang, texts.BadFullName, e.cfg.Rules.MinFullName), cancelChoice(lang)...)
			return
		}
		sess.Draft.FullName = value
		e.advance(ctx, p, sess, StateEnteringPhone, texts.EnterPhone)
	case StateEnteringPhone:
		phone, valid := NormalizePhone(value)
		if !valid {
			e.say(ctx, p.UserID, texts.T(lang, texts.BadPhone), cancelChoice(lang)...)
			return
		}
		sess.Draft.Phone = phone
		e.advance(ctx, p, sess, StateEnteringAddress, texts.EnterAddress)
	case StateEnteringAddress:
		if utf8.RuneCountInString(value) < e.cfg.Rules.MinAddress {
			e.say(ctx, p.UserID, texts.T(lang, texts.BadAddress, e.cfg.Rules.MinAddress), cancelChoice(lang)...)
			return
		}
		sess.Draft.Address = value
		e.advance(ctx, p, sess, StateEnteringCompany, texts.EnterCompany)
	case StateEnteringCompany:
		if utf8.RuneCountInString(value) < e.cfg.Rules.MinCompany {
			e.say(ctx, p.UserID, texts.T(lang, texts.BadCompany, e.cfg.Rules.MinCompany), cancelChoice(lang)...)
			return
		}
		sess.Draft.Company = value
		e.commit(ctx, p, sess)
	}
}

// MyRegistration answers the "my registration" command.
func (e *Engine) MyRegistration(ctx context.Context, p chat.Profile) {
	lang := e.userLanguage(ctx, p.UserID)
	reg, err := e.Registrations.GetLatestRegistration(ctx, p.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			e.say(ctx, p.UserID, texts.T(lang, texts.NoRegistration))
			return
		}
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("failed to load registration")
		e.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
		return
	}
	e.say(ctx, p.UserID, texts.T(lang, texts.MyRegistration,
		reg.MeetingDate, reg.FullName, reg.Phone, reg.Address, reg.Company))
}

func (e *Engine) chooseLanguage(ctx context.Context, p chat.Profile, sess Session, ok bool, lang model.Language) {
	if ok && sess.State != StateLanguageSelection && sess.State != StateWaitingForSubscription {
		e.outdated(ctx, p, sess, ok)
		return
	}
	if err := e.Users.SetUserLanguage(ctx, p.UserID, lang); err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("failed to save language")
		e.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
		return
	}
	if !ok {
		sess = NewSession(StateLanguageSelection, lang)
	}
	sess.Language = lang
	e.gate(ctx, p, sess, false)
}

func (e *Engine) checkSubscription(ctx context.Context, p chat.Profile, sess Session, ok bool) {
	if !ok {
		// The gate shown in relay mode has no session behind it.
		sess = NewSession(StateWaitingForSubscription, e.userLanguage(ctx, p.UserID))
	} else if sess.State != StateWaitingForSubscription {
		e.outdated(ctx, p, sess, ok)
		return
	}
	e.gate(ctx, p, sess, true)
}

// gate probes channel membership. Members go straight to date selection;
// everyone else, including users whose status could not be determined,
// sees the subscription gate.
func (e *Engine) gate(ctx context.Context, p chat.Profile, sess Session, recheck bool) {
	lang := sess.Language
	switch e.probe(ctx, p.UserID) {
	case Member:
		if err := e.Users.SetUserSubscribed(ctx, p.UserID, true); err != nil {
			e.log(ctx).Warn().Err(err).Int64("user_id", p.UserID).Msg("failed to mark subscribed")
		}
		if err := sess.Advance(StateSelectingDate); err != nil {
			e.log(ctx).Error().Err(err).Msg("unexpected transition")
			return
		}
		e.showDates(ctx, p, sess, true)
		return
	case NotMember:
		if recheck {
			e.say(ctx, p.UserID, texts.T(lang, texts.NotSubscribed))
		}
	default:
		e.say(ctx, p.UserID, texts.T(lang, texts.VerifyFailed))
	}

	if err := sess.Advance(StateWaitingForSubscription); err != nil {
		e.log(ctx).Error().Err(err).Msg("unexpected transition")
		return
	}
	if !e.store(ctx, p, sess) {
		return
	}
	e.say(ctx, p.UserID, texts.T(lang, texts.SubscribeGate), e.gateChoices(lang)...)
}

func (e *Engine) probe(ctx context.Context, userID int64) Membership {
	m, err := e.Oracle.CheckMembership(ctx, userID)
	if err != nil {
		e.log(ctx).Warn().Err(err).Int64("user_id", userID).Msg("subscription check failed")
		metrics.IncSubscriptionCheck("error")
		return MembershipUnknown
	}
	switch m {
	case Member:
		metrics.IncSubscriptionCheck("member")
	case NotMember:
		metrics.IncSubscriptionCheck("not_member")
	default:
		metrics.IncSubscriptionCheck("unknown")
	}
	return m
}

// showDates renders the date board and stores sess in selecting_date.
// On first entry without any open date the dialog ends; a re-render after
// a conflict keeps the session and shows the locked board.
func (e *Engine) showDates(ctx context.Context, p chat.Profile, sess Session, first bool) {
	lang := sess.Language
	board, err := e.Slots.Board(ctx, p.UserID)
	if err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("failed to load dates")
		e.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
		return
	}

	open := 0
	for _, s := range board {
		if s.Open() {
			open++
		}
	}
	if open == 0 && first {
		e.clear(ctx, p.UserID)
		e.say(ctx, p.UserID, texts.T(lang, texts.NoDates))
		return
	}

	if !e.store(ctx, p, sess) {
		return
	}
	prompt := texts.ChooseDate
	if open == 0 {
		prompt = texts.AllDatesTaken
	}
	e.say(ctx, p.UserID, texts.T(lang, prompt), boardChoices(lang, board)...)
}

func (e *Engine) pickDate(ctx context.Context, p chat.Profile, sess Session, ok bool, date string) {
	if !ok || sess.State != StateSelectingDate {
		e.outdated(ctx, p, sess, ok)
		return
	}
	lang := sess.Language

	if err := e.Slots.Reserve(ctx, date, p.UserID); err != nil {
		if errors.Is(err, slots.ErrDateTaken) {
			metrics.IncBookingConflict("select")
			e.say(ctx, p.UserID, texts.T(lang, texts.DateTaken, date))
			e.showDates(ctx, p, sess, false)
			return
		}
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Str("date", date).Msg("failed to reserve date")
		e.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
		return
	}

	sess.Draft.Date = date
	if sess.Draft.Complete() {
		// Returning after a commit conflict: everything else is already known.
		e.commit(ctx, p, sess)
		return
	}
	e.advance(ctx, p, sess, StateEnteringFullName, texts.EnterFullName)
}

// commit persists the registration built from the draft. The store rejects
// the insert when the date was taken in the meantime.
func (e *Engine) commit(ctx context.Context, p chat.Profile, sess Session) {
	l := e.log(ctx)
	lang := sess.Language
	reg := &model.Registration{
		UserID:      p.UserID,
		FullName:    sess.Draft.FullName,
		Phone:       sess.Draft.Phone,
		Address:     sess.Draft.Address,
		Company:     sess.Draft.Company,
		MeetingDate: sess.Draft.Date,
	}

	id, err := e.Registrations.AddRegistration(ctx, reg)
	switch {
	case errors.Is(err, db.ErrDateNotAvailable):
		metrics.IncBookingConflict("commit")
		l.Info().Int64("user_id", p.UserID).Str("date", reg.MeetingDate).Msg("date taken before commit")
		if relErr := e.Slots.Release(ctx, p.UserID); relErr != nil {
			l.Warn().Err(relErr).Int64("user_id", p.UserID).Msg("failed to release holds")
		}
		sess.Draft.Date = ""
		if advErr := sess.Advance(StateSelectingDate); advErr != nil {
			l.Error().Err(advErr).Msg("unexpected transition")
			return
		}
		e.say(ctx, p.UserID, texts.T(lang, texts.CommitConflict, reg.MeetingDate))
		e.showDates(ctx, p, sess, false)
		return
	case err != nil:
		l.Error().Err(err).
			Int64("user_id", p.UserID).
			Str("date", reg.MeetingDate).
			Str("fullname", reg.FullName).
			Str("phone", reg.Phone).
			Msg("failed to save registration")
		if advErr := sess.Advance(StateEnteringCompany); advErr != nil {
			l.Error().Err(advErr).Msg("unexpected transition")
		}
		e.store(ctx, p, sess)
		e.say(ctx, p.UserID, texts.T(lang, texts.SaveFailed), cancelChoice(lang)...)
		return
	}

	if delErr := e.Sessions.Delete(ctx, p.UserID); delErr != nil {
		l.Warn().Err(delErr).Int64("user_id", p.UserID).Msg("failed to clear session")
	}
	metrics.IncRegistrationCreated()
	l.Info().Int64("registration_id", id).Int64("user_id", p.UserID).Str("date", reg.MeetingDate).Msg("registration completed")

	e.say(ctx, p.UserID, texts.T(lang, texts.Registered,
		reg.MeetingDate, reg.FullName, reg.Phone, reg.Address, reg.Company))

	if e.Events != nil {
		if pubErr := e.Events.PublishJSON(events.TypeRegistrationCreated, notify.RegistrationCreated{
			Registration: *reg,
			Username:     p.Username,
			Language:     lang,
		}); pubErr != nil {
			l.Error().Err(pubErr).Int64("registration_id", id).Msg("failed to publish registration event")
		}
	}
}

func (e *Engine) cancel(ctx context.Context, p chat.Profile, sess Session, ok bool) {
	if !ok {
		e.outdated(ctx, p, sess, ok)
		return
	}
	e.clear(ctx, p.UserID)
	metrics.IncFlowCancelled()
	e.say(ctx, p.UserID, texts.T(sess.Language, texts.Cancelled))
}

// relayToOperators forwards text written outside of any dialog. Only channel
// members may use it.
func (e *Engine) relayToOperators(ctx context.Context, p chat.Profile, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	lang := e.userLanguage(ctx, p.UserID)

	switch e.probe(ctx, p.UserID) {
	case Member:
	case NotMember:
		e.say(ctx, p.UserID, texts.T(lang, texts.SubscribeGate), e.gateChoices(lang)...)
		return
	default:
		e.say(ctx, p.UserID, texts.T(lang, texts.VerifyFailed), e.gateChoices(lang)...)
		return
	}

	name := p.FirstName
	if p.Username != "" {
		name = "@" + p.Username
	}
	rep := e.Relay.Broadcast(ctx, chat.Message{
		Text: texts.T(lang, texts.RelayMessage, name, p.UserID, text),
		Choices: [][]chat.Choice{{
			chat.Button(texts.T(lang, texts.BtnReply), chat.ReplyUser(p.UserID)),
		}},
	})
	if rep.Delivered == 0 {
		e.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
		return
	}
	e.say(ctx, p.UserID, texts.T(lang, texts.RelaySent))
}

func (e *Engine) advance(ctx context.Context, p chat.Profile, sess Session, to State, prompt texts.Key) {
	if err := sess.Advance(to); err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Msg("unexpected transition")
		return
	}
	if !e.store(ctx, p, sess) {
		return
	}
	e.say(ctx, p.UserID, texts.T(sess.Language, prompt), cancelChoice(sess.Language)...)
}

func (e *Engine) outdated(ctx context.Context, p chat.Profile, sess Session, ok bool) {
	e.say(ctx, p.UserID, texts.T(e.lang(ctx, p, sess, ok), texts.Outdated))
}

// load returns the stored session. A corrupt session is dropped and
// reported as absent.
func (e *Engine) load(ctx context.Context, userID int64) (Session, bool, error) {
	sess, ok, err := e.Sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrInvalidSession) {
		e.log(ctx).Warn().Err(err).Int64("user_id", userID).Msg("dropping invalid session")
		_ = e.Sessions.Delete(ctx, userID)
		return Session{}, false, nil
	}
	return sess, ok, err
}

func (e *Engine) store(ctx context.Context, p chat.Profile, sess Session) bool {
	if err := e.Sessions.Put(ctx, p.UserID, sess); err != nil {
		e.log(ctx).Error().Err(err).Int64("user_id", p.UserID).Str("state", string(sess.State)).Msg("failed to store session")
		e.say(ctx, p.UserID, texts.T(sess.Language, texts.GenericError))
		return false
	}
	return true
}

func (e *Engine) clear(ctx context.Context, userID int64) {
	if err := e.Sessions.Delete(ctx, userID); err != nil {
		e.log(ctx).Warn().Err(err).Int64("user_id", userID).Msg("failed to clear session")
	}
	if err := e.Slots.Release(ctx, userID); err != nil {
		e.log(ctx).Warn().Err(err).Int64("user_id", userID).Msg("failed to release holds")
	}
}

func (e *Engine) lang(ctx context.Context, p chat.Profile, sess Session, ok bool) model.Language {
	if ok {
		return sess.Language
	}
	return e.userLanguage(ctx, p.UserID)
}

func (e *Engine) userLanguage(ctx context.Context, userID int64) model.Language {
	u, err := e.Users.GetUser(ctx, userID)
	if err != nil {
		return model.DefaultLanguage
	}
	return u.Language.OrDefault()
}

func (e *Engine) say(ctx context.Context, to int64, text string, rows ...[]chat.Choice) {
	if err := e.Sender.Send(ctx, chat.Message{To: to, Text: text, Choices: rows}); err != nil {
		e.log(ctx).Warn().Err(err).Int64("user_id", to).Msg("failed to send message")
	}
}

func (e *Engine) gateChoices(lang model.Language) [][]chat.Choice {
	var rows [][]chat.Choice
	if e.cfg.ChannelURL != "" {
		rows = append(rows, []chat.Choice{chat.Link(texts.T(lang, texts.BtnSubscribe), e.cfg.ChannelURL)})
	}
	return append(rows, []chat.Choice{chat.Button(texts.T(lang, texts.BtnCheck), chat.Simple(chat.KindCheckSubscription))})
}
