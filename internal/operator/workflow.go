package operator

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultbot/internal/access"
	"consultbot/internal/chat"
	"consultbot/internal/export"
	"consultbot/internal/metrics"
	"consultbot/internal/model"
	"consultbot/internal/session"
	"consultbot/internal/texts"

	"github.com/rs/zerolog"
)

const pageSize = 20

// Store is the part of the persistence layer used by the panel.
type Store interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	AddMeetingDate(ctx context.Context, date string) (bool, error)
	ListActiveDates(ctx context.Context) ([]string, error)
	ListMeetingDates(ctx context.Context) ([]model.MeetingDate, error)
	DeleteMeetingDate(ctx context.Context, date string) (bool, error)
	ClearMeetingDates(ctx context.Context) (int64, error)
	ListRegistrations(ctx context.Context, limit int) ([]model.Registration, error)
	ListRegistrationsPage(ctx context.Context, limit, offset int) ([]model.Registration, error)
	ListRegistrationsByDate(ctx context.Context, date string) ([]model.Registration, error)
	CountRegistrations(ctx context.Context) (int, error)
	ClearRegistrations(ctx context.Context) (int64, error)
}

// Exporter renders registrations into a spreadsheet artifact.
type Exporter interface {
	Export(ctx context.Context, regs []model.Registration) (string, error)
	Remove(path string) error
}

// Replier delivers an operator's reply to a single user.
type Replier interface {
	Deliver(ctx context.Context, msg chat.Message) error
}

// Sender is the outbound transport of the panel.
type Sender interface {
	chat.Sender
	chat.DocumentSender
}

type Deps struct {
	Store    Store
	Sessions session.Store[Session]
	Access   *access.Authorizer
	Exporter Exporter
	Replier  Replier
	Sender   Sender
}

// Workflow serves operator events. Every entry point re-checks authorization.
type Workflow struct {
	Deps
	logger zerolog.Logger
	now    func() time.Time
}

func NewWorkflow(deps Deps, logger *zerolog.Logger) *Workflow {
	return &Workflow{
		Deps:   deps,
		logger: logger.With().Str("component", "operator").Logger(),
		now:    time.Now,
	}
}

func (w *Workflow) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &w.logger
}

// Captures reports whether the operator is in the middle of a panel step
// that consumes free text and cancel.
func (w *Workflow) Captures(ctx context.Context, userID int64) bool {
	if !w.Access.IsOperator(userID) {
		return false
	}
	sess, ok, err := w.Sessions.Get(ctx, userID)
	return err == nil && ok && sess.Captures()
}

// Open shows the main menu.
func (w *Workflow) Open(ctx context.Context, p chat.Profile) {
	lang := w.lang(ctx, p.UserID)
	if !w.Access.Authorize(p.UserID, "open") {
		w.say(ctx, p.UserID, texts.T(lang, texts.AccessDenied))
		return
	}
	w.showMenu(ctx, p.UserID, lang)
}

// HandleAction processes an operator button press.
func (w *Workflow) HandleAction(ctx context.Context, p chat.Profile, a chat.Action) {
	lang := w.lang(ctx, p.UserID)
	if !w.Access.Authorize(p.UserID, string(a.Kind)) {
		w.say(ctx, p.UserID, texts.T(lang, texts.AccessDenied))
		return
	}
	metrics.IncOperatorAction(string(a.Kind))

	sess, _, err := w.Sessions.Get(ctx, p.UserID)
	if err != nil {
		if !errors.Is(err, session.ErrInvalidSession) {
			w.log(ctx).Error().Err(err).Int64("operator_id", p.UserID).Msg("failed to load operator session")
			w.say(ctx, p.UserID, texts.T(lang, texts.GenericError))
			return
		}
		sess = mainMenu()
	}
	if !sess.State.Valid() {
		sess = mainMenu()
	}

	switch a.Kind {
	case chat.KindIgnore:
	case chat.KindAdminMenu, chat.KindCancel:
		w.showMenu(ctx, p.UserID, lang)
	case chat.KindAdminRegistrations:
		w.showRegistrations(ctx, p.UserID, lang, a.Page)
	case chat.KindAdminDates:
		w.showDates(ctx, p.UserID, lang)
	case chat.KindAdminAddDate:
		now := w.now()
		sess = Session{State: StateAddingDate, Year: now.Year(), Month: int(now.Month()), UpdatedAt: now}
		if w.store(ctx, p.UserID, lang, sess) {
			w.say(ctx, p.UserID, texts.T(lang, texts.PickDates), calendarChoices(lang, sess.Year, sess.Month, nil, now)...)
		}
	case chat.KindCalendarMonth:
		if sess.State != StateAddingDate {
			w.say(ctx, p.UserID, texts.T(lang, texts.Outdated))
			return
		}
		sess.Year, sess.Month = a.Year, a.Month
		if w.store(ctx, p.UserID, lang, sess) {
			w.say(ctx, p.UserID, texts.T(lang, texts.PickDates), calendarChoices(lang, a.Year, a.Month, sess.Picked, w.now())...)
		}
	case chat.KindCalendarDay:
		w.pickDay(ctx, p.UserID, lang, sess, a.Date)
	case chat.KindAdminSaveDates:
		w.saveDates(ctx, p.UserID, lang, sess)
	case chat.KindAdminRemoveDate:
		w.showRemovable(ctx, p.UserID, lang)
	case chat.KindRemoveDate:
		w.removeDate(ctx, p.UserID, lang, sess, a.Date)
	case chat.KindReplyUser:
		sess = Session{State: StateReplyingToUser, ReplyTo: a.UserID, UpdatedAt: w.now()}
		if w.store(ctx, p.UserID, lang, sess) {
			w.say(ctx, p.UserID, texts.T(lang, texts.ReplyPrompt, a.UserID),
				[]chat.Choice{chat.Button(texts.T(lang, texts.BtnCancel), chat.Cancel())})
		}
	case chat.KindAdminExport:
		w.askExport(ctx, p.UserID, lang)
	case chat.KindConfirmExport:
		w.export(ctx, p.UserID, lang)
	case chat.KindAdminClear:
		w.say(ctx, p.UserID, texts.T(lang, texts.ClearMenu),
			[]chat.Choice{chat.Button(texts.T(lang, texts.BtnClearRegs), chat.Simple(chat.KindAdminClearRegs))},
			[]chat.Choice{chat.Button(texts.T(lang, texts.BtnClearDates), chat.Simple(chat.KindAdminClearDates))},
			backRow(lang))
	case chat.KindAdminClearRegs:
		w.askClearRegistrations(ctx, p.UserID, lang)
	case chat.KindAdminClearDates:
		w.say(ctx, p.UserID, texts.T(lang, texts.ClearDatesConfirm), confirmRow(lang, chat.KindConfirmClearDates), backRow(lang))
	case chat.KindConfirmClearRegs:
		w.clearRegistrations(ctx, p.UserID, lang)
	case chat.KindConfirmClearDates:
		w.clearDates(ctx, p.UserID, lang)
	default:
		w.say(ctx, p.UserID, texts.T(lang, texts.Outdated))
	}
}

// HandleText consumes the reply text of an operator in replying_to_user.
// The state is cleared whatever the delivery outcome. Text typed while
// picking or removing dates re-prompts the current screen.
func (w *Workflow) HandleText(ctx context.Context, p chat.Profile, text string) {
	lang := w.lang(ctx, p.UserID)
	if !w.Access.Authorize(p.UserID, "text") {
		w.say(ctx, p.UserID, texts.T(lang, texts.AccessDenied))
		return
	}
	sess, ok, err := w.Sessions.Get(ctx, p.UserID)
	if err != nil || !ok {
		w.showMenu(ctx, p.UserID, lang)
		return
	}
	switch sess.State {
	case StateReplyingToUser:
	case StateAddingDate:
		w.say(ctx, p.UserID, texts.T(lang, texts.PickDates),
			calendarChoices(lang, sess.Year, sess.Month, sess.Picked, w.now())...)
		return
	case StateRemovingDate:
		w.showRemovable(ctx, p.UserID, lang)
		return
	default:
		w.showMenu(ctx, p.UserID, lang)
		return
	}
	w.store(ctx, p.UserID, lang, mainMenu())

	text = strings.TrimSpace(text)
	if text == "" {
		w.say(ctx, p.UserID, texts.T(lang, texts.ReplyEmpty))
		return
	}
	metrics.IncOperatorAction("reply")
	if err := w.Replier.Deliver(ctx, chat.Message{To: sess.ReplyTo, Text: text}); err != nil {
		w.log(ctx).Warn().Err(err).Int64("operator_id", p.UserID).Int64("user_id", sess.ReplyTo).Msg("reply not delivered")
		w.say(ctx, p.UserID, texts.T(lang, texts.ReplyFailed))
		return
	}
	w.log(ctx).Info().Int64("operator_id", p.UserID).Int64("user_id", sess.ReplyTo).Msg("reply delivered")
	w.say(ctx, p.UserID, texts.T(lang, texts.ReplySent))
}

func (w *Workflow) showMenu(ctx context.Context, to int64, lang model.Language) {
	if !w.store(ctx, to, lang, mainMenu()) {
		return
	}
	w.say(ctx, to, texts.T(lang, texts.AdminMenu),
		[]chat.Choice{chat.Button(texts.T(lang, texts.BtnRegistrations), chat.Registrations(0))},
		[]chat.Choice{chat.Button(texts.T(lang, texts.BtnDates), chat.Simple(chat.KindAdminDates))},
		[]chat.Choice{chat.Button(texts.T(lang, texts.BtnExport), chat.Simple(chat.KindAdminExport))},
		[]chat.Choice{chat.Button(texts.T(lang, texts.BtnClear), chat.Simple(chat.KindAdminClear))},
	)
}

func (w *Workflow) showRegistrations(ctx context.Context, to int64, lang model.Language, page int) {
	total, err := w.Store.CountRegistrations(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to count registrations")
		return
	}
	if total == 0 {
		w.say(ctx, to, texts.T(lang, texts.RegistrationsEmpty), backRow(lang))
		return
	}
	if last := (total - 1) / pageSize; page > last {
		page = last
	}
	regs, err := w.Store.ListRegistrationsPage(ctx, pageSize, page*pageSize)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to list registrations")
		return
	}

	start := page * pageSize
	var b strings.Builder
	b.WriteString(texts.T(lang, texts.RegistrationsPage, start+1, start+len(regs), total))
	for _, r := range regs {
		b.WriteString("\n")
		b.WriteString(texts.T(lang, texts.RegistrationLine, r.ID, r.MeetingDate, r.FullName, r.Phone, r.Company))
	}

	var nav []chat.Choice
	if page > 0 {
		nav = append(nav, chat.Button(texts.T(lang, texts.BtnPrev), chat.Registrations(page-1)))
	}
	if start+len(regs) < total {
		nav = append(nav, chat.Button(texts.T(lang, texts.BtnNext), chat.Registrations(page+1)))
	}
	rows := [][]chat.Choice{}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	w.say(ctx, to, b.String(), append(rows, backRow(lang))...)
}

// showDates lists every date with its status; booked dates name the
// registrant.
func (w *Workflow) showDates(ctx context.Context, to int64, lang model.Language) {
	dates, err := w.Store.ListMeetingDates(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to list dates")
		return
	}
	lines := make([]string, 0, len(dates))
	for _, d := range dates {
		regs, err := w.Store.ListRegistrationsByDate(ctx, d.Date)
		if err != nil {
			w.fail(ctx, to, lang, err, "failed to list registrations by date")
			return
		}
		switch {
		case len(regs) > 0:
			lines = append(lines, texts.T(lang, texts.DateLineBooked, d.Date, regs[0].FullName, regs[0].Phone))
		case !d.IsActive:
			lines = append(lines, texts.T(lang, texts.DateLineInactive, d.Date))
		default:
			lines = append(lines, texts.T(lang, texts.DateLineFree, d.Date))
		}
	}
	list := texts.T(lang, texts.NoActiveDates)
	if len(lines) > 0 {
		list = strings.Join(lines, "\n")
	}
	w.say(ctx, to, texts.T(lang, texts.DatesMenu, list),
		[]chat.Choice{
			chat.Button(texts.T(lang, texts.BtnAddDate), chat.Simple(chat.KindAdminAddDate)),
			chat.Button(texts.T(lang, texts.BtnRemoveDate), chat.Simple(chat.KindAdminRemoveDate)),
		},
		backRow(lang))
}

func (w *Workflow) pickDay(ctx context.Context, to int64, lang model.Language, sess Session, date string) {
	if sess.State != StateAddingDate {
		w.say(ctx, to, texts.T(lang, texts.Outdated))
		return
	}
	if !sess.Pick(date) {
		w.say(ctx, to, texts.T(lang, texts.DateAlreadyPicked, date))
		return
	}
	sess.UpdatedAt = w.now()
	if w.store(ctx, to, lang, sess) {
		w.say(ctx, to, texts.T(lang, texts.DateSelected, date, len(sess.Picked)),
			calendarChoices(lang, sess.Year, sess.Month, sess.Picked, w.now())...)
	}
}

func (w *Workflow) saveDates(ctx context.Context, to int64, lang model.Language, sess Session) {
	if sess.State != StateAddingDate {
		w.say(ctx, to, texts.T(lang, texts.Outdated))
		return
	}
	if len(sess.Picked) == 0 {
		w.say(ctx, to, texts.T(lang, texts.NoDatesSelected))
		return
	}

	added := 0
	for _, date := range sess.Picked {
		ok, err := w.Store.AddMeetingDate(ctx, date)
		if err != nil {
			w.log(ctx).Error().Err(err).Str("date", date).Msg("failed to add meeting date")
			continue
		}
		if ok {
			added++
		}
	}
	w.log(ctx).Info().Int64("operator_id", to).Int("added", added).Int("picked", len(sess.Picked)).Msg("meeting dates saved")
	w.say(ctx, to, texts.T(lang, texts.DatesSaved, added, len(sess.Picked)-added))
	w.showMenu(ctx, to, lang)
}

func (w *Workflow) showRemovable(ctx context.Context, to int64, lang model.Language) {
	dates, err := w.Store.ListActiveDates(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to list dates")
		return
	}
	if len(dates) == 0 {
		w.say(ctx, to, texts.T(lang, texts.NoActiveDates))
		w.showMenu(ctx, to, lang)
		return
	}
	if !w.store(ctx, to, lang, Session{State: StateRemovingDate, UpdatedAt: w.now()}) {
		return
	}
	rows := make([][]chat.Choice, 0, len(dates)+1)
	for _, d := range dates {
		rows = append(rows, []chat.Choice{chat.Button("❌ "+d, chat.RemoveDate(d))})
	}
	w.say(ctx, to, texts.T(lang, texts.RemovePrompt), append(rows, backRow(lang))...)
}

func (w *Workflow) removeDate(ctx context.Context, to int64, lang model.Language, sess Session, date string) {
	if sess.State != StateRemovingDate {
		w.say(ctx, to, texts.T(lang, texts.Outdated))
		return
	}
	removed, err := w.Store.DeleteMeetingDate(ctx, date)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to delete meeting date")
		return
	}
	if removed {
		w.log(ctx).Info().Int64("operator_id", to).Str("date", date).Msg("meeting date removed")
		w.say(ctx, to, texts.T(lang, texts.DateRemoved, date))
	}
	w.showRemovable(ctx, to, lang)
}

func (w *Workflow) askExport(ctx context.Context, to int64, lang model.Language) {
	n, err := w.Store.CountRegistrations(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to count registrations")
		return
	}
	if n == 0 {
		w.say(ctx, to, texts.T(lang, texts.NothingToExport))
		return
	}
	w.say(ctx, to, texts.T(lang, texts.ExportConfirm, n), confirmRow(lang, chat.KindConfirmExport), backRow(lang))
}

// export snapshots all registrations, sends the spreadsheet and removes the
// artifact. Registrations are kept.
func (w *Workflow) export(ctx context.Context, to int64, lang model.Language) {
	regs, err := w.Store.ListRegistrations(ctx, 0)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to list registrations")
		return
	}
	path, err := w.Exporter.Export(ctx, regs)
	if errors.Is(err, export.ErrNothingToExport) {
		w.say(ctx, to, texts.T(lang, texts.NothingToExport))
		return
	}
	if err != nil {
		w.log(ctx).Error().Err(err).Int64("operator_id", to).Msg("export failed")
		w.say(ctx, to, texts.T(lang, texts.ExportFailed))
		return
	}
	defer func() {
		if err := w.Exporter.Remove(path); err != nil {
			w.log(ctx).Warn().Err(err).Str("path", path).Msg("failed to remove export artifact")
		}
	}()

	if err := w.Sender.SendDocument(ctx, chat.Document{
		To:      to,
		Path:    path,
		Caption: texts.T(lang, texts.ExportCaption, len(regs)),
	}); err != nil {
		w.log(ctx).Error().Err(err).Int64("operator_id", to).Msg("failed to send export")
		w.say(ctx, to, texts.T(lang, texts.ExportFailed))
		return
	}
	w.log(ctx).Info().Int64("operator_id", to).Int("rows", len(regs)).Msg("registrations exported")
}

func (w *Workflow) askClearRegistrations(ctx context.Context, to int64, lang model.Language) {
	n, err := w.Store.CountRegistrations(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to count registrations")
		return
	}
	if n == 0 {
		w.say(ctx, to, texts.T(lang, texts.RegistrationsEmpty))
		return
	}
	w.say(ctx, to, texts.T(lang, texts.ClearRegsConfirm, n), confirmRow(lang, chat.KindConfirmClearRegs), backRow(lang))
}

func (w *Workflow) clearRegistrations(ctx context.Context, to int64, lang model.Language) {
	n, err := w.Store.ClearRegistrations(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to clear registrations")
		return
	}
	w.log(ctx).Warn().Int64("operator_id", to).Int64("removed", n).Msg("registrations cleared")
	w.say(ctx, to, texts.T(lang, texts.RegsCleared, n))
	w.showMenu(ctx, to, lang)
}

func (w *Workflow) clearDates(ctx context.Context, to int64, lang model.Language) {
	n, err := w.Store.ClearMeetingDates(ctx)
	if err != nil {
		w.fail(ctx, to, lang, err, "failed to clear meeting dates")
		return
	}
	w.log(ctx).Warn().Int64("operator_id", to).Int64("removed", n).Msg("meeting dates cleared")
	w.say(ctx, to, texts.T(lang, texts.DatesCleared, n))
	w.showMenu(ctx, to, lang)
}

func (w *Workflow) store(ctx context.Context, to int64, lang model.Language, sess Session) bool {
	if err := w.Sessions.Put(ctx, to, sess); err != nil {
		w.fail(ctx, to, lang, err, "failed to store operator session")
		return false
	}
	return true
}

func (w *Workflow) fail(ctx context.Context, to int64, lang model.Language, err error, msg string) {
	w.log(ctx).Error().Err(err).Int64("operator_id", to).Msg(msg)
	w.say(ctx, to, texts.T(lang, texts.GenericError))
}

func (w *Workflow) lang(ctx context.Context, userID int64) model.Language {
	u, err := w.Store.GetUser(ctx, userID)
	if err != nil {
		return model.DefaultLanguage
	}
	return u.Language.OrDefault()
}

func (w *Workflow) say(ctx context.Context, to int64, text string, rows ...[]chat.Choice) {
	if err := w.Sender.Send(ctx, chat.Message{To: to, Text: text, Choices: rows}); err != nil {
		w.log(ctx).Warn().Err(err).Int64("operator_id", to).Msg("failed to send message")
	}
}

func backRow(lang model.Language) []chat.Choice {
	return []chat.Choice{chat.Button(texts.T(lang, texts.BtnBack), chat.Simple(chat.KindAdminMenu))}
}

func confirmRow(lang model.Language, kind chat.Kind) []chat.Choice {
	return []chat.Choice{chat.Button(texts.T(lang, texts.BtnConfirm), chat.Simple(kind))}
}
