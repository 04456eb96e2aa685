// Package chat holds the transport-neutral types exchanged between the
// Telegram adapter and the conversation engines.
package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"consultbot/internal/model"
)

var ErrUnknownAction = errors.New("unknown action")

// Kind tags an Action variant.
type Kind string

const (
	KindIgnore            Kind = "noop"
	KindLanguage          Kind = "lang"
	KindCheckSubscription Kind = "sub"
	KindPickDate          Kind = "date"
	KindBookedDate        Kind = "booked"
	KindCancel            Kind = "cancel"

	KindAdminMenu          Kind = "adm"
	KindAdminRegistrations Kind = "adm_regs"
	KindAdminDates         Kind = "adm_dates"
	KindAdminAddDate       Kind = "adm_add"
	KindAdminRemoveDate    Kind = "adm_rm"
	KindAdminSaveDates     Kind = "adm_save"
	KindAdminExport        Kind = "adm_export"
	KindAdminClear         Kind = "adm_clear"
	KindAdminClearRegs     Kind = "adm_clear_regs"
	KindAdminClearDates    Kind = "adm_clear_dates"
	KindCalendarDay        Kind = "cal"
	KindCalendarMonth      Kind = "month"
	KindRemoveDate         Kind = "rm"
	KindReplyUser          Kind = "reply"
	KindConfirmExport      Kind = "ok_export"
	KindConfirmClearRegs   Kind = "ok_clear_regs"
	KindConfirmClearDates  Kind = "ok_clear_dates"
)

// Action is a decoded button payload. Only the fields relevant to Kind are set.
type Action struct {
	Kind     Kind
	Language model.Language
	Date     string
	UserID   int64
	Year     int
	Month    int
	Page     int
}

type argShape int

const (
	argNone argShape = iota
	argLanguage
	argDate
	argUser
	argMonth
	argPage
)

var kinds = map[Kind]argShape{
	KindIgnore:             argNone,
	KindLanguage:           argLanguage,
	KindCheckSubscription:  argNone,
	KindPickDate:           argDate,
	KindBookedDate:         argDate,
	KindCancel:             argNone,
	KindAdminMenu:          argNone,
	KindAdminRegistrations: argPage,
	KindAdminDates:         argNone,
	KindAdminAddDate:       argNone,
	KindAdminRemoveDate:    argNone,
	KindAdminSaveDates:     argNone,
	KindAdminExport:        argNone,
	KindAdminClear:         argNone,
	KindAdminClearRegs:     argNone,
	KindAdminClearDates:    argNone,
	KindCalendarDay:        argDate,
	KindCalendarMonth:      argMonth,
	KindRemoveDate:         argDate,
	KindReplyUser:          argUser,
	KindConfirmExport:      argNone,
	KindConfirmClearRegs:   argNone,
	KindConfirmClearDates:  argNone,
}

// Ignore is the payload of inert buttons such as calendar headers.
func Ignore() Action {
	return Action{Kind: KindIgnore}
}

func Cancel() Action {
	return Action{Kind: KindCancel}
}

func Lang(l model.Language) Action {
	return Action{Kind: KindLanguage, Language: l}
}

func PickDate(date string) Action {
	return Action{Kind: KindPickDate, Date: date}
}

func BookedDate(date string) Action {
	return Action{Kind: KindBookedDate, Date: date}
}

func CalendarDay(date string) Action {
	return Action{Kind: KindCalendarDay, Date: date}
}

func RemoveDate(date string) Action {
	return Action{Kind: KindRemoveDate, Date: date}
}

func ReplyUser(userID int64) Action {
	return Action{Kind: KindReplyUser, UserID: userID}
}

func Registrations(page int) Action {
	return Action{Kind: KindAdminRegistrations, Page: page}
}

func Simple(kind Kind) Action {
	return Action{Kind: kind}
}

func CalendarMonth(y, m int) Action {
	return Action{Kind: KindCalendarMonth, Year: y, Month: m}
}

// Encode renders the action as a callback payload.
func (a Action) Encode() string {
	switch kinds[a.Kind] {
	case argLanguage:
		return string(a.Kind) + ":" + string(a.Language)
	case argDate:
		return string(a.Kind) + ":" + a.Date
	case argUser:
		return string(a.Kind) + ":" + strconv.FormatInt(a.UserID, 10)
	case argMonth:
		return fmt.Sprintf("%s:%d:%d", a.Kind, a.Year, a.Month)
	case argPage:
		return string(a.Kind) + ":" + strconv.Itoa(a.Page)
	}
	return string(a.Kind)
}

func (a Action) String() string {
	return a.Encode()
}

// Parse decodes a callback payload. Unknown tags and malformed arguments are
// rejected with an error wrapping ErrUnknownAction.
func Parse(data string) (Action, error) {
	tag, rest, hasArg := strings.Cut(data, ":")
	kind := Kind(tag)
	args, ok := kinds[kind]
	if !ok {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	if (args == argNone) == hasArg {
		return Action{}, fmt.Errorf("%w: bad arguments in %q", ErrUnknownAction, data)
	}

	a := Action{Kind: kind}
	switch args {
	case argLanguage:
		l, err := model.ParseLanguage(rest)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %v", ErrUnknownAction, err)
		}
		a.Language = l
	case argDate:
		if !model.ValidDate(rest) {
			return Action{}, fmt.Errorf("%w: bad date in %q", ErrUnknownAction, data)
		}
		a.Date = rest
	case argUser:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Action{}, fmt.Errorf("%w: bad user id in %q", ErrUnknownAction, data)
		}
		a.UserID = id
	case argMonth:
		ys, ms, found := strings.Cut(rest, ":")
		y, errY := strconv.Atoi(ys)
		m, errM := strconv.Atoi(ms)
		if !found || errY != nil || errM != nil || m < 1 || m > 12 || y < 2000 || y > 9999 {
			return Action{}, fmt.Errorf("%w: bad month in %q", ErrUnknownAction, data)
		}
		a.Year, a.Month = y, m
	case argPage:
		p, err := strconv.Atoi(rest)
		if err != nil || p < 0 {
			return Action{}, fmt.Errorf("%w: bad page in %q", ErrUnknownAction, data)
		}
		a.Page = p
	}
	return a, nil
}

// IsOperator reports whether the action belongs to the operator panel.
func (a Action) IsOperator() bool {
	switch a.Kind {
	case KindAdminMenu, KindAdminRegistrations, KindAdminDates, KindAdminAddDate,
		KindAdminRemoveDate, KindAdminSaveDates, KindAdminExport, KindAdminClear,
		KindAdminClearRegs, KindAdminClearDates,
		KindCalendarDay, KindCalendarMonth, KindRemoveDate, KindReplyUser,
		KindConfirmExport, KindConfirmClearRegs, KindConfirmClearDates:
		return true
	}
	return false
}
