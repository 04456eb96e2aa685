package operator

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"consultbot/internal/chat"
	"consultbot/internal/model"
	"consultbot/internal/texts"
)

// calendarChoices builds a Monday-first month grid. Past days and padding
// cells are inert; picked days are marked.
func calendarChoices(lang model.Language, year, month int, picked []string, today time.Time) [][]chat.Choice {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	offset := int(first.Weekday())
	if offset == 0 {
		offset = 7
	}
	days := first.AddDate(0, 1, -1).Day()
	todayUTC := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	rows := [][]chat.Choice{{
		chat.Button(fmt.Sprintf("%s %d", texts.Month(lang, month), year), chat.Ignore()),
	}}

	var header []chat.Choice
	for _, wd := range texts.Weekdays(lang) {
		header = append(header, chat.Button(wd, chat.Ignore()))
	}
	rows = append(rows, header)

	day := 1
	for day <= days {
		row := make([]chat.Choice, 0, 7)
		for col := 1; col <= 7; col++ {
			if (len(rows) == 2 && col < offset) || day > days {
				row = append(row, chat.Button(" ", chat.Ignore()))
				continue
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			date := model.FormatDate(d)
			switch {
			case d.Before(todayUTC):
				row = append(row, chat.Button("·", chat.Ignore()))
			case slices.Contains(picked, date):
				row = append(row, chat.Button("✅"+strconv.Itoa(day), chat.CalendarDay(date)))
			default:
				row = append(row, chat.Button(strconv.Itoa(day), chat.CalendarDay(date)))
			}
			day++
		}
		rows = append(rows, row)
	}

	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	nav := []chat.Choice{
		chat.Button(texts.T(lang, texts.BtnPrev), chat.CalendarMonth(prev.Year(), int(prev.Month()))),
		chat.Button(texts.T(lang, texts.BtnNext), chat.CalendarMonth(next.Year(), int(next.Month()))),
	}
	// No navigation into months that are entirely in the past.
	if prev.AddDate(0, 1, -1).Before(todayUTC) {
		nav = nav[1:]
	}

	return append(rows, nav,
		[]chat.Choice{
			chat.Button(texts.T(lang, texts.BtnSave), chat.Simple(chat.KindAdminSaveDates)),
			chat.Button(texts.T(lang, texts.BtnBack), chat.Simple(chat.KindAdminMenu)),
		},
	)
}
