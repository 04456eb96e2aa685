package booking

import (
	"consultbot/internal/chat"
	"consultbot/internal/model"
	"consultbot/internal/slots"
	"consultbot/internal/texts"
)

const datesPerRow = 2

func languageChoices() [][]chat.Choice {
	return [][]chat.Choice{{
		chat.Button("🇺🇿 O'zbekcha", chat.Lang(model.LangUz)),
		chat.Button("🇷🇺 Русский", chat.Lang(model.LangRu)),
	}}
}

func cancelChoice(lang model.Language) [][]chat.Choice {
	return [][]chat.Choice{{chat.Button(texts.T(lang, texts.BtnCancel), chat.Cancel())}}
}

// boardChoices lays the dates out two per row. Closed dates stay visible but
// answer with a notice instead of selecting.
func boardChoices(lang model.Language, board []slots.DateSlot) [][]chat.Choice {
	var rows [][]chat.Choice
	var row []chat.Choice
	for _, s := range board {
		var c chat.Choice
		if s.Open() {
			c = chat.Button("📅 "+s.Date, chat.PickDate(s.Date))
		} else {
			c = chat.Button("🔒 "+s.Date, chat.BookedDate(s.Date))
		}
		row = append(row, c)
		if len(row) == datesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return append(rows, cancelChoice(lang)...)
}
