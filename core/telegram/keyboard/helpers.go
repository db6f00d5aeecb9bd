package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline button. Exactly one of Unique, URL or
// WebAppURL should be set; Unique wins only when the others are empty.
type InlineBtn struct {
	Text      string
	Unique    string
	Data      string
	URL       string
	WebAppURL string
}

// ForceReply returns a markup that forces the user to reply.
func ForceReply() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{ForceReply: true}
}

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			switch {
			case btn.URL != "":
				r[j] = tele.InlineButton{Text: btn.Text, URL: btn.URL}
			case btn.WebAppURL != "":
				r[j] = tele.InlineButton{Text: btn.Text, WebApp: &tele.WebApp{URL: btn.WebAppURL}}
			default:
				r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
			}
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}
