package telegram

import tele "gopkg.in/telebot.v4"

// InlineBtn describes an inline button with a raw callback payload.
type InlineBtn struct {
	Text string
	Data string
}

// InlineRow builds a markup with all buttons on a single row.
func InlineRow(buttons ...InlineBtn) *tele.ReplyMarkup {
	row := make([]tele.InlineButton, len(buttons))
	for i, b := range buttons {
		row[i] = tele.InlineButton{Text: b.Text, Data: b.Data}
	}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{row}}
}

// VerifyMarkup is the single "I am human" button of a challenge message.
func VerifyMarkup(label string, candidateID int64) *tele.ReplyMarkup {
	return InlineRow(InlineBtn{Text: label, Data: VerifyPayload(candidateID)})
}

// VoteMarkup is the ban/forgive row of a vote message.
func VoteMarkup(banLabel, forgiveLabel string, targetID int64) *tele.ReplyMarkup {
	return InlineRow(
		InlineBtn{Text: banLabel, Data: VoteBanPayload(targetID)},
		InlineBtn{Text: forgiveLabel, Data: VoteForgivePayload(targetID)},
	)
}
