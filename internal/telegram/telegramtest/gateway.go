// Package telegramtest provides a recording Gateway fake for service tests.
package telegramtest

import (
	"context"
	"fmt"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/telegram"
)

// Sent captures one SendMessage call.
type Sent struct {
	ChatID    int64
	Text      string
	Markup    *tele.ReplyMarkup
	ReplyToID int
}

// Edited captures one EditMessageText call.
type Edited struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    *tele.ReplyMarkup
}

// Answered captures one AnswerCallback call.
type Answered struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Restricted captures one RestrictMember call.
type Restricted struct {
	ChatID int64
	UserID int64
	Rights tele.Rights
}

// Kicked captures one KickMember call.
type Kicked struct {
	ChatID int64
	UserID int64
}

// Deleted captures one DeleteMessage call.
type Deleted struct {
	ChatID    int64
	MessageID int
}

// Gateway records every call and replies from canned state.
type Gateway struct {
	mu sync.Mutex

	// Members maps "chatID:userID" to the status returned by MemberStatus.
	Members map[string]telegram.MemberInfo
	// SendErr, when set, fails every SendMessage call.
	SendErr error
	// MemberErr, when set, fails every MemberStatus call.
	MemberErr error

	nextMsgID int

	Sents       []Sent
	Edits       []Edited
	Answers     []Answered
	Restricts   []Restricted
	Kicks       []Kicked
	Deletes     []Deleted
	StatusReads int
}

// New returns an empty fake; all members default to plain "member" status.
func New() *Gateway {
	return &Gateway{Members: make(map[string]telegram.MemberInfo), nextMsgID: 1000}
}

func memberKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// SetMember configures the status MemberStatus returns for (chatID, userID).
func (g *Gateway) SetMember(chatID, userID int64, info telegram.MemberInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Members[memberKey(chatID, userID)] = info
}

func (g *Gateway) SendMessage(_ context.Context, chatID int64, text string, opts *telegram.SendOptions) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SendErr != nil {
		return 0, g.SendErr
	}
	s := Sent{ChatID: chatID, Text: text}
	if opts != nil {
		s.Markup = opts.Markup
		s.ReplyToID = opts.ReplyToID
	}
	g.Sents = append(g.Sents, s)
	g.nextMsgID++
	return g.nextMsgID, nil
}

func (g *Gateway) EditMessageText(_ context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Edits = append(g.Edits, Edited{ChatID: chatID, MessageID: messageID, Text: text, Markup: markup})
	return nil
}

func (g *Gateway) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Answers = append(g.Answers, Answered{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

func (g *Gateway) RestrictMember(_ context.Context, chatID, userID int64, rights tele.Rights) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Restricts = append(g.Restricts, Restricted{ChatID: chatID, UserID: userID, Rights: rights})
	return nil
}

func (g *Gateway) KickMember(_ context.Context, chatID, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Kicks = append(g.Kicks, Kicked{ChatID: chatID, UserID: userID})
	return nil
}

func (g *Gateway) MemberStatus(_ context.Context, chatID, userID int64) (telegram.MemberInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.StatusReads++
	if g.MemberErr != nil {
		return telegram.MemberInfo{}, g.MemberErr
	}
	if info, ok := g.Members[memberKey(chatID, userID)]; ok {
		return info, nil
	}
	return telegram.MemberInfo{Status: telegram.StatusMember, CanSendMessages: true}, nil
}

func (g *Gateway) DeleteMessage(_ context.Context, chatID int64, messageID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Deletes = append(g.Deletes, Deleted{ChatID: chatID, MessageID: messageID})
}

// LastSent returns the most recent SendMessage capture.
func (g *Gateway) LastSent() (Sent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Sents) == 0 {
		return Sent{}, false
	}
	return g.Sents[len(g.Sents)-1], true
}
