package update

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/Bayashat/zerde-bot/internal/i18n"
	"github.com/Bayashat/zerde-bot/internal/telegram"
)

// Kind is the resolved variant of one update. Exactly one is assigned
// per update, in dispatch precedence order.
type Kind int

const (
	KindNone Kind = iota
	KindCallback
	KindJoin
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindCallback:
		return "callback"
	case KindJoin:
		return "join"
	case KindCommand:
		return "command"
	default:
		return "none"
	}
}

// Context is the normalized view over one raw Telegram update. All fields
// are derived once at construction; handlers never re-probe the raw update.
type Context struct {
	Update tele.Update
	Kind   Kind

	Chat      *tele.Chat
	Sender    *tele.User
	MessageID int

	// Command path: first token of the message text with any "@botname"
	// suffix stripped, plus the remaining whitespace-split arguments.
	Command string
	Args    []string

	// Callback path.
	CallbackID   string
	CallbackData string

	// Join path.
	NewMembers []tele.User

	// ReplyTo is the message the triggering message replies to, if any.
	ReplyTo *tele.Message

	gw           telegram.Gateway
	fallbackLang string
}

// New resolves the update's variant by the fixed precedence
// callback > join > command > none and captures identity fields.
func New(upd tele.Update, gw telegram.Gateway, botName, fallbackLang string) *Context {
	c := &Context{Update: upd, gw: gw, fallbackLang: fallbackLang}

	switch {
	case upd.Callback != nil:
		c.Kind = KindCallback
		c.Sender = upd.Callback.Sender
		c.CallbackID = upd.Callback.ID
		c.CallbackData = strings.TrimSpace(upd.Callback.Data)
		if msg := upd.Callback.Message; msg != nil {
			c.Chat = msg.Chat
			c.MessageID = msg.ID
		}

	case upd.Message != nil && len(joinedUsers(upd.Message)) > 0:
		c.Kind = KindJoin
		c.Sender = upd.Message.Sender
		c.Chat = upd.Message.Chat
		c.MessageID = upd.Message.ID
		c.NewMembers = joinedUsers(upd.Message)

	case upd.Message != nil:
		c.Sender = upd.Message.Sender
		c.Chat = upd.Message.Chat
		c.MessageID = upd.Message.ID
		c.ReplyTo = upd.Message.ReplyTo
		text := upd.Message.Text
		if text == "" {
			text = upd.Message.Caption
		}
		if cmd, args, ok := parseCommand(text, botName); ok {
			c.Kind = KindCommand
			c.Command = cmd
			c.Args = args
		}
	}

	return c
}

func joinedUsers(msg *tele.Message) []tele.User {
	if len(msg.UsersJoined) > 0 {
		return msg.UsersJoined
	}
	if msg.UserJoined != nil {
		return []tele.User{*msg.UserJoined}
	}
	return nil
}

// parseCommand extracts the command key from message text. The key is the
// first whitespace-delimited token, case-sensitive, with an "@botname"
// suffix stripped when it addresses this bot.
func parseCommand(text, botName string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		mention := cmd[at+1:]
		if botName == "" || strings.EqualFold(mention, botName) {
			cmd = cmd[:at]
		}
	}
	if cmd == "/" {
		return "", nil, false
	}
	return cmd, fields[1:], true
}

// ChatID returns the resolved chat id, or 0 when no chat could be derived.
func (c *Context) ChatID() int64 {
	if c.Chat == nil {
		return 0
	}
	return c.Chat.ID
}

// SenderID returns the acting user id, or 0 when absent.
func (c *Context) SenderID() int64 {
	if c.Sender == nil {
		return 0
	}
	return c.Sender.ID
}

// Lang returns the acting user's language code, falling back to the
// configured default when the profile carries none or one without a
// translation table.
func (c *Context) Lang() string {
	if c.Sender != nil && i18n.Supported(c.Sender.LanguageCode) {
		return c.Sender.LanguageCode
	}
	return c.fallbackLang
}

// Reply sends text into the update's chat. It is a no-op for updates
// without a resolvable chat; a malformed update never escalates here.
func (c *Context) Reply(ctx context.Context, text string, opts *telegram.SendOptions) error {
	if c.Chat == nil || c.gw == nil {
		return nil
	}
	_, err := c.gw.SendMessage(ctx, c.Chat.ID, text, opts)
	return err
}
