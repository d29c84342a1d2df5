package telegram

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Member status values as reported by the platform.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// MemberInfo is the subset of chat member state the workflows decide on.
type MemberInfo struct {
	Status          string
	CanSendMessages bool
}

// IsPrivileged reports whether the member is a chat admin or the creator.
func (m MemberInfo) IsPrivileged() bool {
	return m.Status == StatusCreator || m.Status == StatusAdministrator
}

// SendOptions carries the optional parts of an outgoing message.
type SendOptions struct {
	Markup    *tele.ReplyMarkup
	ReplyToID int
}

// Gateway abstracts the chat platform HTTP API. Every call may fail
// transiently; callers must tolerate failure without corrupting state.
type Gateway interface {
	// SendMessage sends HTML text to the chat and returns the sent message id.
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (int, error)
	// EditMessageText replaces a message's text and markup in place.
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error
	// AnswerCallback dismisses a callback's loading state, optionally with a
	// notification or an alert.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	// RestrictMember applies the given rights to a member.
	RestrictMember(ctx context.Context, chatID, userID int64, rights tele.Rights) error
	// KickMember removes a member without a permanent block: ban immediately
	// followed by unban, so the user may re-join.
	KickMember(ctx context.Context, chatID, userID int64) error
	// MemberStatus reads the member's current status from the platform.
	MemberStatus(ctx context.Context, chatID, userID int64) (MemberInfo, error)
	// DeleteMessage is best-effort: failures are logged, never propagated.
	DeleteMessage(ctx context.Context, chatID int64, messageID int)
}

// MutedRights revokes all messaging permissions.
func MutedRights() tele.Rights {
	return tele.Rights{CanSendMessages: false}
}

// FullMemberRights restores the standard member permission set.
func FullMemberRights() tele.Rights {
	return tele.Rights{
		CanSendMessages:   true,
		CanSendAudios:     true,
		CanSendDocuments:  true,
		CanSendPhotos:     true,
		CanSendVideos:     true,
		CanSendVideoNotes: true,
		CanSendVoiceNotes: true,
		CanSendPolls:      true,
		CanSendOther:      true,
		CanAddPreviews:    true,
	}
}
