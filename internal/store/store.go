// Package store persists the two moderation state machines' records.
// Both implementations (Postgres, in-memory) honor the same atomicity
// contract: AddVote inserts a ballot only when the voter is absent from
// both sides, in a single operation.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession is returned by AddVote when the vote session does not
	// exist (never created, or already resolved and deleted).
	ErrNoSession = errors.New("vote session not found")
	// ErrSessionExists is returned by CreateSession when an active vote
	// already targets the same user in the same chat.
	ErrSessionExists = errors.New("vote session already exists")
)

// Challenge is one pending join verification, keyed by (ChatID, UserID).
// Its absence means the candidate is resolved (verified or kicked).
type Challenge struct {
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	MessageID int       `db:"message_id"`
	CreatedAt time.Time `db:"created_at"`
	Deadline  time.Time `db:"deadline"`
}

// ChallengeStore owns verification challenge records.
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, ch Challenge) error
	GetChallenge(ctx context.Context, chatID, userID int64) (Challenge, bool, error)
	// DeleteChallenge removes the record if present; deleting an absent
	// record is not an error.
	DeleteChallenge(ctx context.Context, chatID, userID int64) error
}

// VoteSide is the direction of a ballot.
type VoteSide string

const (
	VoteFor     VoteSide = "for"
	VoteAgainst VoteSide = "against"
)

// VoteSession is one active vote, keyed by (ChatID, TargetID). TargetName
// is a display snapshot captured at creation.
type VoteSession struct {
	ChatID      int64     `db:"chat_id"`
	TargetID    int64     `db:"target_id"`
	InitiatorID int64     `db:"initiator_id"`
	TargetName  string    `db:"target_name"`
	MessageID   int       `db:"message_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// VoteResult reports one AddVote outcome. Added is false when the voter
// had already voted on either side; the counts always reflect the state
// after the attempt.
type VoteResult struct {
	Added        bool
	VotesFor     int
	VotesAgainst int
}

// VoteStore owns vote sessions and their ballots.
type VoteStore interface {
	// CreateSession stores the session with the initiator's ballot
	// pre-counted on the given side. Returns ErrSessionExists when a
	// session for (ChatID, TargetID) is already active.
	CreateSession(ctx context.Context, s VoteSession, initiatorSide VoteSide) error
	GetSession(ctx context.Context, chatID, targetID int64) (VoteSession, bool, error)
	// AddVote records the ballot unless the voter is already present on
	// either side. The check-and-insert is one atomic operation, never a
	// read-then-write sequence. Returns ErrNoSession for a dead session.
	AddVote(ctx context.Context, chatID, targetID, voterID int64, side VoteSide) (VoteResult, error)
	// DeleteSession removes the session and its ballots. The returned
	// bool reports whether this call removed it, so concurrent threshold
	// resolutions collapse to exactly one winner.
	DeleteSession(ctx context.Context, chatID, targetID int64) (bool, error)
}
