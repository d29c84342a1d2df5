package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Bayashat/zerde-bot/internal/logger"
)

// Postgres implements ChallengeStore and VoteStore over sqlx.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an established connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

func (p *Postgres) CreateChallenge(ctx context.Context, ch Challenge) error {
	const q = `
		INSERT INTO verification_challenges (chat_id, user_id, message_id, created_at, deadline)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET message_id = EXCLUDED.message_id,
		    created_at = EXCLUDED.created_at,
		    deadline   = EXCLUDED.deadline`
	_, err := p.db.ExecContext(ctx, q, ch.ChatID, ch.UserID, ch.MessageID, ch.CreatedAt.UTC(), ch.Deadline.UTC())
	if err != nil {
		return fmt.Errorf("create challenge: %w", err)
	}
	return nil
}

func (p *Postgres) GetChallenge(ctx context.Context, chatID, userID int64) (Challenge, bool, error) {
	const q = `
		SELECT chat_id, user_id, message_id, created_at, deadline
		FROM verification_challenges
		WHERE chat_id = $1 AND user_id = $2`
	var ch Challenge
	if err := p.db.GetContext(ctx, &ch, q, chatID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Challenge{}, false, nil
		}
		return Challenge{}, false, fmt.Errorf("get challenge: %w", err)
	}
	return ch, true, nil
}

func (p *Postgres) DeleteChallenge(ctx context.Context, chatID, userID int64) error {
	const q = `DELETE FROM verification_challenges WHERE chat_id = $1 AND user_id = $2`
	if _, err := p.db.ExecContext(ctx, q, chatID, userID); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

func (p *Postgres) CreateSession(ctx context.Context, s VoteSession, initiatorSide VoteSide) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create vote session: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insSession = `
		INSERT INTO vote_sessions (chat_id, target_id, initiator_id, target_name, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insSession,
		s.ChatID, s.TargetID, s.InitiatorID, s.TargetName, s.MessageID, s.CreatedAt.UTC()); err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return ErrSessionExists
		}
		return fmt.Errorf("create vote session: %w", err)
	}

	const insBallot = `
		INSERT INTO vote_ballots (chat_id, target_id, voter_id, side)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insBallot, s.ChatID, s.TargetID, s.InitiatorID, string(initiatorSide)); err != nil {
		return fmt.Errorf("create vote session: initiator ballot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create vote session: commit: %w", err)
	}
	logger.Debug(ctx, "db", "vote_session.created",
		slog.Int64("chat_id", s.ChatID),
		slog.Int64("target_id", s.TargetID),
	)
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, chatID, targetID int64) (VoteSession, bool, error) {
	const q = `
		SELECT chat_id, target_id, initiator_id, target_name, message_id, created_at
		FROM vote_sessions
		WHERE chat_id = $1 AND target_id = $2`
	var s VoteSession
	if err := p.db.GetContext(ctx, &s, q, chatID, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VoteSession{}, false, nil
		}
		return VoteSession{}, false, fmt.Errorf("get vote session: %w", err)
	}
	return s, true, nil
}

// AddVote is one statement: the ballot insert and the resulting counts
// share the same snapshot, so concurrent voters can never both observe a
// pre-insert state for the same voter id.
func (p *Postgres) AddVote(ctx context.Context, chatID, targetID, voterID int64, side VoteSide) (VoteResult, error) {
	const q = `
		WITH sess AS (
			SELECT 1 FROM vote_sessions WHERE chat_id = $1 AND target_id = $2
		), attempt AS (
			INSERT INTO vote_ballots (chat_id, target_id, voter_id, side)
			SELECT $1, $2, $3, $4
			WHERE EXISTS (SELECT 1 FROM sess)
			ON CONFLICT (chat_id, target_id, voter_id) DO NOTHING
			RETURNING side
		)
		SELECT
			EXISTS (SELECT 1 FROM sess)    AS session_exists,
			EXISTS (SELECT 1 FROM attempt) AS added,
			(SELECT count(*) FROM vote_ballots WHERE chat_id = $1 AND target_id = $2 AND side = 'for')
				+ (SELECT count(*) FROM attempt WHERE side = 'for')     AS votes_for,
			(SELECT count(*) FROM vote_ballots WHERE chat_id = $1 AND target_id = $2 AND side = 'against')
				+ (SELECT count(*) FROM attempt WHERE side = 'against') AS votes_against`

	var row struct {
		SessionExists bool `db:"session_exists"`
		Added         bool `db:"added"`
		VotesFor      int  `db:"votes_for"`
		VotesAgainst  int  `db:"votes_against"`
	}
	if err := p.db.GetContext(ctx, &row, q, chatID, targetID, voterID, string(side)); err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return VoteResult{}, ErrNoSession
		}
		return VoteResult{}, fmt.Errorf("add vote: %w", err)
	}
	if !row.SessionExists {
		return VoteResult{}, ErrNoSession
	}
	return VoteResult{Added: row.Added, VotesFor: row.VotesFor, VotesAgainst: row.VotesAgainst}, nil
}

func (p *Postgres) DeleteSession(ctx context.Context, chatID, targetID int64) (bool, error) {
	const q = `DELETE FROM vote_sessions WHERE chat_id = $1 AND target_id = $2`
	res, err := p.db.ExecContext(ctx, q, chatID, targetID)
	if err != nil {
		return false, fmt.Errorf("delete vote session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete vote session: rows affected: %w", err)
	}
	return n > 0, nil
}

// PurgeExpiredSessions is storage housekeeping, not a protocol guarantee:
// sessions older than ttl are dropped so abandoned votes do not pile up.
func (p *Postgres) PurgeExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error) {
	const q = `DELETE FROM vote_sessions WHERE created_at < $1`
	res, err := p.db.ExecContext(ctx, q, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, fmt.Errorf("purge vote sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
