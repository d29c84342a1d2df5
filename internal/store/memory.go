package store

import (
	"context"
	"sync"
)

type challengeKey struct {
	chatID int64
	userID int64
}

type sessionKey struct {
	chatID   int64
	targetID int64
}

type memorySession struct {
	session VoteSession
	ballots map[int64]VoteSide
}

// Memory implements ChallengeStore and VoteStore in process memory under
// one mutex, preserving the Postgres atomicity contract. Used by tests
// and as the reference semantics for the SQL implementation.
type Memory struct {
	mu         sync.Mutex
	challenges map[challengeKey]Challenge
	sessions   map[sessionKey]*memorySession
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		challenges: make(map[challengeKey]Challenge),
		sessions:   make(map[sessionKey]*memorySession),
	}
}

func (m *Memory) CreateChallenge(_ context.Context, ch Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[challengeKey{ch.ChatID, ch.UserID}] = ch
	return nil
}

func (m *Memory) GetChallenge(_ context.Context, chatID, userID int64) (Challenge, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[challengeKey{chatID, userID}]
	return ch, ok, nil
}

func (m *Memory) DeleteChallenge(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, challengeKey{chatID, userID})
	return nil
}

func (m *Memory) CreateSession(_ context.Context, s VoteSession, initiatorSide VoteSide) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{s.ChatID, s.TargetID}
	if _, exists := m.sessions[key]; exists {
		return ErrSessionExists
	}
	m.sessions[key] = &memorySession{
		session: s,
		ballots: map[int64]VoteSide{s.InitiatorID: initiatorSide},
	}
	return nil
}

func (m *Memory) GetSession(_ context.Context, chatID, targetID int64) (VoteSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionKey{chatID, targetID}]
	if !ok {
		return VoteSession{}, false, nil
	}
	return entry.session, true, nil
}

func (m *Memory) AddVote(_ context.Context, chatID, targetID, voterID int64, side VoteSide) (VoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionKey{chatID, targetID}]
	if !ok {
		return VoteResult{}, ErrNoSession
	}
	added := false
	if _, voted := entry.ballots[voterID]; !voted {
		entry.ballots[voterID] = side
		added = true
	}
	res := VoteResult{Added: added}
	for _, s := range entry.ballots {
		switch s {
		case VoteFor:
			res.VotesFor++
		case VoteAgainst:
			res.VotesAgainst++
		}
	}
	return res, nil
}

func (m *Memory) DeleteSession(_ context.Context, chatID, targetID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{chatID, targetID}
	if _, ok := m.sessions[key]; !ok {
		return false, nil
	}
	delete(m.sessions, key)
	return true, nil
}
