// Package update normalizes raw queue payloads into a single per-update
// execution context consumed by the dispatcher and the services.
package update

import (
	"encoding/json"
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// TaskCheckTimeout marks a delayed verification re-check task.
const TaskCheckTimeout = "CHECK_TIMEOUT"

// TimeoutTask is the delayed payload enqueued on member join. It carries
// just enough to re-check and act; the live member status is authoritative.
type TimeoutTask struct {
	TaskType  string `json:"task_type"`
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	MessageID int    `json:"message_id"`
}

// Envelope is the decoded form of one queue message: either an internal
// task or a raw Telegram update, never both.
type Envelope struct {
	Task   *TimeoutTask
	Update *tele.Update
}

// Decode inspects the payload's task_type discriminator and unmarshals
// into the matching variant.
func Decode(raw []byte) (Envelope, error) {
	var probe struct {
		TaskType string `json:"task_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	if probe.TaskType != "" {
		if probe.TaskType != TaskCheckTimeout {
			return Envelope{}, fmt.Errorf("decode envelope: unknown task_type %q", probe.TaskType)
		}
		var task TimeoutTask
		if err := json.Unmarshal(raw, &task); err != nil {
			return Envelope{}, fmt.Errorf("decode timeout task: %w", err)
		}
		if task.ChatID == 0 || task.UserID == 0 {
			return Envelope{}, fmt.Errorf("decode timeout task: missing chat_id or user_id")
		}
		return Envelope{Task: &task}, nil
	}

	var upd tele.Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return Envelope{}, fmt.Errorf("decode telegram update: %w", err)
	}
	return Envelope{Update: &upd}, nil
}
