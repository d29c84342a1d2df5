package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bayashat/zerde-bot/internal/update"
)

// EnqueueTimeoutCheck schedules a verification re-check task.
func (q *Queue) EnqueueTimeoutCheck(ctx context.Context, chatID, userID int64, messageID int, delay time.Duration) error {
	task := update.TimeoutTask{
		TaskType:  update.TaskCheckTimeout,
		ChatID:    chatID,
		UserID:    userID,
		MessageID: messageID,
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal timeout task: %w", err)
	}
	return q.EnqueueDelayed(ctx, payload, delay)
}
