package queue

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestQueueFor(t *testing.T) {
	assert.Equal(t, "critical", queueFor(1))
	assert.Equal(t, "default", queueFor(2))
	assert.Equal(t, "low", queueFor(0))
	assert.Equal(t, "low", queueFor(9))
}

func TestConvertAsynqStatus(t *testing.T) {
	done := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		info     *asynq.TaskInfo
		status   string
		progress float64
		errMsg   string
	}{
		{"pending", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStatePending}, "pending", 0, ""},
		{"scheduled", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStateScheduled}, "pending", 0, ""},
		{"active", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStateActive}, "running", 0.5, ""},
		{"completed", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStateCompleted, CompletedAt: done}, "completed", 1, ""},
		{"retry", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStateRetry, LastErr: "boom"}, "failed", 0, "boom"},
		{"archived", &asynq.TaskInfo{ID: "t1", State: asynq.TaskStateArchived, LastErr: "dead"}, "failed", 0, "dead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertAsynqStatus(tt.info)
			assert.Equal(t, "t1", got.TaskID)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.progress, got.Progress)
			assert.Equal(t, tt.errMsg, got.Error)
		})
	}
	assert.Equal(t, done, convertAsynqStatus(&asynq.TaskInfo{State: asynq.TaskStateCompleted, CompletedAt: done}).FinishedAt)
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "task_status:abc", statusKey("abc"))
}
