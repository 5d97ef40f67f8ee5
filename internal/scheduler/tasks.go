package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Periodic sweep tasks, registered on the asynq scheduler in cmd/scheduler.
const (
	TaskNormalizeWeekly    = "providers.normalize_weekly"
	TaskSLASweep           = "jobs.sla_sweep"
	TaskStartReminderSweep = "jobs.start_reminder"
)

// TaskStartReminderSend is a one-off task the sweep enqueues per scheduled
// job, deduplicated by task ID so repeated sweeps remind each job once.
const TaskStartReminderSend = "jobs.start_reminder.send"

type StartReminderPayload struct {
	JobID string `json:"jobId"`
}

func NewStartReminderTask(payload StartReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStartReminderSend, data), nil
}

func ParseStartReminderPayload(task *asynq.Task) (StartReminderPayload, error) {
	var payload StartReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StartReminderPayload{}, err
	}
	return payload, nil
}

// StartReminderTaskID dedupes reminder enqueues across sweep runs.
func StartReminderTaskID(jobID string) string {
	return fmt.Sprintf("%s:%s", TaskStartReminderSend, jobID)
}
