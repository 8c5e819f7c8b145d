package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadTaskDue = "pipeline.task.due"

type LeadTaskDuePayload struct {
	TaskID  string `json:"taskId"`
	BoardID string `json:"boardId"`
}

func NewLeadTaskDueTask(payload LeadTaskDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadTaskDue, data), nil
}

func ParseLeadTaskDuePayload(task *asynq.Task) (LeadTaskDuePayload, error) {
	var payload LeadTaskDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadTaskDuePayload{}, err
	}
	return payload, nil
}
