package tasks

import (
	"encoding/json"
	"fmt"
)

const (
	TypeSessionCleanup = "session_cleanup"
	TypeResetCode      = "reset_code"
)

// Task is one unit of background work carried on the task stream.
type Task struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Values flattens the task into stream fields. Empty fields are omitted.
func (t Task) Values() map[string]any {
	values := map[string]any{"type": t.Type}
	if t.UserID != "" {
		values["userId"] = t.UserID
	}
	if t.Email != "" {
		values["email"] = t.Email
	}
	if t.Code != "" {
		values["code"] = t.Code
	}
	return values
}

func decodeTask(values map[string]interface{}) (Task, error) {
	bytes, err := json.Marshal(values)
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := json.Unmarshal(bytes, &task); err != nil {
		return Task{}, err
	}
	if task.Type == "" {
		return Task{}, fmt.Errorf("task has no type")
	}
	return task, nil
}
