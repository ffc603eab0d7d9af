package robot

// Package robot holds the dispenser state mirrored from the backend.

import (
	"strings"
	"time"
)

// Status is the connectivity status reported for the dispenser.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
	StatusBusy    Status = "BUSY"
)

// ParseStatus normalises a backend status, defaulting to OFFLINE.
func ParseStatus(raw string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusOnline:
		return StatusOnline
	case StatusBusy:
		return StatusBusy
	default:
		return StatusOffline
	}
}

// TaskStatus is the status of a dispensing task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// StatusPayload is the body of GET /robot/status and of robotStatusUpdate events.
type StatusPayload struct {
	Status string `json:"status"`
}

// TaskPayload is the body of robotTaskUpdate events.
type TaskPayload struct {
	TaskID int64      `json:"taskId,omitempty"`
	Status TaskStatus `json:"status"`
}

// State is the client-side mirror of the dispenser.
type State struct {
	Status     Status
	Dispensing bool
	LastTask   *TaskPayload
}

// ApplyStatus returns s with the connectivity status replaced.
func (s State) ApplyStatus(p StatusPayload) State {
	s.Status = ParseStatus(p.Status)
	return s
}

// ApplyTask returns s updated for a task event. PENDING starts dispensing,
// COMPLETED and FAILED stop it; any other status leaves Dispensing untouched.
func (s State) ApplyTask(p TaskPayload) State {
	task := p
	s.LastTask = &task
	switch p.Status {
	case TaskPending:
		s.Dispensing = true
	case TaskCompleted, TaskFailed:
		s.Dispensing = false
	}
	return s
}

// DispenseResult is the reply to a dispense order. Caregiver orders report OK;
// patient self-service reports the LogID of the dispensation record.
type DispenseResult struct {
	OK      bool   `json:"ok"`
	LogID   int64  `json:"logId,omitempty"`
	TaskID  int64  `json:"taskId,omitempty"`
	Message string `json:"message,omitempty"`
}

// Dispensation is one entry of the patient's intake history.
type Dispensation struct {
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	DispensedAt time.Time `json:"dispensedAt"`
	Medicine    struct {
		Name string `json:"name"`
	} `json:"medicine"`
}
