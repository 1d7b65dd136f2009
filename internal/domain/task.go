package domain

import (
	"encoding/json"
	"time"
)

// TaskKind names the delayed action a task performs.
type TaskKind string

const TaskKindNotify TaskKind = "notify"

// TaskStatus enumerates the queue states of a delayed task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is a delayed action persisted with its due time so it survives restarts.
type Task struct {
	ID        string
	Kind      TaskKind
	Payload   json.RawMessage
	DueAt     time.Time
	Attempts  int
	Status    TaskStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
