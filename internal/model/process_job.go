package model

import "time"

// ProcessJob asks the worker to (re)chunk and embed a stored document.
type ProcessJob struct {
	JobID       string    `json:"job_id"`
	DocumentID  uint      `json:"document_id"`
	RequestedAt time.Time `json:"requested_at"`
}
