// Package model defines the judge pipeline data types: the queue
// payload, sandbox verdicts and per-test / per-submission results.
package model

// SubmissionMessage is the queue payload produced by the submit
// endpoint and consumed by one judge worker.
type SubmissionMessage struct {
	TaskID       string `json:"task_id"`
	SubmissionID uint64 `json:"submission_id"`
	Code         string `json:"code"`
	Language     string `json:"language"`
}
