package jobs

import (
	"errors"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/transcript"
)

// Status represents the lifecycle state of an audio transcription job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job transition")
)

// Job describes one uploaded audio file moving through transcription.
type Job struct {
	ID           string     // UUIDv4
	FilePath     string     // stored upload
	Status       Status     // current state
	Result       *Result    // set iff Status == completed
	ErrorMessage *string    // set iff Status == failed
	CreatedAt    time.Time  // creation time
	StartedAt    *time.Time // when processing started
	CompletedAt  *time.Time // set iff Status is terminal
}

// Result is the payload of a completed job.
type Result struct {
	RawText         string               `json:"raw_text"`
	CleanedText     string               `json:"cleaned_text"`
	CleaningSteps   []string             `json:"cleaning_steps"`
	Language        string               `json:"language"`
	DurationSeconds float64              `json:"duration"`
	Segments        []transcript.Segment `json:"segments"`
}

// Store defines persistence for Jobs and their lifecycle. Transition methods
// apply only from the allowed source states and return ErrInvalidTransition
// otherwise, or ErrJobNotFound for unknown ids.
type Store interface {
	CreateJob(job *Job) error
	MarkProcessing(id string, startedAt time.Time) error
	SaveResult(id string, result *Result, completedAt time.Time) error
	SaveError(id string, errMsg string, completedAt time.Time) error
	GetJob(id string) (*Job, error)
	Close() error
}

func cloneJob(j *Job) *Job {
	c := *j
	if j.Result != nil {
		r := *j.Result
		r.CleaningSteps = append([]string(nil), j.Result.CleaningSteps...)
		r.Segments = append([]transcript.Segment(nil), j.Result.Segments...)
		c.Result = &r
	}
	if j.ErrorMessage != nil {
		e := *j.ErrorMessage
		c.ErrorMessage = &e
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
