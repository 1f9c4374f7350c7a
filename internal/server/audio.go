package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
	"github.com/sumitiitj493-boop/vidsage-ai/internal/storage"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type uploadResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	JobID      string  `json:"job_id"`
	FileSizeMB float64 `json:"file_size_mb"`
	Timestamp  string  `json:"timestamp"`
}

// handleAudioUpload streams the "file" part to disk, creates a job and hands
// it to the queue. The body is never buffered whole.
func (svc *Service) handleAudioUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data body: "+err.Error())
		return
	}

	var saved *storage.UploadResult
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body: "+perr.Error())
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		saved, err = svc.Uploader.Save(part.FileName(), part)
		_ = part.Close()
		break
	}
	if saved == nil && err == nil {
		err = storage.ErrNoFile
	}
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrNoFile):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			svc.Log.Error("store upload", "err", err)
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	jobID, err := svc.Jobs.Create(saved.FilePath)
	if err != nil {
		_ = saved.Cleanup()
		svc.Log.Error("create job", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	job, err := svc.Jobs.Get(jobID)
	if err != nil {
		_ = saved.Cleanup()
		svc.Log.Error("load created job", "job_id", jobID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	item := jobs.WorkItem{Job: *job}
	if !svc.Cfg.Server.KeepUploads {
		item.Cleanup = saved.Cleanup
	}
	if err := svc.Queue.Enqueue(item); err != nil {
		_ = svc.Jobs.Fail(jobID, "not queued: "+err.Error())
		_ = saved.Cleanup()
		svc.Log.Warn("enqueue job", "job_id", jobID, "err", err)
		writeError(w, http.StatusServiceUnavailable, "transcription queue is unavailable, try again later")
		return
	}
	svc.Log.Info("job enqueued", "job_id", jobID, "file", saved.FileName, "size_mb", saved.FileSizeMB)

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		Message:    "File uploaded successfully. Transcription started in background.",
		JobID:      jobID,
		FileSizeMB: saved.FileSizeMB,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
	})
}

// lookupJob writes a 404 and returns nil when the path's job is unknown.
func (svc *Service) lookupJob(w http.ResponseWriter, r *http.Request) *jobs.Job {
	id := strings.TrimSpace(r.PathValue("job_id"))
	job, err := svc.Jobs.Get(id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return nil
		}
		svc.Log.Error("get job", "job_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	return job
}

type statusResponse struct {
	JobID       string      `json:"job_id"`
	Status      jobs.Status `json:"status"`
	CreatedAt   string      `json:"created_at"`
	CompletedAt *string     `json:"completed_at"`
	Error       *string     `json:"error,omitempty"`
}

func statusOf(job *jobs.Job) statusResponse {
	out := statusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UTC().Format(timestampLayout),
		Error:     job.ErrorMessage,
	}
	if job.CompletedAt != nil {
		v := job.CompletedAt.UTC().Format(timestampLayout)
		out.CompletedAt = &v
	}
	return out
}

func (svc *Service) handleAudioStatus(w http.ResponseWriter, r *http.Request) {
	job := svc.lookupJob(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, statusOf(job))
}

type resultResponse struct {
	Status  jobs.Status  `json:"status"`
	Result  *jobs.Result `json:"result,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   *string      `json:"error,omitempty"`
}

func (svc *Service) handleAudioResult(w http.ResponseWriter, r *http.Request) {
	job := svc.lookupJob(w, r)
	if job == nil {
		return
	}
	if job.Status != jobs.StatusCompleted {
		writeJSON(w, http.StatusOK, resultResponse{
			Status:  job.Status,
			Message: "Transcription not completed yet.",
			Error:   job.ErrorMessage,
		})
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{Status: job.Status, Result: job.Result})
}

func (svc *Service) handleAudioHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "audio-upload",
		"timestamp": time.Now().UTC().Format(timestampLayout),
	})
}
