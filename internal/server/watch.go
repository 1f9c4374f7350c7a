package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sumitiitj493-boop/vidsage-ai/internal/jobs"
)

const (
	defaultWatchInterval = 500 * time.Millisecond
	watchWriteWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleAudioWatch pushes a status message each time the job changes state and
// closes the socket once the job is terminal.
func (svc *Service) handleAudioWatch(w http.ResponseWriter, r *http.Request) {
	job := svc.lookupJob(w, r)
	if job == nil {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		svc.Log.Debug("watch upgrade failed", "job_id", job.ID, "err", err)
		return
	}
	defer conn.Close()
	log := svc.Log.With("job_id", job.ID)

	// Drain client frames so close messages are noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	interval := svc.WatchInterval
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last jobs.Status
	for {
		if job.Status != last {
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(statusOf(job)); err != nil {
				log.Debug("watch write failed", "err", err)
				return
			}
			last = job.Status
		}
		if job.Status.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(watchWriteWait))
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-ticker.C:
		}
		next, err := svc.Jobs.Get(job.ID)
		if err != nil {
			log.Warn("watch lookup failed", "err", err)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "job lookup failed"),
				time.Now().Add(watchWriteWait))
			return
		}
		job = next
	}
}
