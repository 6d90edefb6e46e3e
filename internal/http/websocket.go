package httpapp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/http/dto"
)

// ProgressStream pushes the job snapshot whenever it changes and closes the
// connection once the job is terminal or unknown.
func (h *Handler) ProgressStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close messages are noticed
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(constants.WSPollInterval)
	defer ticker.Stop()

	var last dto.ProgressResponse
	first := true
	for {
		job := h.JobService.Status(id)
		snap := dto.NewProgressResponse(job)

		if first || snap != last {
			if err := conn.SetWriteDeadline(time.Now().Add(constants.WSWriteTimeout)); err != nil {
				h.Logger.Debug("Progress stream deadline failed", "job_id", id, "error", err)
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				h.Logger.Debug("Progress stream write failed", "job_id", id, "error", err)
				return
			}
			last = snap
			first = false
		}

		if job.Status.IsTerminal() || job.Status == domain.JobStatusNotFound {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status))
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(constants.WSWriteTimeout)); err != nil {
				h.Logger.Debug("Progress stream close failed", "job_id", id, "error", err)
			}
			return
		}

		select {
		case <-gone:
			return
		case <-ticker.C:
		}
	}
}
