package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/vidfetch/internal/app"
	"github.com/cesargomez89/vidfetch/internal/constants"
	"github.com/cesargomez89/vidfetch/internal/domain"
	"github.com/cesargomez89/vidfetch/internal/http/dto"
	"github.com/cesargomez89/vidfetch/internal/store"
)

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req dto.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, constants.MsgInvalidBody)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeValidationError(w, err)
		return
	}

	job, err := h.JobService.Submit(req.URL, req.Format)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQueueFull):
			h.writeError(w, http.StatusServiceUnavailable, constants.MsgQueueFull)
		default:
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				h.writeValidationError(w, err)
				return
			}
			h.Logger.Error("Failed to submit job", "error", err)
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, dto.ConvertResponse{Filename: job.ID, Status: "started"})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.writeError(w, http.StatusBadRequest, ve.Message)
		return
	}
	h.writeError(w, http.StatusBadRequest, err.Error())
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.writeJSON(w, http.StatusOK, dto.NewProgressResponse(h.JobService.Status(id)))
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.JobService.Artifact(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, constants.MsgFileNotFound)
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Evicted between probe and open
		h.writeError(w, http.StatusNotFound, constants.MsgFileNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("Failed to open artifact", "path", path, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.Logger.Error("Failed to stat artifact", "path", path, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.JobService.Cancel(id); err != nil {
		switch {
		case errors.Is(err, store.ErrJobNotFound):
			h.writeError(w, http.StatusNotFound, constants.MsgJobNotFound)
		case errors.Is(err, store.ErrJobTerminal):
			h.writeError(w, http.StatusConflict, constants.MsgJobFinished)
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "cancelled"})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := dto.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeValidationError(w, err)
		return
	}

	entries, err := h.JobService.History(limit)
	if err != nil {
		h.Logger.Error("Failed to list history", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) HistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.JobService.HistoryEntry(id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, constants.MsgJobNotFound)
			return
		}
		h.Logger.Error("Failed to get history entry", "job_id", id, "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.JobService.ClearHistory(); err != nil {
		h.Logger.Error("Failed to clear history", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "cleared"})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	stats, err := h.JobService.Stats()
	if err != nil {
		// Live jobs are still served without the archive
		h.Logger.Warn("Failed to read history stats", "error", err)
	}

	h.writeJSON(w, http.StatusOK, dto.NewHealthResponse(stats))
}
