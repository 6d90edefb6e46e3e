package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/cesargomez89/vidfetch/internal/app"
	"github.com/cesargomez89/vidfetch/internal/http/dto"
	"github.com/cesargomez89/vidfetch/internal/logger"
)

type Handler struct {
	JobService *app.JobService
	Logger     *logger.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(js *app.JobService, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		JobService: js,
		Logger:     log.WithComponent("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Post("/convert", h.Convert)
	r.Get("/progress/{id}", h.Progress)
	r.Get("/download/{id}", h.Download)
	r.Post("/cancel/{id}", h.Cancel)
	r.Get("/history", h.History)
	r.Get("/history/{id}", h.HistoryEntry)
	r.Delete("/history", h.ClearHistory)
	r.Get("/ws/progress/{id}", h.ProgressStream)
	r.Get("/healthz", h.Healthz)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, dto.ErrorResponse{Error: msg})
}
