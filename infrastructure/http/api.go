// Package http serves the REST side of the presence server.
package http

import (
	"chat-presence/domain"
	apperrors "chat-presence/errors"
	"chat-presence/observability"
	"chat-presence/services"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

const maxBodySize = 64 * 1024

type API struct {
	log         *slog.Logger
	presence    services.IPresenceService
	translation services.ITranslationService
	monitor     *observability.PresenceMonitor
}

func NewAPI(log *slog.Logger, presence services.IPresenceService,
	translation services.ITranslationService, monitor *observability.PresenceMonitor) *API {
	return &API{log: log, presence: presence, translation: translation, monitor: monitor}
}

// Routes mounts the API and the websocket endpoint on a single mux.
func (a *API) Routes(ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", ws)
	mux.HandleFunc("POST /api/translate", a.handleTranslate)
	mux.HandleFunc("GET /api/presence/{userId}", a.handlePresence)
	mux.HandleFunc("POST /api/notify/{userId}", a.handleNotify)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("API is running..."))
	})
	return mux
}

func (a *API) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var request domain.TranslationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&request); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	response, err := a.translation.Translate(r.Context(), request)
	switch {
	case err == nil:
		a.writeJSON(w, http.StatusOK, response)
	case errors.Is(err, apperrors.ErrInvalidPayload), errors.Is(err, apperrors.ErrUnsupportedLanguage):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, apperrors.ErrTranslationFailed):
		a.log.Warn("Translation failed", "error", err)
		a.writeError(w, http.StatusBadGateway, err)
	default:
		a.log.Error("Translation error", "error", err)
		a.writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) handlePresence(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("userId"))
	a.writeJSON(w, http.StatusOK, a.presence.Online(user))
}

type notifyResponse struct {
	UserID    domain.UserID `json:"userId"`
	Delivered int           `json:"delivered"`
}

// handleNotify pushes the request body, as a message_received, to every device of the user.
func (a *API) handleNotify(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("userId"))
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(body) {
		a.writeError(w, http.StatusBadRequest, apperrors.ErrInvalidPayload)
		return
	}
	delivered := a.presence.Notify(user, domain.NewMessageReceived(body))
	a.writeJSON(w, http.StatusOK, notifyResponse{UserID: user, Delivered: delivered})
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.monitor.GetLatest())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Debug("Response not written", "error", err)
	}
}
