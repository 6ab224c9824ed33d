package operator

import (
	"encoding/json"
	"errors"
	"net/http"

	"marketwatch/internal/market"
	"marketwatch/internal/session"

	"go.uber.org/zap"
)

type listingRequest struct {
	URL string `json:"url"`
}

// Register mounts the operator API on mux.
//
//	POST /api/session/start
//	POST /api/session/stop
//	PUT  /api/listing        {"url": "..."}
//	GET  /api/status
func Register(mux *http.ServeMux, svc *Service, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger.Named("api")}

	mux.HandleFunc("POST /api/session/start", h.start)
	mux.HandleFunc("POST /api/session/stop", h.stop)
	mux.HandleFunc("PUT /api/listing", h.setListing)
	mux.HandleFunc("GET /api/status", h.status)
}

type handler struct {
	svc    *Service
	logger *zap.Logger
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Start(r.Context()); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Overview())
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Stop(); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.svc.Overview())
}

func (h *handler) setListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.SetListing(req.URL); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.logger.Info("listing url set", zap.String("url", req.URL))
	writeJSON(w, http.StatusOK, h.svc.Overview())
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Overview())
}

func statusFor(err error) int {
	var die *market.DriverInitError
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrBadListingURL):
		return http.StatusBadRequest
	case errors.As(err, &die):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Warn("operator request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
