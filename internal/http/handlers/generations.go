package handlers

import (
	"encoding/json"
	"net/http"

	"dispatch/internal/generation"
	"dispatch/internal/middleware"
)

type generateRequest struct {
	Payload        map[string]any `json:"payload"`
	Mode           string         `json:"mode"`
	RequestID      string         `json:"request_id"`
	ServerlessOnly bool           `json:"serverless_only"`
}

// Generate runs one generation job synchronously through the router and
// returns the normalized result. The call blocks for as long as the backend
// works, which is why the gateway's write timeout is generous.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Payload) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "payload is required")
		return
	}
	mode, err := generation.ParseMode(req.Mode)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	requestID := req.RequestID
	if requestID == "" {
		requestID = middleware.RequestIDFromContext(r.Context())
	}

	res := a.Router.Generate(r.Context(), generation.Request{
		Payload:        req.Payload,
		Mode:           mode,
		RequestID:      requestID,
		ServerlessOnly: req.ServerlessOnly,
	})
	if res == nil {
		a.error(w, http.StatusBadGateway, "bad_gateway", "no backend produced a result")
		return
	}
	a.json(w, http.StatusOK, res)
}
