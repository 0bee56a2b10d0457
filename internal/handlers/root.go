package handlers

import "net/http"

// StatusResponse reports that the service is up
// swagger:model StatusResponse
type StatusResponse struct {
	// default: started
	Message string `json:"message"`
}

// NewRootHandler returns an HTTP handler reporting the service status.
// @Summary Service status
// @Tags status
// @Produce json
// @Success 200 {object} handlers.StatusResponse
// @Router / [get]
func NewRootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatusResponse{Message: "started"})
	}
}
