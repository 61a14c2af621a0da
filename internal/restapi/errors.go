package restapi

import (
	"errors"
	"log/slog"
	"net/http"

	"grouptrip.org/internal/logging"
	"grouptrip.org/internal/schedule"
	"grouptrip.org/internal/search"
)

type errorResponse struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
}

func (api *RestAPI) errorResponse(w http.ResponseWriter, status int, text string) {
	api.sendJSON(w, status, errorResponse{
		Code:        status,
		CurrentTime: api.now().UnixMilli(),
		Text:        text,
	})
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "Request failed", err,
		slog.String("path", r.URL.Path))
	api.errorResponse(w, http.StatusInternalServerError, "internal server error")
}

func (api *RestAPI) badRequestResponse(w http.ResponseWriter, text string) {
	api.errorResponse(w, http.StatusBadRequest, text)
}

// notReadyResponse is sent while the first schedule snapshot is still building.
func (api *RestAPI) notReadyResponse(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "5")
	api.errorResponse(w, http.StatusServiceUnavailable, "schedule not loaded yet")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, fieldErrors map[string][]string) {
	api.sendJSON(w, http.StatusBadRequest, struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		FieldErrors: fieldErrors,
	})
}

// planErrorResponse maps errors from the planner to HTTP responses.
func (api *RestAPI) planErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *search.ValidationError
	switch {
	case errors.As(err, &validationErr):
		api.validationErrorResponse(w, validationErr.FieldErrors)
	case errors.Is(err, search.ErrInvalidRequest):
		api.badRequestResponse(w, err.Error())
	case errors.Is(err, schedule.ErrNotInitialized), errors.Is(err, search.ErrNoStops):
		api.notReadyResponse(w)
	case r.Context().Err() != nil && errors.Is(err, r.Context().Err()):
		// The client went away; nobody reads the response.
		logging.FromContext(r.Context()).Debug("plan request cancelled", slog.Any("error", err))
	default:
		api.serverErrorResponse(w, r, err)
	}
}
