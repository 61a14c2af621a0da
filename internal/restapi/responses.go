package restapi

import (
	"encoding/json"
	"net/http"
	"time"
)

func (api *RestAPI) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		api.Logger.Error("failed to encode response", "error", err)
	}
}

func (api *RestAPI) now() time.Time {
	return time.Now()
}
