package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"grouptrip.org/internal/schedule"
)

type snapshotResponse struct {
	Marker          time.Time `json:"marker"`
	BuiltAt         time.Time `json:"builtAt"`
	BuildDurationMs int64     `json:"buildDurationMs"`
	WindowStart     string    `json:"windowStart"`
	Stops           int       `json:"stops"`
	Trips           int       `json:"trips"`
	StopTimes       int       `json:"stopTimes"`
}

func (api *RestAPI) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := api.Cache.Snapshot()
	if errors.Is(err, schedule.ErrNotInitialized) {
		api.notReadyResponse(w)
		return
	}
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendJSON(w, http.StatusOK, snapshotResponse{
		Marker:          snap.Marker,
		BuiltAt:         snap.BuiltAt,
		BuildDurationMs: snap.BuildDuration.Milliseconds(),
		WindowStart:     snap.WindowStart.Format("2006-01-02"),
		Stops:           snap.StopCount(),
		Trips:           snap.TripCount(),
		StopTimes:       snap.StopTimeCount(),
	})
}

// healthHandler reports ready once a snapshot is being served.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := api.Cache.Snapshot(); err != nil {
		api.notReadyResponse(w)
		return
	}
	api.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
