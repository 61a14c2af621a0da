package webui

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"grouptrip.org/internal/schedule"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{"snapshot", "stops", "groups", "trips", "tables"}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
}

// TableCounter reports row counts of the schedule database.
type TableCounter interface {
	TableCounts(ctx context.Context) (map[string]int, error)
}

// WebUI serves debug pages over the published snapshot and the store.
type WebUI struct {
	Cache  *schedule.Cache
	Tables TableCounter
}

func writeDebugData(w http.ResponseWriter, title string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{
		Title:     title,
		Pre:       spew.Sdump(data),
		DataTypes: dataTypes,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")

	if dataType == "tables" {
		counts, err := webUI.Tables.TableCounts(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeDebugData(w, "Schedule Database - Table Counts", counts)
		return
	}

	snap, err := webUI.Cache.Snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var data any
	var title string

	switch dataType {
	case "snapshot":
		data = map[string]any{
			"marker":         snap.Marker,
			"built_at":       snap.BuiltAt,
			"build_duration": snap.BuildDuration.String(),
			"stops":          snap.StopCount(),
			"trips":          snap.TripCount(),
			"stop_times":     snap.StopTimeCount(),
		}
		title = "Snapshot - Summary"
	case "stops":
		stops := make([]schedule.Stop, 0, snap.StopCount())
		for _, id := range snap.StopIDs() {
			stop, _ := snap.Stop(id)
			stops = append(stops, stop)
		}
		data = stops
		title = "Snapshot - Stops"
	case "groups":
		groups := make(map[string][]string)
		for _, id := range snap.StopIDs() {
			group := snap.GroupID(id)
			if _, seen := groups[group]; !seen {
				groups[group] = snap.GroupMembers(group)
			}
		}
		data = groups
		title = "Snapshot - Logical Stop Groups"
	case "trips":
		if trip := r.URL.Query().Get("trip"); trip != "" {
			data = snap.StopTimes(trip)
			title = "Snapshot - Trip " + trip
			break
		}
		data = snap.TripIDs()
		title = "Snapshot - Trips"
	default:
		data = map[string]any{
			"error": "Please use one of the following data types",
			"types": dataTypes,
		}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
