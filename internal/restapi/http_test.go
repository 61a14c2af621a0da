package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"grouptrip.org/gtfsdb"
	"grouptrip.org/internal/app"
	"grouptrip.org/internal/config"
)

var serviceDay = time.Now().UTC().Truncate(24 * time.Hour)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	for key, value := range map[string]string{
		"PLANNER_ENV":              "test",
		"PLANNER_DB_DRIVER":        "sqlite",
		"PLANNER_DB_DSN":           ":memory:",
		"PLANNER_NATS_URL":         "",
		"PLANNER_TIMEZONE":         "UTC",
		"PLANNER_REFRESH_INTERVAL": "",
		"PLANNER_PORT":             "",
		"PLANNER_LOG_LEVEL":        "",
	} {
		t.Setenv(key, value)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

// createTestApi builds an API over an in-memory store holding one bus line
// 1 -> 2 -> 3 running today from 10:00 to 10:20, plus stop 9 that no trip
// serves. When started is false the
// schedule cache is left uninitialized.
func createTestApi(t *testing.T, started bool) *RestAPI {
	t.Helper()
	application, err := app.New(testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(application.Close)

	date := serviceDay.Format("20060102")
	ctx := context.Background()
	require.NoError(t, application.Store.ReplaceAll(ctx, gtfsdb.Dataset{
		Stops: []gtfsdb.Stop{
			{ID: "1", Name: "Harbor", Lat: 47.600, Lon: -122.330},
			{ID: "2", Name: "Market", Lat: 47.610, Lon: -122.340},
			{ID: "3", Name: "Summit", Lat: 47.620, Lon: -122.320},
			{ID: "9", Name: "Pass", Lat: 48.500, Lon: -121.000},
		},
		Trips: []gtfsdb.Trip{{ID: "BUS_1@" + date, BaseTripID: "BUS_1", RouteID: "R1", ServiceDate: date}},
		StopTimes: []gtfsdb.StopTime{
			{TripID: "BUS_1", StopID: "1", ArrivalTime: 36000, DepartureTime: 36000, StopSequence: 1},
			{TripID: "BUS_1", StopID: "2", ArrivalTime: 36600, DepartureTime: 36600, StopSequence: 2},
			{TripID: "BUS_1", StopID: "3", ArrivalTime: 37200, DepartureTime: 37200, StopSequence: 3},
		},
	}, gtfsdb.ImportMetadata{FileHash: "h", FileSource: "test", ImportTime: time.Now().UnixNano()}))

	if started {
		require.NoError(t, application.Start(ctx))
	}

	api := NewRestAPI(application)
	t.Cleanup(api.Close)
	return api
}

func serve(t *testing.T, api *RestAPI, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	api.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), dst))
}

func planBody() map[string]any {
	return map[string]any{
		"destination":      map[string]any{"lat": 47.620, "lon": -122.320},
		"arrival_deadline": serviceDay.Add(10*time.Hour + 30*time.Minute).Format(time.RFC3339),
		"travelers": []map[string]any{
			{"id": "ana", "lat": 47.600, "lon": -122.330},
			{"id": "zed", "lat": 48.500, "lon": -121.000},
		},
	}
}
