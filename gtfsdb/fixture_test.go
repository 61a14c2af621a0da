package gtfsdb

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"grouptrip.org/internal/appconf"
)

// Monday. The weekday service is removed on Wednesday 2026-10-14.
var testWindowStart = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

func testFeedFiles() map[string]string {
	return map[string]string{
		"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
GT,Group Transit,https://transit.example.org,UTC
`,
		"routes.txt": `route_id,agency_id,route_short_name,route_type
R1,GT,1,3
`,
		"stops.txt": `stop_id,stop_code,stop_name,stop_lat,stop_lon
A,100,Alpha,47.6000,-122.3300
B,200,Bravo,47.6100,-122.3200
C,300,Charlie,47.6200,-122.3100
D,400,Delta,,
`,
		"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WKDY,1,1,1,1,1,0,0,20260101,20261231
ALL,1,1,1,1,1,1,1,20260101,20261231
`,
		"calendar_dates.txt": `service_id,date,exception_type
WKDY,20261014,2
`,
		"trips.txt": `route_id,service_id,trip_id
R1,WKDY,T1
R1,ALL,BUS_DLY
`,
		"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence
T1,08:00:00,08:00:00,A,1
T1,08:10:00,08:11:00,B,2
T1,08:20:00,08:20:00,C,3
BUS_DLY,00:00:00,00:00:00,B,1
BUS_DLY,00:05:00,00:05:00,C,2
`,
		"frequencies.txt": `trip_id,start_time,end_time,headway_secs
BUS_DLY,06:00:00,07:00:00,600
`,
	}
}

// buildTestFeed zips files into an in-memory GTFS archive.
func buildTestFeed(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(strings.TrimLeft(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(NewConfig(DriverSQLite, ":memory:", appconf.Test, true))
	require.NoError(t, err, "Failed to create client")
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testImportOptions(source string) ImportOptions {
	return ImportOptions{Source: source, WindowStart: testWindowStart, Days: 7}
}
