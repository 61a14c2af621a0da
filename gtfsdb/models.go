package gtfsdb

// Stop represents a transit stop or platform in the GTFS feed
type Stop struct {
	ID                 string  // stop_id
	Code               string  // stop_code
	Name               string  // stop_name
	Lat                float64 // stop_lat
	Lon                float64 // stop_lon
	WheelchairBoarding int     // wheelchair_boarding
}

// Trip is one dated run of a scheduled trip. Its stop times are the raw
// stop_times rows of BaseTripID.
type Trip struct {
	ID          string // trip_id@service_date
	BaseTripID  string // GTFS trip_id
	RouteID     string // route_id
	ServiceDate string // YYYYMMDD
}

// StopTime is a raw stop_times row. Times are seconds after service-day
// midnight and may exceed 24h for after-midnight service.
type StopTime struct {
	TripID        string // trip_id
	StopID        string // stop_id
	ArrivalTime   int    // arrival_time
	DepartureTime int    // departure_time
	StopSequence  int    // stop_sequence
}

// Frequency is a headway-based service block attached to a template trip.
type Frequency struct {
	TripID      string // trip_id of the template
	StartTime   int    // start_time, seconds after midnight
	EndTime     int    // end_time, seconds after midnight (exclusive)
	HeadwaySecs int    // headway_secs
}

// ImportMetadata records the most recent import. ImportTime doubles as the
// store's change marker.
type ImportMetadata struct {
	FileHash    string
	FileSource  string
	ImportTime  int64  // unix nanoseconds
	WindowStart string // first materialized service date, YYYYMMDD
	WindowDays  int    // number of materialized service dates
}

// Dataset is a full replacement of the schedule tables.
type Dataset struct {
	Stops       []Stop
	Trips       []Trip
	StopTimes   []StopTime
	Frequencies []Frequency
}
