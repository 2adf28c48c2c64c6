package domain

import (
	"encoding/json"
	"time"
)

// TimeFormat is the minute-resolution timestamp layout used in the
// backing file and in API payloads.
const TimeFormat = "2006-01-02 15:04"

// Column names of the backing file header, in order. The timestamp
// column comes first, followed by the five numeric channels.
var Columns = []string{
	"timestamp_Beijing",
	"sway_speed_dps",
	"temperature_C",
	"humidity_RH",
	"pressure_hPa",
	"lux",
}

// siteZone is the fixed timezone all readings are stamped in. When the
// host has no IANA tz database, a fixed +08:00 offset is used instead.
var siteZone = loadSiteZone()

func loadSiteZone() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*60*60)
}

// SiteZone returns the fixed timezone readings are recorded in.
func SiteZone() *time.Location {
	return siteZone
}

// Reading is one sensor record. Each numeric channel is optional: nil
// means the source value was missing or unparsable. A Reading is never
// rejected for a single bad channel; only the timestamp is mandatory.
type Reading struct {
	// Timestamp is the wall-clock sample time in the site timezone,
	// minute resolution.
	Timestamp time.Time

	// SwaySpeed is the conductor sway speed in degrees per second.
	SwaySpeed *float64

	// Temperature is the ambient temperature in degrees Celsius.
	Temperature *float64

	// Humidity is the relative humidity in percent.
	Humidity *float64

	// Pressure is the barometric pressure in hPa.
	Pressure *float64

	// Lux is the illuminance in lux.
	Lux *float64
}

// Float is a convenience constructor for optional channel values.
func Float(v float64) *float64 {
	return &v
}

// ParseTimestamp parses a backing-file timestamp in the site timezone.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimeFormat, s, siteZone)
}

// FormatTimestamp renders t in the backing-file layout, converted to
// the site timezone.
func FormatTimestamp(t time.Time) string {
	return t.In(siteZone).Format(TimeFormat)
}

// Validate checks the hard requirement on a reading: a well-formed
// timestamp. Channel values are free to be nil.
func (r *Reading) Validate() error {
	if r.Timestamp.IsZero() {
		return ErrSchemaViolation.WithDetails("reading has no timestamp")
	}
	return nil
}

// readingJSON is the wire shape of a Reading, matching the backing
// file's column names so dashboards consume rows and API payloads
// interchangeably.
type readingJSON struct {
	Timestamp   string   `json:"timestamp_Beijing"`
	SwaySpeed   *float64 `json:"sway_speed_dps"`
	Temperature *float64 `json:"temperature_C"`
	Humidity    *float64 `json:"humidity_RH"`
	Pressure    *float64 `json:"pressure_hPa"`
	Lux         *float64 `json:"lux"`
}

// MarshalJSON implements json.Marshaler.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(readingJSON{
		Timestamp:   FormatTimestamp(r.Timestamp),
		SwaySpeed:   r.SwaySpeed,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		Lux:         r.Lux,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var w readingJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return ErrSchemaViolation.WithDetails("timestamp: " + w.Timestamp).WithCause(err)
	}
	r.Timestamp = ts
	r.SwaySpeed = w.SwaySpeed
	r.Temperature = w.Temperature
	r.Humidity = w.Humidity
	r.Pressure = w.Pressure
	r.Lux = w.Lux
	return nil
}
