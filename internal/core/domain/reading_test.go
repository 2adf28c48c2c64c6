package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2025-08-18 23:30")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if ts.Hour() != 23 || ts.Minute() != 30 {
		t.Fatalf("ParseTimestamp = %v, want 23:30", ts)
	}
	if ts.Location() != SiteZone() {
		t.Fatalf("ParseTimestamp location = %v, want site zone", ts.Location())
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, s := range []string{"", "not a time", "2025-08-18T23:30:00Z", "2025/08/18 23:30"} {
		if _, err := ParseTimestamp(s); err == nil {
			t.Errorf("ParseTimestamp(%q) = nil error, want parse failure", s)
		}
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2025, 8, 18, 9, 0, 0, 0, SiteZone())
	got, err := ParseTimestamp(FormatTimestamp(in))
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	if !got.Equal(in) {
		t.Fatalf("round trip = %v, want %v", got, in)
	}
}

func TestReading_Validate(t *testing.T) {
	r := &Reading{}
	if err := r.Validate(); !IsDomainError(err, ErrSchemaViolation.Code) {
		t.Fatalf("Validate() = %v, want %v", err, ErrSchemaViolation)
	}

	r.Timestamp = time.Now()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestReading_MarshalJSON_NullChannels(t *testing.T) {
	r := Reading{
		Timestamp:   time.Date(2025, 8, 18, 23, 30, 0, 0, SiteZone()),
		Temperature: Float(21.5),
	}

	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(raw)

	if !strings.Contains(s, `"timestamp_Beijing":"2025-08-18 23:30"`) {
		t.Errorf("timestamp not in file layout: %s", s)
	}
	if !strings.Contains(s, `"temperature_C":21.5`) {
		t.Errorf("temperature missing: %s", s)
	}
	if !strings.Contains(s, `"lux":null`) {
		t.Errorf("absent channel should marshal as null: %s", s)
	}
}

func TestReading_UnmarshalJSON(t *testing.T) {
	var r Reading
	err := json.Unmarshal([]byte(`{
		"timestamp_Beijing": "2025-08-18 23:30",
		"sway_speed_dps": 12.5,
		"temperature_C": null,
		"humidity_RH": 61.2,
		"pressure_hPa": 1011.8,
		"lux": 0
	}`), &r)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.Temperature != nil {
		t.Errorf("Temperature = %v, want nil", *r.Temperature)
	}
	if r.SwaySpeed == nil || *r.SwaySpeed != 12.5 {
		t.Errorf("SwaySpeed = %v, want 12.5", r.SwaySpeed)
	}
	if r.Lux == nil || *r.Lux != 0 {
		t.Errorf("Lux = %v, want 0", r.Lux)
	}
}

func TestReading_UnmarshalJSON_BadTimestamp(t *testing.T) {
	var r Reading
	err := json.Unmarshal([]byte(`{"timestamp_Beijing": "nope"}`), &r)
	if !IsDomainError(err, ErrSchemaViolation.Code) {
		t.Fatalf("Unmarshal = %v, want schema violation", err)
	}
}
