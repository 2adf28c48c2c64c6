package window

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// DecodeStats reports what a tolerant decode did with the input.
type DecodeStats struct {
	// Rows is the number of readings decoded.
	Rows int
	// Dropped is the number of rows rejected (bad timestamp or column
	// count mismatch).
	Dropped int
	// NullFields is the number of numeric cells that failed to parse
	// and were nulled.
	NullFields int
}

// encode writes the header row and one row per reading.
func encode(w io.Writer, readings []domain.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.Columns); err != nil {
		return err
	}

	row := make([]string, len(domain.Columns))
	for _, r := range readings {
		row[0] = domain.FormatTimestamp(r.Timestamp)
		row[1] = formatChannel(r.SwaySpeed)
		row[2] = formatChannel(r.Temperature)
		row[3] = formatChannel(r.Humidity)
		row[4] = formatChannel(r.Pressure)
		row[5] = formatChannel(r.Lux)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// decode reads the full window. The header must name exactly the
// canonical columns in order; anything else is a schema violation for
// the whole file. Row-level faults are tolerated per DecodeStats.
func decode(r io.Reader) ([]domain.Reading, DecodeStats, error) {
	var stats DecodeStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(domain.Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, domain.ErrSchemaViolation.WithDetails("backing file has no header")
	}
	if err != nil {
		return nil, stats, domain.ErrSchemaViolation.WithDetails("unreadable header").WithCause(err)
	}
	if !equalColumns(header) {
		return nil, stats, domain.ErrSchemaViolation.WithDetails(
			"header mismatch, want: " + strings.Join(domain.Columns, ","))
	}

	var readings []domain.Reading
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				stats.Dropped++
				continue
			}
			return readings, stats, domain.ErrSchemaViolation.WithDetails("malformed row").WithCause(err)
		}

		ts, err := domain.ParseTimestamp(strings.TrimSpace(record[0]))
		if err != nil {
			stats.Dropped++
			continue
		}

		reading := domain.Reading{Timestamp: ts}
		reading.SwaySpeed = parseChannel(record[1], &stats)
		reading.Temperature = parseChannel(record[2], &stats)
		reading.Humidity = parseChannel(record[3], &stats)
		reading.Pressure = parseChannel(record[4], &stats)
		reading.Lux = parseChannel(record[5], &stats)

		readings = append(readings, reading)
		stats.Rows++
	}

	return readings, stats, nil
}

// parseChannel decodes one numeric cell. Empty or unparsable cells
// become nil; the record stays usable.
func parseChannel(cell string, stats *DecodeStats) *float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		stats.NullFields++
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		stats.NullFields++
		return nil
	}
	return &v
}

func formatChannel(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func equalColumns(header []string) bool {
	if len(header) != len(domain.Columns) {
		return false
	}
	for i, col := range domain.Columns {
		if strings.TrimSpace(header[i]) != col {
			return false
		}
	}
	return true
}
