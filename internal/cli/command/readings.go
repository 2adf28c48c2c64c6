package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linescope/linescope-go/internal/cli/output"
)

// newStatsTable builds the per-channel statistics table skeleton.
func newStatsTable() *output.Table {
	return &output.Table{
		Headers: []string{"CHANNEL", "MIN", "MAX", "AVG", "COUNT"},
	}
}

// ReadingsCommand returns the readings subcommand group.
func ReadingsCommand() *cli.Command {
	return &cli.Command{
		Name:    "readings",
		Aliases: []string{"r"},
		Usage:   "Query the rolling telemetry window",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List readings in the window",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Only the newest N readings",
					},
				},
				Action: readingsList,
			},
			{
				Name:   "latest",
				Usage:  "Show the newest reading",
				Action: readingsLatest,
			},
			{
				Name:   "stats",
				Usage:  "Show per-channel statistics over the window",
				Action: readingsStats,
			},
		},
	}
}

// readingRow mirrors the API wire shape of one reading.
type readingRow struct {
	Timestamp   string   `json:"timestamp_Beijing"`
	SwaySpeed   *float64 `json:"sway_speed_dps"`
	Temperature *float64 `json:"temperature_C"`
	Humidity    *float64 `json:"humidity_RH"`
	Pressure    *float64 `json:"pressure_hPa"`
	Lux         *float64 `json:"lux"`
}

func readingsList(c *cli.Context) error {
	client := apiClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path := "/api/sensors"
	if c.IsSet("limit") {
		path = fmt.Sprintf("%s?limit=%d", path, c.Int("limit"))
	}
	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Count    int          `json:"count"`
		Readings []readingRow `json:"readings"`
	}
	if err := parse(resp, &result); err != nil {
		return err
	}
	return formatter(c).Format(c.App.Writer, result.Readings)
}

func readingsLatest(c *cli.Context) error {
	client := apiClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/api/sensors/latest")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var row readingRow
	if err := parse(resp, &row); err != nil {
		return err
	}
	return formatter(c).Format(c.App.Writer, row)
}

// channelStats mirrors the API per-channel aggregate.
type channelStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

func readingsStats(c *cli.Context) error {
	client := apiClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/api/sensors/stats")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var stats struct {
		Count       int           `json:"count"`
		First       string        `json:"first"`
		Last        string        `json:"last"`
		SwaySpeed   *channelStats `json:"sway_speed_dps"`
		Temperature *channelStats `json:"temperature_C"`
		Humidity    *channelStats `json:"humidity_RH"`
		Pressure    *channelStats `json:"pressure_hPa"`
		Lux         *channelStats `json:"lux"`
	}
	if err := parse(resp, &stats); err != nil {
		return err
	}

	if c.String("output") == "json" {
		return formatter(c).Format(c.App.Writer, stats)
	}

	fmt.Fprintf(c.App.Writer, "Window: %d readings", stats.Count)
	if stats.First != "" {
		fmt.Fprintf(c.App.Writer, " (%s .. %s)", stats.First, stats.Last)
	}
	fmt.Fprintln(c.App.Writer)

	type namedChannel struct {
		name string
		cs   *channelStats
	}
	channels := []namedChannel{
		{"sway_speed_dps", stats.SwaySpeed},
		{"temperature_C", stats.Temperature},
		{"humidity_RH", stats.Humidity},
		{"pressure_hPa", stats.Pressure},
		{"lux", stats.Lux},
	}
	table := newStatsTable()
	for _, ch := range channels {
		if ch.cs == nil {
			table.AddRow(ch.name, "-", "-", "-", "0")
			continue
		}
		table.AddRow(ch.name,
			fmt.Sprintf("%.2f", ch.cs.Min),
			fmt.Sprintf("%.2f", ch.cs.Max),
			fmt.Sprintf("%.2f", ch.cs.Avg),
			fmt.Sprintf("%d", ch.cs.Count))
	}
	return formatter(c).Format(c.App.Writer, table)
}
