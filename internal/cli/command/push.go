package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linescope/linescope-go/internal/cli/connection"
	"github.com/linescope/linescope-go/internal/core/domain"
)

// PushCommand returns the push subcommand group. It speaks the binary
// intake protocol, so it needs the intake port rather than the HTTP
// API address.
func PushCommand() *cli.Command {
	intakeFlag := &cli.StringFlag{
		Name:    "intake",
		Usage:   "Intake server address",
		EnvVars: []string{"LINESCOPE_INTAKE"},
		Value:   "127.0.0.1:9123",
	}
	return &cli.Command{
		Name:  "push",
		Usage: "Send readings to the device intake port",
		Subcommands: []*cli.Command{
			{
				Name:  "reading",
				Usage: "Push one telemetry reading",
				Flags: []cli.Flag{
					intakeFlag,
					&cli.StringFlag{
						Name:  "timestamp",
						Usage: "Reading timestamp (2006-01-02 15:04), defaults to now",
					},
					&cli.Float64Flag{Name: "sway", Usage: "Sway speed in deg/s"},
					&cli.Float64Flag{Name: "temperature", Usage: "Temperature in Celsius"},
					&cli.Float64Flag{Name: "humidity", Usage: "Relative humidity in percent"},
					&cli.Float64Flag{Name: "pressure", Usage: "Pressure in hPa"},
					&cli.Float64Flag{Name: "lux", Usage: "Illuminance in lux"},
				},
				Action: pushReading,
			},
			{
				Name:   "heartbeat",
				Usage:  "Send a keepalive frame",
				Flags:  []cli.Flag{intakeFlag},
				Action: pushHeartbeat,
			},
		},
	}
}

func pushReading(c *cli.Context) error {
	reading, err := readingFromFlags(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := connection.NewPushClient(c.String("intake"))
	if err := client.Push(ctx, reading); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "pushed reading at %s\n", domain.FormatTimestamp(reading.Timestamp))
	return nil
}

func pushHeartbeat(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := connection.NewPushClient(c.String("intake"))
	if err := client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "heartbeat acknowledged")
	return nil
}

// readingFromFlags assembles a reading from the push flags. Channels
// left unset stay nil.
func readingFromFlags(c *cli.Context) (domain.Reading, error) {
	ts := time.Now().In(domain.SiteZone()).Truncate(time.Minute)
	if raw := c.String("timestamp"); raw != "" {
		parsed, err := domain.ParseTimestamp(raw)
		if err != nil {
			return domain.Reading{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		ts = parsed
	}

	r := domain.Reading{Timestamp: ts}
	if c.IsSet("sway") {
		r.SwaySpeed = domain.Float(c.Float64("sway"))
	}
	if c.IsSet("temperature") {
		r.Temperature = domain.Float(c.Float64("temperature"))
	}
	if c.IsSet("humidity") {
		r.Humidity = domain.Float(c.Float64("humidity"))
	}
	if c.IsSet("pressure") {
		r.Pressure = domain.Float(c.Float64("pressure"))
	}
	if c.IsSet("lux") {
		r.Lux = domain.Float(c.Float64("lux"))
	}
	return r, nil
}
