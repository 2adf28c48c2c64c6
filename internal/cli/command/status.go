package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/linescope/linescope-go/internal/cli/connection"
	"github.com/linescope/linescope-go/internal/cli/output"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check server health and readiness",
		Action: runStatus,
	}
}

type statusResult struct {
	Target string `json:"target"`
	Health string `json:"health"`
	Ready  string `json:"ready"`
}

func runStatus(c *cli.Context) error {
	client := apiClient(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := statusResult{
		Target: client.BaseURL(),
		Health: probe(ctx, client, "/health"),
		Ready:  probe(ctx, client, "/ready"),
	}

	if output.Format(c.String("output")) == output.FormatJSON {
		return formatter(c).Format(c.App.Writer, result)
	}

	fmt.Fprintf(c.App.Writer, "Target: %s\n", result.Target)
	fmt.Fprintf(c.App.Writer, "Health: %s\n", result.Health)
	fmt.Fprintf(c.App.Writer, "Ready:  %s\n", result.Ready)
	if result.Health != "ok" || result.Ready != "ok" {
		return fmt.Errorf("server is not healthy")
	}
	return nil
}

// probe returns "ok" when the endpoint answers successfully, otherwise
// the error text.
func probe(ctx context.Context, client *connection.Client, path string) string {
	resp, err := client.Get(ctx, path)
	if err != nil {
		return err.Error()
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err.Error()
	}
	return "ok"
}
