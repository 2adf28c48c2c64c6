package command

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/linescope/linescope-go/internal/cli/connection"
	"github.com/linescope/linescope-go/internal/cli/output"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "linescope-cli",
		Usage:   "Linescope command-line tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StatusCommand(),
			ReadingsCommand(),
			PushCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Linescope server address (e.g., localhost:8080)",
			EnvVars: []string{"LINESCOPE_SERVER"},
			Value:   "localhost:8080",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit table headers",
		},
	}
}

// apiClient builds the HTTP client from the global server flag.
func apiClient(c *cli.Context) *connection.Client {
	return connection.NewClient(c.String("server"))
}

// formatter builds the output formatter from the global flags.
func formatter(c *cli.Context) output.Formatter {
	if output.Format(c.String("output")) == output.FormatJSON {
		return &output.JSONFormatter{}
	}
	return &output.TableFormatter{NoHeaders: c.Bool("no-headers")}
}

// parse decodes an API envelope into target.
func parse(resp *http.Response, target any) error {
	return connection.ParseResponse(resp, target)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
