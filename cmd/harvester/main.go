// Package main provides the harvester command: run a full harvest cycle,
// harvest a single endpoint, or dump endpoint status.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"oaiharvest/internal/action"
	"oaiharvest/internal/config"
	"oaiharvest/internal/cycle"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/worker"
	"oaiharvest/internal/xslt"
)

// Exit codes.
const (
	exitOK            = 0
	exitHarvestFailed = 1
	exitConfigError   = 2
	exitPersistError  = 3
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "harvester",
		Short:         "OAI-PMH metadata harvester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.xml", "configuration file (XML or YAML)")

	root.AddCommand(newRunCmd(), newEndpointCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}

		os.Exit(exitConfigError)
	}
}

// setup loads configuration and builds the controller shared by run and
// endpoint.
func setup() (*worker.Controller, *config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, nil, &exitError{code: exitConfigError, err: err}
	}

	log := logger.NewLogger(cfg.Logging.Level)

	overview, err := cycle.LoadOverview(cfg.Overview.File)
	if err != nil {
		return nil, nil, nil, &exitError{code: exitPersistError, err: err}
	}

	cyc := cycle.New(overview, cycle.Properties{
		Mode:     cycle.Mode(cfg.Cycle.Mode),
		Scenario: cfg.Cycle.Scenario,
		Limit:    cfg.Cycle.Limit,
		From:     cfg.FromDate(),
	})

	factory := &action.Factory{
		OutputRoot: cfg.Output.Dir,
		LoadStylesheet: func(path string) (action.Transformer, error) {
			return xslt.Load(path)
		},
		Log: log,
	}

	return worker.NewController(cfg, cyc, factory, log), cfg, log, nil
}

// resultError maps a controller result onto an exit code.
func resultError(res worker.Result) error {
	if res.PersistErr != nil {
		return &exitError{code: exitPersistError, err: res.PersistErr}
	}

	if res.Failed > 0 {
		return &exitError{
			code: exitHarvestFailed,
			err:  fmt.Errorf("%d of %d endpoints failed", res.Failed, res.Attempted),
		}
	}

	return nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Harvest every eligible endpoint in the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, log, err := setup()
			if err != nil {
				return err
			}

			start := time.Now()

			res, err := ctrl.Run(cmd.Context())
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}

			log.WithFields(logger.Fields{
				"attempted": res.Attempted,
				"succeeded": res.Succeeded,
				"failed":    res.Failed,
				"skipped":   res.Skipped,
				"duration":  time.Since(start).Round(time.Millisecond).String(),
			}).Info("cycle finished")

			return resultError(res)
		},
	}
}

func newEndpointCmd() *cobra.Command {
	var uri string

	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Harvest a single endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, _, err := setup()
			if err != nil {
				return err
			}

			res, err := ctrl.RunEndpoint(cmd.Context(), uri)
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}

			return resultError(res)
		},
	}
	cmd.Flags().StringVar(&uri, "endpoint", "", "base URI of the endpoint to harvest")
	cmd.MarkFlagRequired("endpoint")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the endpoint overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}

			overview, err := cycle.LoadOverview(cfg.Overview.File)
			if err != nil {
				return &exitError{code: exitPersistError, err: err}
			}

			printOverview(cmd, overview)

			return nil
		},
	}
}

// printOverview renders the endpoint table.
func printOverview(cmd *cobra.Command, overview *cycle.Overview) {
	endpoints := overview.Endpoints()
	if len(endpoints) == 0 {
		cmd.Println("no endpoints recorded")

		return
	}

	uriWidth := runewidth.StringWidth("URI")
	for _, e := range endpoints {
		if w := runewidth.StringWidth(e.URI); w > uriWidth {
			uriWidth = w
		}
	}

	header := fmt.Sprintf("%s  %-8s %-8s %-6s %-12s %-20s %-20s",
		runewidth.FillRight("URI", uriWidth),
		"GROUP", "BLOCKED", "RETRY", "INCREMENTAL", "ATTEMPTED", "HARVESTED")
	cmd.Println(header)

	for _, e := range endpoints {
		cmd.Println(fmt.Sprintf("%s  %-8s %-8t %-6t %-12t %-20s %-20s",
			runewidth.FillRight(e.URI, uriWidth),
			e.Group,
			e.Blocked,
			e.Retry,
			e.AllowIncremental,
			formatTime(e.Attempted),
			formatTime(e.Harvested)))
	}
}

func formatTime(t cycle.Timestamp) string {
	if t.IsZero() {
		return "never"
	}

	return t.UTC().Format(time.RFC3339)
}
