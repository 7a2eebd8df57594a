package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"facility/internal/config"
	"facility/internal/facility"
	"facility/internal/logging"
	"facility/internal/transport"
)

// app carries what every subcommand needs. client is opened lazily from
// configuration unless a test injects one.
type app struct {
	cfg    config.App
	log    logging.Logger
	client *facility.Client
	closer io.Closer
	output string
	out    io.Writer
}

func (a *app) open(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	c, closer, err := facility.Open(ctx, a.cfg, transport.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.client, a.closer = c, closer
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// print writes v in the selected output format.
func (a *app) print(v any) error {
	switch a.output {
	case "yaml":
		// go through JSON so the API's field names are kept
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", a.output)
	}
}

// explain turns API errors into a one-line message for the terminal.
func explain(err error) error {
	var te *transport.TransportError
	if errors.As(err, &te) {
		return fmt.Errorf("server returned %d: %s", te.StatusCode, te.Message())
	}
	var ne *transport.NetworkError
	if errors.As(err, &ne) {
		return fmt.Errorf("cannot reach %s: %v", ne.URL, ne.Err)
	}
	return err
}

// newApp loads configuration from the environment.
func newApp() *app {
	cfg := config.Load()
	return &app{cfg: cfg, log: logging.New(cfg.LogLevel, cfg.LogFormat)}
}

// run executes root and releases the session store afterwards, whether or not
// the command succeeded.
func run(a *app, root *cobra.Command) error {
	err := root.Execute()
	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: closing session store: %v\n", cerr)
		err = errors.Join(err, cerr)
	}
	return err
}

// NewRootCmd builds the command tree. A nil a loads configuration from the
// environment.
func NewRootCmd(a *app) *cobra.Command {
	if a == nil {
		a = newApp()
	}

	root := &cobra.Command{
		Use:           "facilityctl",
		Short:         "Command-line client for the facility inmate API",
		Long:          `facilityctl manages inmates, runs face recognition queries and reads recognition reports against a facility API server. The bearer token from "login" is kept in the configured session store.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.out == nil {
				a.out = cmd.OutOrStdout()
			}
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().StringVar(&a.cfg.APIURL, "api-url", a.cfg.APIURL, "facility API base URL")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		registerCmd(a),
		whoamiCmd(a),
		inmatesCmd(a),
		recognizeCmd(a),
		recognizeBatchCmd(a),
		statsCmd(a),
		logsCmd(a),
		activityCmd(a),
		officersCmd(a),
	)
	return root
}
