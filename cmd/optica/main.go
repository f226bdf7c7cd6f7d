// Command optica is an interactive terminal client for the optica API.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/Skotchmaster/optica/internal/apiclient"
	"github.com/Skotchmaster/optica/internal/config"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/session"
	"github.com/Skotchmaster/optica/pkg/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "optica: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()

	flagSet := pflag.NewFlagSet("optica", pflag.ContinueOnError)
	var (
		apiURL      string
		sessionPath string
		logLevel    string
		idle        = flagSet.Duration("idle-timeout", session.DefaultIdleTimeout, "log out after this long without input")
		grace       = flagSet.Duration("grace", session.DefaultGrace, "time between the inactivity warning and logout")
		warningLead = flagSet.Duration("warning-lead", session.DefaultWarningLead, "warn this long before the token expires")
	)
	flagSet.StringVar(&apiURL, "api", config.EnvDefault("OPTICA_API_URL", "http://localhost:8080"), "API base URL")
	flagSet.StringVar(&sessionPath, "session-file", defaultSessionPath(), "where the session token is kept")
	flagSet.StringVar(&logLevel, "log-level", config.EnvDefault("LOG_LEVEL", "warn"), "log level for client diagnostics")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger := logging.NewWriter(os.Stderr, logLevel)
	client := apiclient.NewClient(apiURL)

	sh := &shell{api: client, in: os.Stdin, out: os.Stdout}
	mgr := session.New(session.Options{
		API:         client,
		Store:       session.NewFileStore(sessionPath),
		Clock:       clock.Real{},
		Observer:    sh.notify,
		Logger:      logger,
		WarningLead: *warningLead,
		IdleTimeout: *idle,
		Grace:       *grace,
	})
	defer mgr.Close()
	sh.session = mgr

	client.SetTokenSource(mgr.Token)
	client.OnUnauthorized(func() { mgr.Logout(session.ReasonInvalidToken) })

	if err := mgr.Init(context.Background()); err != nil {
		return err
	}
	return sh.loop(context.Background())
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "optica", "session.json")
}
