// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command logicsim edits and simulates digital logic circuits, either from an
// interactive shell or through an HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/db47h/logicsim/internal/config"
	"github.com/db47h/logicsim/internal/server"
	"github.com/db47h/logicsim/internal/session"
	"github.com/db47h/logicsim/internal/shell"
	"github.com/db47h/logicsim/internal/store"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "logicsim",
		Short:         "Digital logic circuit simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfgPath string
	setName string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVarP(&setName, "set", "s", "", "definition set (overrides store.set)")

	rootCmd.AddCommand(serveCmd, shellCmd, defsCmd, demoCmd)
}

type env struct {
	cfg *config.Config
	log *slog.Logger
	st  store.Store
}

// setup loads the configuration and opens the definition store.
func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if setName != "" {
		cfg.Store.Set = setName
	}
	log := cfg.Logger(os.Stderr)
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, st: st}, nil
}

func (e *env) session(ctx context.Context) (*session.Session, error) {
	return session.New(ctx, e.st, e.cfg.Store.Set, e.log, e.cfg.CircuitOptions(e.log)...)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()

		srv := server.New(e.st, e.log, e.cfg.CircuitOptions(e.log)...)
		errc := make(chan error, 1)
		go func() { errc <- srv.Listen(e.cfg.Server.Addr) }()
		select {
		case err = <-errc:
			return err
		case <-ctx.Done():
		}
		e.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	},
}

var interactive bool

var shellCmd = &cobra.Command{
	Use:   "shell [script...]",
	Short: "Run command scripts, then an interactive shell",
	Long: `Runs the given command scripts in order, then starts an interactive shell.
If scripts are given, the interactive shell only starts with --interactive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.st.Close()
		s, err := e.session(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		sh := shell.New(ctx, s, cmd.OutOrStdout())
		for _, name := range args {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			err = sh.RunScript(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
		if len(args) > 0 && !interactive {
			return nil
		}
		home, _ := os.UserHomeDir()
		return sh.Run(filepath.Join(home, ".logicsim_history"))
	},
}

func init() {
	shellCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start the interactive shell after running scripts")
}
