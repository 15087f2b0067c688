package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hami-sh/2310ass4/internal/depot"
	"github.com/hami-sh/2310ass4/internal/metrics"
	"github.com/hami-sh/2310ass4/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:   "depot [flags] name {goods qty}",
	Short: "Run a depot node.",
	Long: `depot runs one warehouse node of a peer-to-peer depot network.

It prints the port it listens on, then accepts peers and applies the
Deliver, Withdraw, Transfer, Defer and Execute messages they send.
Send SIGHUP to print the current goods and neighbours.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(cmd *cobra.Command, args []string) error {
	name, items, err := parseArgs(args)
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	queueCap, _ := cmd.Flags().GetInt("queue")
	level, _ := cmd.Flags().GetString("log-level")
	metricsAddr, _ := cmd.Flags().GetString("metrics")

	log, err := newLogger(level)
	if err != nil {
		return newExitError(exitUsage, err)
	}
	defer log.Sync() //nolint:errcheck

	ln, err := transport.Listen(listen)
	if err != nil {
		return newExitError(exitListen, err)
	}
	port := transport.ListenerPort(ln)
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", port)

	// Writes to a vanished peer must fail, not kill the process.
	signal.Ignore(syscall.SIGPIPE)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	m := metrics.New()
	d, err := depot.New(depot.Config{
		Name:          name,
		Port:          port,
		Items:         items,
		QueueCapacity: queueCap,
		Out:           cmd.OutOrStdout(),
		Signals:       hup,
		Logger:        log,
		Metrics:       m,
	})
	if err != nil {
		ln.Close()
		return newExitError(exitName, err)
	}
	d.Start()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.Serve(ln) })

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
		log.Info("serving metrics", zap.String("addr", metricsAddr))
	}

	g.Go(func() error {
		<-gctx.Done()
		err := ln.Close()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err = multierr.Append(err, srv.Shutdown(shutdownCtx))
		}
		if err != nil {
			log.Debug("shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	return multierr.Append(err, d.Stop())
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func init() {
	flags := rootCmd.Flags()
	// Quantities like -5 must reach parseArgs rather than the flag parser.
	flags.SetInterspersed(false)
	flags.String("listen", "localhost:0", "TCP listen address")
	flags.Int("queue", depot.DefaultQueueCapacity, "Inbox capacity")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("metrics", "", "Serve Prometheus metrics on this address (disabled when empty)")
}

// exitCode maps an Execute error to a process status, writing its message
// and any underlying cause to w.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(w, ee.Error())
		return ee.code
	}
	// Flag parsing and other cobra errors.
	fmt.Fprintln(w, err)
	fmt.Fprintln(w, exitMessages[exitUsage])
	return exitUsage
}

func main() {
	os.Exit(exitCode(os.Stderr, rootCmd.Execute()))
}
