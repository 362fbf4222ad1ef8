// Command faultdemo serves endpoints that always fail, to show what the fault
// boundary logs for JSON, form and upload requests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darynku/ignorelogger"
	"github.com/darynku/ignorelogger/config"
	"github.com/darynku/ignorelogger/document"
	"github.com/darynku/ignorelogger/fault"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: ./config.yaml)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "faultdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	policy := ignorelogger.NewPolicy(append(cfg.Redaction.PolicyOptions(), models()...)...)
	logger, sink := newLoggers(os.Stdout, cfg.Logging, policy)
	rep := newReporter(cfg, policy, sink)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(logger, rep),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.Addr), slog.String("sink", cfg.Logging.Sink))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newReporter(cfg *config.Config, policy *ignorelogger.Policy, sink fault.Logger) *fault.Reporter {
	docs := document.New(policy, cfg.Fault.DocumentOptions()...)
	opts := append(cfg.Fault.ReporterOptions(), fault.WithRequestID(requestID))
	return fault.New(sink, docs, opts...)
}

// newLoggers returns the application logger and the fault sink. Both redact
// with policy.
func newLoggers(w io.Writer, cfg config.LoggingConfig, policy *ignorelogger.Policy) (*slog.Logger, fault.Logger) {
	hopts := &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: policy.ReplaceAttr,
	}
	var handler slog.Handler = slog.NewJSONHandler(w, hopts)
	if cfg.Format == "console" {
		handler = slog.NewTextHandler(w, hopts)
	}
	logger := slog.New(handler)

	if cfg.Sink != config.SinkZerolog {
		return logger, fault.NewSlogLogger(logger, policy)
	}

	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(out).Level(cfg.ZerologLevel()).With().Timestamp().Logger()
	return logger, fault.NewZerologLogger(zl, policy)
}
