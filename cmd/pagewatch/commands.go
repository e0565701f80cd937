package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haeun/pagewatch"
	"github.com/haeun/pagewatch/internal/logger"
	"github.com/haeun/pagewatch/internal/report"
	"github.com/haeun/pagewatch/internal/store"
	"github.com/haeun/pagewatch/internal/visit"
)

func buildRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "pagewatch",
		Short:         "Page visit duration tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildServe(), buildReplay(), buildVersion())
	return root
}

func buildServe() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracking HTTP API from a config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	f.register(cmd)
	return cmd
}

func runServe(ctx context.Context, f serveFlags) error {
	c, err := pagewatch.LoadConfig(f.Config)
	if err != nil {
		return err
	}
	closer := logger.Setup(c.Log)
	defer func() { _ = closer.Close() }()

	st, err := pagewatch.NewStore(c.Store)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer func() { _ = st.Close() }()
	// The manager owns session identity; it re-scopes the store on renewal
	// so the slot and the reported session ID never drift apart.
	sm := pagewatch.NewSessionManager(c.SessionIdleTimeout, st)

	var sinks []pagewatch.Sink
	for _, dsn := range c.Report.Sinks {
		s, err := pagewatch.NewSink(dsn)
		if err != nil {
			return fmt.Errorf("create sink %s: %w", dsn, err)
		}
		sinks = append(sinks, s)
	}
	var fn pagewatch.ReportFunc
	if len(sinks) > 0 {
		reporter := report.NewReporter(report.Multi(sinks), sm.Touch,
			report.WithSendTimeout(c.Report.SendTimeout))
		fn = reporter.ReportFunc()
	}
	tracker := pagewatch.NewWithStore(st, fn)

	if err := pagewatch.RegisterMetricsDefault(); err != nil {
		slog.Warn("metrics registration failed", "error", err)
	}
	if c.Server.MetricsListen != "" {
		go func() {
			if err := pagewatch.ServeMetrics(c.Server.MetricsListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	listen := c.Server.Listen
	if listen == "" {
		listen = ":8087"
	}
	srv, err := pagewatch.NewHTTPServer(listen, c.Server.BasePath, tracker)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("serving", "listen", listen, "base_path", c.Server.BasePath, "session", sm.ID())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case <-sig:
	}

	// Finalize any in-flight visit so its duration is reported before exit.
	tracker.Stop()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func buildReplay() *cobra.Command {
	var f replayFlags
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a navigation log and print visit durations",
		Long: `Replay feeds a recorded navigation log through the visit timer and
prints one line per finished visit. Each input line is

    page_name page_url dwell

where dwell is a Go duration (3s, 250ms, ...) spent on that page before
the next navigation. Blank lines and lines starting with # are skipped.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			in := os.Stdin
			if f.File != "-" {
				fh, err := os.Open(f.File)
				if err != nil {
					return err
				}
				defer func() { _ = fh.Close() }()
				in = fh
			}
			return runReplay(in, os.Stdout)
		},
	}
	f.register(cmd)
	return cmd
}

func runReplay(r io.Reader, w io.Writer) error {
	now := time.Now()
	timer := visit.NewTimer(store.NewMemory(), func(name, url string, d time.Duration) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, url, d)
	}, visit.WithClock(func() time.Time { return now }))

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return fmt.Errorf("line %d: want \"page_name page_url dwell\", got %q", line, text)
		}
		dwell, err := time.ParseDuration(fields[2])
		if err != nil {
			return fmt.Errorf("line %d: bad dwell %q: %w", line, fields[2], err)
		}
		timer.TrackPreviousPageVisit(fields[0], fields[1])
		now = now.Add(dwell)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	// The last page has no subsequent navigation; flush it explicitly.
	if rec := timer.Stop(); rec != nil {
		fmt.Fprintf(w, "%s\t%s\t%s\n", rec.PageName, rec.PageURL, rec.Duration())
	}
	return nil
}

func buildVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pagewatch version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
