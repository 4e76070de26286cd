// Command samples_server serves every *.arrows file in a directory over
// Arrow Flight. The ticket of a file is its base name without extension.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/23skdu/longbow-cgen/internal/logger"
	"github.com/23skdu/longbow-cgen/internal/monitoring"
	"github.com/23skdu/longbow-cgen/internal/samples"
)

var (
	addr       = flag.String("addr", "localhost:8815", "Listen address")
	dir        = flag.String("dir", ".", "Directory of Arrow IPC sample files")
	logLevel   = flag.String("log-level", "info", "Log level")
	logFormat  = flag.String("log-format", "console", "Log format (console, json)")
	healthAddr = flag.String("health", ":9090", "Address for /healthz, /status and /metrics (empty disables)")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	store := samples.NewMemoryStore()
	paths, err := filepath.Glob(filepath.Join(*dir, "*.arrows"))
	if err != nil {
		logger.Log.Error("Bad sample directory", "dir", *dir, "error", err)
		os.Exit(1)
	}
	for _, p := range paths {
		s, err := samples.LoadFile(p, nil)
		if err != nil {
			logger.Log.Error("Failed to load samples", "path", p, "error", err)
			os.Exit(1)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if err := store.PutSamples(context.Background(), name, s); err != nil {
			logger.Log.Error("Rejected sample file", "path", p, "error", err)
			os.Exit(1)
		}
		logger.Log.Debug("Loaded samples", "ticket", name, "rows", s.Len())
	}

	srv, err := samples.NewServer(*addr, store, nil)
	if err != nil {
		logger.Log.Error("Failed to start Flight server", "error", err)
		os.Exit(1)
	}

	hm := monitoring.NewHealthMonitor("samples", srv.Addr().String(), store.Names)
	if *healthAddr != "" {
		hm.Start(*healthAddr)
	}
	hm.SetReady(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Log.Info("Interrupt received, shutting down...")
		hm.SetReady(false)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hm.Stop(ctx)
		srv.Shutdown()
	}()

	logger.Log.Info("Serving samples", "addr", srv.Addr().String(), "sets", store.Names())
	if err := srv.Serve(); err != nil {
		logger.Log.Error("Flight server stopped", "error", err)
		os.Exit(1)
	}
}
