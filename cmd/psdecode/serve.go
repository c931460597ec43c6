package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/cmusphinx/pocketsphinx-sub004/internal/config"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/decoder"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/lm"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/mcptool"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/modelbundle"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/modelreload"
	"github.com/cmusphinx/pocketsphinx-sub004/internal/wsserver"
)

func newServeCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve recognition over WebSocket and MCP (SPEC_FULL.md §6.E)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root)
		},
	}
}

func runServe(ctx context.Context, root *rootFlags) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	newDecoderFn := func(ctx context.Context) (*decoder.Decoder, error) {
		return buildDecoder(ctx, cfg, decoder.WithLogger(logger))
	}

	// A seed decoder is built purely to expose a shared
	// LanguageModelPointer for modelreload to watch; wsserver/mcptool still
	// mint their own decoder per connection/call (SPEC_FULL.md §5.E never
	// shares one decoder across goroutines).
	var reloadWatcher *modelreload.Watcher
	if cfg.Model.Spec() == config.SearchNGram {
		seed, err := buildDecoder(ctx, cfg)
		if err != nil {
			return fmt.Errorf("psdecode: build seed decoder: %w", err)
		}
		defer seed.Close()

		reloadWatcher, err = modelreload.New(seed.LanguageModelPointer(), cfg.Model.Lm, loadLanguageModel, modelreload.WithLogger(logger))
		if err != nil {
			logger.Warn("psdecode: language model hot-reload disabled", "err", err)
		} else {
			defer reloadWatcher.Stop()
		}
	}

	wsHandler := wsserver.New(newDecoderFn, wsserver.WithLogger(logger))
	mcpServer := mcptool.NewServer(newDecoderFn)

	mux := http.NewServeMux()
	mux.Handle("/v1/stream", wsHandler)
	mux.Handle("/mcp", mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return mcpServer }, nil))

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	logger.Info("psdecode serving", "listen_addr", cfg.Server.ListenAddr, "search", cfg.Model.Spec().String())

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("psdecode shutting down, stopping…")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("psdecode: serve: %w", err)
		}
	}

	return shutdownServer(httpServer)
}

// shutdownServer mirrors USA-RedDragon/DMRHub's cmd/root.go
// setupShutdownHandlers: a bounded-time graceful stop that forces an error
// rather than hanging forever.
func shutdownServer(httpServer *http.Server) error {
	const timeout = 10 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var wg sync.WaitGroup
	var shutdownErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		shutdownErr = httpServer.Shutdown(shutdownCtx)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		return shutdownErr
	case <-time.After(timeout + time.Second):
		return fmt.Errorf("psdecode: shutdown timed out")
	}
}

// loadLanguageModel is a [modelreload.Loader]: it re-reads the bundle named
// by path and returns a freshly built language model.
func loadLanguageModel(ctx context.Context, path string) (lm.Model, error) {
	bundle, err := modelbundle.Load(path)
	if err != nil {
		return nil, err
	}
	dict, err := bundle.ToDictionary()
	if err != nil {
		return nil, err
	}
	return bundle.ToLanguageModel(dict)
}
