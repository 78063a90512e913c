package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vostrik/tradedesk/internal/app"
	"github.com/vostrik/tradedesk/internal/broker"
	"github.com/vostrik/tradedesk/internal/chart"
	"github.com/vostrik/tradedesk/internal/config"
	"github.com/vostrik/tradedesk/internal/store"
	"github.com/vostrik/tradedesk/internal/tws"
	"github.com/vostrik/tradedesk/internal/ui"
)

func main() {
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	log.Info().Msg("tradedesk starting")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	// MongoDB
	st, err := store.New(ctx, cfg.MongoURI, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer st.Close(context.Background())

	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Chart renderer: fixed output size, theme per render call.
	render := func(bars []broker.HistoricalBar, vp chart.Viewport, theme chart.Theme) ([]byte, int, int, error) {
		r := chart.NewRenderer(cfg.ChartWidth, cfg.ChartHeight, theme)
		buf, err := r.RenderRGB(bars, vp)
		w, h := r.Size()
		return buf, w, h, err
	}

	// Runtime
	rt := app.New(app.Options{
		Dial:   tws.Dialer(log),
		Render: render,
		Store:  st,
		Log:    log,
	})
	defer rt.Close()
	rt.Start()

	// UI gateway
	gateway := ui.NewGateway(rt, cfg.SendBufferSize, log)

	mux := http.NewServeMux()
	gateway.Register(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.UIPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", "ws://"+addr+"/ui").Msg("UI gateway listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}

	log.Info().Msg("tradedesk stopped")
}
