package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"nowcasting-dashboard/internal/auth"
	dashboardapp "nowcasting-dashboard/internal/dashboard/application"
	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	dashboardhttp "nowcasting-dashboard/internal/dashboard/interfaces/http"
	"nowcasting-dashboard/internal/eventbus"
	forecastapi "nowcasting-dashboard/internal/forecast/infrastructure/api"
	forecastcache "nowcasting-dashboard/internal/forecast/infrastructure/cache"
	"nowcasting-dashboard/internal/logging"
	"nowcasting-dashboard/internal/observability/metrics"
	pvapp "nowcasting-dashboard/internal/pv/application"
	pvpostgres "nowcasting-dashboard/internal/pv/infrastructure/postgres"
	"nowcasting-dashboard/internal/render"
	statusapp "nowcasting-dashboard/internal/status/application"
	statuspostgres "nowcasting-dashboard/internal/status/infrastructure/postgres"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg config) error {
	logger := logging.Logger()
	clock := dashboardapp.SystemClock()

	db, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	dbs := map[string]*sql.DB{"forecast": db}
	var pvDB *sql.DB
	if cfg.PVDatabaseURL != "" {
		pvDB, err = openDB(ctx, cfg.PVDatabaseURL)
		if err != nil {
			return err
		}
		defer pvDB.Close()
		dbs["pv"] = pvDB
	} else {
		logger.Warn().Msg("DB_URL_PV not set; pv tab disabled")
	}
	metrics.Init(dbs, logging.WithComponent("metrics"))

	bus := eventbus.New()
	broker := dashboardhttp.NewSSEBroker()
	bus.Subscribe(eventbus.Wildcard, broker.Handle)

	// status tab
	thresholds, err := statusapp.LoadConfig()
	if err != nil {
		return fmt.Errorf("status config: %w", err)
	}
	reader := statuspostgres.NewLastUpdatedReader(db)
	statusService, err := statusapp.NewService(reader, reader, thresholds, clock, logging.WithComponent("status"))
	if err != nil {
		return err
	}
	statusTab, err := dashboardapp.NewTabController(dashboardapp.TabConfig{
		Name:         "status",
		Interval:     cfg.StatusInterval,
		FetchTimeout: cfg.FetchTimeout,
	}, statusService.Report, clock, bus, logging.WithComponent("tab"))
	if err != nil {
		return err
	}

	// summary tab
	api, err := forecastapi.NewClient(cfg.APIURL, forecastapi.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}))
	if err != nil {
		return err
	}
	summaryTab, err := dashboardapp.NewTabController(dashboardapp.TabConfig{
		Name:         "summary",
		Interval:     cfg.SummaryInterval,
		FetchTimeout: cfg.FetchTimeout,
	}, dashboardapp.SummaryFetcher(api, nil), clock, bus, logging.WithComponent("tab"))
	if err != nil {
		return err
	}
	mapCycler, err := dashboardapp.NewFrameCycler("summary", cfg.FrameInterval,
		func() (dashboard.FrameSequence[render.ChoroplethFrame], bool) {
			snap, ok := summaryTab.Snapshot()
			return snap.Value.Map, ok
		}, render.EmptyMapFrame(), clock)
	if err != nil {
		return err
	}
	regions, err := forecastcache.NewRegionCache(api, forecastcache.DefaultSize, cfg.DetailCacheTTL)
	if err != nil {
		return err
	}
	detail, err := dashboardapp.NewDetailController(regions, cfg.FetchTimeout, logging.WithComponent("summary"))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/status", dashboardhttp.NewStatusHandler(statusTab))
	mux.Handle("/api/v1/status/refresh", dashboardhttp.NewRefreshHandler(statusTab))
	mux.Handle("/api/v1/status/export.xlsx", dashboardhttp.NewStatusExportHandler(statusTab, "xlsx", logger))
	mux.Handle("/api/v1/status/export.pdf", dashboardhttp.NewStatusExportHandler(statusTab, "pdf", logger))
	mux.Handle("/api/v1/summary/national", dashboardhttp.NewNationalHandler(summaryTab))
	mux.Handle("/api/v1/summary/frame", dashboardhttp.NewFrameHandler(summaryTab, mapCycler))
	mux.Handle("/api/v1/summary/refresh", dashboardhttp.NewRefreshHandler(summaryTab))
	mux.Handle("/api/v1/summary/detail", dashboardhttp.NewDetailHandler(detail))
	mux.Handle("/api/v1/stream", dashboardhttp.NewStreamHandler(broker))

	loops := []func(context.Context){statusTab.Run, summaryTab.Run, mapCycler.Run}

	if pvDB != nil {
		pvService, err := pvapp.NewService(pvpostgres.NewYieldReader(pvDB), logging.WithComponent("pv"))
		if err != nil {
			return err
		}
		pvTab, err := dashboardapp.NewTabController(dashboardapp.TabConfig{
			Name:         "pv",
			Interval:     cfg.PVInterval,
			FetchTimeout: cfg.FetchTimeout,
		}, pvService.SystemIDs, clock, bus, logging.WithComponent("tab"))
		if err != nil {
			return err
		}
		pvHandler := dashboardhttp.NewPVHandler(pvTab, pvService, logging.WithComponent("pv"))
		mux.HandleFunc("/api/v1/pv/systems", pvHandler.Systems)
		mux.HandleFunc("/api/v1/pv/plot", pvHandler.Plot)
		mux.HandleFunc("/api/v1/pv/random", pvHandler.Random)
		mux.Handle("/api/v1/pv/refresh", dashboardhttp.NewRefreshHandler(pvTab))
		loops = append(loops, pvTab.Run)
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authMiddleware := auth.NewMiddleware(
		[]byte(cfg.JWTSecret),
		auth.BasicCredentials{Username: cfg.BasicUsername, Password: cfg.BasicPassword},
		auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil),
		logging.WithComponent("auth"),
	)
	if !authMiddleware.Enabled() {
		logger.Warn().Msg("no AUTH_JWT_SECRET or DASHBOARD_USERNAME/PASSWORD; api is unauthenticated")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logging.WithComponent("http")),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return runServer(ctx, server, loops, logger)
}

// runServer runs the background loops alongside the HTTP server. The loops
// stop when ctx is done or when the server exits on its own.
func runServer(ctx context.Context, server *http.Server, loops []func(context.Context), logger zerolog.Logger) error {
	loopCtx, cancelLoops := context.WithCancel(ctx)
	defer cancelLoops()

	var wg sync.WaitGroup
	for _, loop := range loops {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(loopCtx)
		}(loop)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}
	cancelLoops()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps the event stream working behind the logging wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
