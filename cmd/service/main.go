package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hushwa3/WeatherAppSIA/internal/alert"
	"github.com/hushwa3/WeatherAppSIA/internal/config"
	"github.com/hushwa3/WeatherAppSIA/internal/eventbus"
	"github.com/hushwa3/WeatherAppSIA/internal/fetcher"
	"github.com/hushwa3/WeatherAppSIA/internal/geocode"
	"github.com/hushwa3/WeatherAppSIA/internal/geolocation"
	httphandler "github.com/hushwa3/WeatherAppSIA/internal/http"
	"github.com/hushwa3/WeatherAppSIA/internal/lifecycle"
	"github.com/hushwa3/WeatherAppSIA/internal/netstatus"
	"github.com/hushwa3/WeatherAppSIA/internal/observability"
	"github.com/hushwa3/WeatherAppSIA/internal/selected"
	"github.com/hushwa3/WeatherAppSIA/internal/store"
	"github.com/hushwa3/WeatherAppSIA/internal/weather"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	tz, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		logger.Fatal("timezone", zap.String("name", cfg.TimeZone), zap.Error(err))
	}

	var (
		st        store.Store
		storePing func() error
	)
	switch cfg.StoreBackend {
	case "memcached":
		mc, err := store.NewMemcachedStore(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached store", zap.Error(err))
		}
		st = mc
		storePing = mc.Ping
		logger.Info("store backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "in_memory":
		st = store.NewInMemoryStore()
		logger.Info("store backend: in_memory")
	default:
		bs, err := store.NewBoltStore(cfg.StorePath)
		if err != nil {
			logger.Fatal("bolt store", zap.Error(err))
		}
		st = bs
		logger.Info("store backend: bolt", zap.String("path", cfg.StorePath))
	}

	probe := netstatus.NewHTTPProbe(cfg.ConnectivityCheckURL, cfg.ConnectivityTimeout)
	position := geolocation.NewRestProvider(cfg.GeolocationURL)
	geocoder, err := geocode.NewHTTPClient(cfg.WeatherAPIKey, cfg.GeocodeAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("geocoder", zap.Error(err))
	}

	bus := eventbus.New()
	stream := selected.NewStream(bus)
	notifier := alert.NewBusNotifier(bus, logger)

	f := fetcher.New(probe, st, notifier, logger, cfg.UpstreamTimeout)

	weatherService, err := weather.New(weather.Config{
		APIKey:      cfg.WeatherAPIKey,
		WeatherURL:  cfg.WeatherAPIURL,
		ForecastURL: cfg.ForecastAPIURL,
		CacheMaxAge: cfg.CacheMaxAge,
		TimeZone:    tz,
	}, weather.Deps{
		Fetcher:  f,
		Probe:    probe,
		Store:    st,
		Position: position,
		Geocoder: geocoder,
		Stream:   stream,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("weather service", zap.Error(err))
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, logger, storePing)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/cache", handler.DeleteCache).Methods("DELETE")

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/current", handler.GetCurrentWeather).Methods("GET")
	weatherRouter.HandleFunc("/visibility", handler.GetVisibility).Methods("GET")
	weatherRouter.HandleFunc("/weekly", handler.GetWeekly).Methods("GET")
	weatherRouter.HandleFunc("/hourly", handler.GetHourly).Methods("GET")
	weatherRouter.HandleFunc("/highlow", handler.GetHighLow).Methods("GET")

	locationRouter := router.PathPrefix("/location").Subrouter()
	locationRouter.Use(httphandler.RateLimitMiddleware(limiter))
	locationRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	locationRouter.HandleFunc("/current", handler.GetCurrentLocation).Methods("GET")
	locationRouter.HandleFunc("/selected", handler.GetSelectedLocation).Methods("GET")
	locationRouter.HandleFunc("/selected", handler.PostSelectedLocation).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	weatherService.Close()
	if err := st.Close(); err != nil {
		logger.Error("store close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
