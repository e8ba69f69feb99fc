package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casametrix_front/internal/apiclient"
	"casametrix_front/internal/auth"
	"casametrix_front/internal/autocomplete"
	"casametrix_front/internal/clock"
	"casametrix_front/internal/events"
	"casametrix_front/internal/geo"
	"casametrix_front/internal/geolocation"
	"casametrix_front/internal/golden"
	apphttp "casametrix_front/internal/http"
	"casametrix_front/internal/http/router"
	"casametrix_front/internal/maps"
	"casametrix_front/internal/mapsync"
	"casametrix_front/internal/messages"
	"casametrix_front/internal/searchview"
	"casametrix_front/internal/session"
	"casametrix_front/internal/views"
	"casametrix_front/platform/config"
	"casametrix_front/platform/logger"
	"casametrix_front/platform/metrics"
	"casametrix_front/platform/validator"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithOptions(logger.Options{
		Env:        cfg.GetEnv(),
		File:       cfg.GetLogFile(),
		MaxSizeMB:  cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAgeDays: cfg.GetLogMaxAgeDays(),
	})
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.IsMetricsEnabled() {
		collector, err = metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			log.Error("failed to register metrics", "error", err)
			panic("failed to register metrics: " + err.Error())
		}
	}

	store, health, closeStore := initTokenStore(ctx, cfg, log)
	defer closeStore()

	clk := clock.Real()
	eventBus := events.NewInMemoryBus(log)
	subscribeAudit(eventBus, log)
	val := validator.New()
	sessions := session.NewRegistry(store, clk, log)
	defer sessions.Close()

	casametrixAPI := mustClient("casametrix", cfg.GetAPIBaseURL(), cfg, log, collector)
	provider := initProvider(cfg, casametrixAPI, log, collector)
	goldenClient := golden.NewClient(casametrixAPI)

	width, height := cfg.GetMapViewport()
	manager := searchview.NewManager(searchview.Deps{
		Provider: provider,
		Saver:    goldenClient,
		Searcher: goldenClient,
		Locators: initLocators(cfg, log, collector),
		Renderer: mapsync.NewScene(geo.Viewport{Width: width, Height: height}, cfg.GetMapMaxZoom()),
		Sessions: sessions,
		Clock:    clk,
		Messages: messages.Default,
		Bus:      eventBus,
		Metrics:  collector,
		Log:      log,
		Settings: searchview.Settings{
			Debounce:      cfg.GetAutocompleteDebounce(),
			MinChars:      cfg.GetAutocompleteMinChars(),
			Limit:         cfg.GetAutocompleteLimit(),
			RPS:           cfg.GetAutocompleteRPS(),
			ToastTTL:      cfg.GetToastTTL(),
			ToastMaxDepth: cfg.GetToastMaxDepth(),
			GeoTimeout:    cfg.GetGeolocationTimeout(),
			CloseZoom:     cfg.GetMapCloseZoom(),
			FitPadding:    cfg.GetMapFitPadding(),
			TileURL:       cfg.GetMapTileURL(),
			IdleTimeout:   cfg.GetViewIdleTimeout(),
		},
	})
	defer manager.Close()

	authModule := auth.NewModule(casametrixAPI, sessions, eventBus, clk, messages.Default, val, log)
	mapsModule := maps.NewModule(provider, cfg.GetAutocompleteLimit(), val)
	viewsModule := views.NewModule(manager, val, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		Metrics:  collector,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			mapsModule,
			viewsModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.GetHTTPAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// SSE streams end once their views are unmounted.
		manager.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		eventBus.Wait()
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func mustClient(service, baseURL string, cfg *config.Config, log *logger.Logger, collector *metrics.Collector) *apiclient.Client {
	client, err := apiclient.New(service, baseURL, cfg.GetAPITimeout(), log, apiclient.WithMetrics(collector))
	if err != nil {
		log.Error("failed to initialize api client", "service", service, "error", err)
		panic(fmt.Sprintf("failed to initialize %s client: %v", service, err))
	}
	return client
}

func initProvider(cfg *config.Config, casametrixAPI *apiclient.Client, log *logger.Logger, collector *metrics.Collector) autocomplete.Provider {
	var provider autocomplete.Provider
	switch cfg.GetAutocompleteProvider() {
	case "ban":
		provider = autocomplete.NewBANProvider(mustClient("ban", cfg.GetBANURL(), cfg, log, collector))
	case "nominatim":
		provider = maps.NewService(mustClient("nominatim", cfg.GetNominatimURL(), cfg, log, collector), cfg.GetNominatimCountryCodes())
	default:
		provider = autocomplete.NewCasametrixProvider(casametrixAPI)
	}
	if ttl := cfg.GetAutocompleteCacheTTL(); ttl > 0 {
		provider = autocomplete.NewCachingProvider(provider, ttl)
	}
	log.Info("autocomplete provider ready", "provider", cfg.GetAutocompleteProvider(), "cache_ttl", cfg.GetAutocompleteCacheTTL().String())
	return provider
}

func initLocators(cfg *config.Config, log *logger.Logger, collector *metrics.Collector) func(string) geolocation.Locator {
	switch cfg.GetGeolocationProvider() {
	case "static":
		lat, lng, _ := cfg.GetGeolocationStatic()
		loc := geolocation.Static(geo.Point{Lat: lat, Lng: lng})
		return func(string) geolocation.Locator { return loc }
	case "ipapi":
		ip := geolocation.NewIPLocator(mustClient("ipapi", cfg.GetIPAPIURL(), cfg, log, collector))
		return ip.For
	default:
		log.Warn("server side geolocation disabled; only browser reports are used")
		return nil
	}
}

// initTokenStore picks Redis when REDIS_URL is set and the in-memory store
// otherwise.
func initTokenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (session.TokenStore, apphttp.HealthChecker, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sessions are kept in memory")
		return session.NewMemoryStore(cfg.GetSessionTTL()), nil, func() {}
	}

	store, err := session.NewRedisStore(ctx, cfg.GetRedisURL(), cfg.GetSessionTTL())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis token store connected")
	return store, store, func() { _ = store.Close() }
}

// subscribeAudit logs the domain events worth keeping in the access trail.
func subscribeAudit(bus *events.InMemoryBus, log *logger.Logger) {
	audit := log.WithComponent("audit")
	handler := events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		audit.Info("domain event", "event", e.EventName(), "payload", e)
		return nil
	})
	for _, name := range []string{
		events.ViewMounted{}.EventName(),
		events.ViewUnmounted{}.EventName(),
		events.AddressSaved{}.EventName(),
		events.QuotaExceeded{}.EventName(),
		events.UserLoggedIn{}.EventName(),
		events.UserLoggedOut{}.EventName(),
	} {
		bus.Subscribe(name, handler)
	}
}
