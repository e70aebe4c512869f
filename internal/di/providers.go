package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"LeoneAI/internal/domain/models"
	drepo "LeoneAI/internal/domain/repository"
	"LeoneAI/internal/handler/api"
	mid "LeoneAI/internal/middleware"
	internalrepo "LeoneAI/internal/repository"
	"LeoneAI/internal/service/backend"
	"LeoneAI/internal/service/coingecko"
	"LeoneAI/internal/service/feed"
	"LeoneAI/internal/service/ratelimit"
	"LeoneAI/internal/usecase"
	pkgcache "LeoneAI/pkg/cache"
	pkgch "LeoneAI/pkg/clickhouse"
	"LeoneAI/pkg/config"
	pkghttp "LeoneAI/pkg/http"
	pkgkafka "LeoneAI/pkg/kafka"
	applogger "LeoneAI/pkg/logger"
	"LeoneAI/pkg/metrics"
	"LeoneAI/pkg/securestore"
	"LeoneAI/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

const tickTable = "ticks"

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry every collector registers on.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideSessionBackend opens the key/value store behind the session.
func ProvideSessionBackend(cfg *config.Config) (pkgcache.Service, func(), error) {
	var (
		svc pkgcache.Service
		err error
	)
	switch cfg.Session.Store {
	case "redis":
		svc, err = pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Session.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Session.Redis.Password),
			pkgcache.WithRedisDB(cfg.Session.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Session.Prefix),
		)
	case "memory":
		svc = pkgcache.NewMemoryCache()
	default:
		var key []byte
		if key, err = securestore.ParseKey(cfg.Session.EncryptionKey); err != nil {
			return nil, nil, fmt.Errorf("session encryption key: %w", err)
		}
		if err = os.MkdirAll(filepath.Dir(cfg.Session.Path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("session dir: %w", err)
		}
		svc, err = securestore.Open(securestore.OpenOptions{Path: cfg.Session.Path, EncryptionKey: key})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("session store %s: %w", cfg.Session.Store, err)
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideSessionStore adapts the backend to the session store contract.
func ProvideSessionStore(svc pkgcache.Service, cfg *config.Config) drepo.SessionStore {
	return internalrepo.NewCacheSessionStore(svc, cfg.Session.Store)
}

// ProvideHTTPClient creates the authenticated backend client. The token
// source is attached once the session manager exists.
func ProvideHTTPClient(cfg *config.Config, rec *metrics.Recorder, l *applogger.Logger) *pkghttp.Client {
	return pkghttp.NewClient(
		pkghttp.WithBaseURL(cfg.API.BaseURL+cfg.API.Prefix),
		pkghttp.WithTimeout(cfg.API.Timeout),
		pkghttp.WithRefreshPath(cfg.API.RefreshPath),
		pkghttp.WithObserver(rec),
		pkghttp.WithLogger(l),
	)
}

// ProvideBackend wraps the client in the typed endpoint facade.
func ProvideBackend(client *pkghttp.Client) *backend.Service {
	return backend.NewService(client)
}

// ProvideSessionManager creates the session owner and registers it as the
// client's token source.
func ProvideSessionManager(store drepo.SessionStore, svc *backend.Service, client *pkghttp.Client, l *applogger.Logger) *usecase.SessionManager {
	m := usecase.NewSessionManager(store, svc, l)
	client.SetTokenSource(m)
	return m
}

// ProvideSettings creates the settings manager.
func ProvideSettings(store drepo.SessionStore, svc *backend.Service, session *usecase.SessionManager, l *applogger.Logger) *usecase.SettingsManager {
	return usecase.NewSettingsManager(store, svc, session.IsAuthenticated, l)
}

// ProvideConverter builds the fixed-rate USD/SLL converter.
func ProvideConverter(cfg *config.Config) models.Converter {
	return models.NewConverter(cfg.Currency.USDToSLL)
}

// ProvideCoinGecko creates the public market data client, or nil when disabled.
func ProvideCoinGecko(cfg *config.Config, conv models.Converter, l *applogger.Logger) *coingecko.Client {
	if !cfg.CoinGecko.Enabled {
		return nil
	}
	return coingecko.NewClient(cfg.CoinGecko.BaseURL,
		coingecko.WithTimeout(cfg.CoinGecko.Timeout),
		coingecko.WithRetry(2, time.Second, 10*time.Second),
		coingecko.WithPerPage(cfg.CoinGecko.PerPage),
		coingecko.WithConverter(conv),
		coingecko.WithLogger(l),
	)
}

// ProvideFeedClient creates the real-time feed client.
func ProvideFeedClient(cfg *config.Config, session *usecase.SessionManager, rec *metrics.Recorder, l *applogger.Logger) *feed.Client {
	return feed.NewClient(cfg.WebSocketBaseURL(),
		feed.WithPrefix(cfg.API.Prefix),
		feed.WithReconnectDelay(cfg.Feed.ReconnectDelay),
		feed.WithPingInterval(cfg.Feed.PingInterval),
		feed.WithBufferSize(cfg.Feed.BufferSize),
		feed.WithToken(session.AccessToken),
		feed.WithObserver(rec),
		feed.WithLogger(l),
	)
}

// ProvideLocalTicks keeps recent ticks in memory for the local API.
func ProvideLocalTicks(cfg *config.Config) *internalrepo.MemoryTickStorage {
	return internalrepo.NewMemoryTickStorage(cfg.Feed.BufferSize * 64)
}

// ProvideKafkaProducer creates a Kafka producer when the kafka sink is selected.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Sink.Type != usecase.SinkKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(pkgkafka.SinkOptions(cfg.Sink, cfg.Kafka)...)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse and prepares the tick table
// when the clickhouse sink is selected.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Sink.Type != usecase.SinkClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, 10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, pkgch.TickSchema(cfg.ClickHouse.Database, tickTable)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTickProcessor routes ticks to the selected sink.
func ProvideTickProcessor(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client, rec *metrics.Recorder) *usecase.TickProcessor {
	var (
		pub   drepo.TickPublisher
		store drepo.TickStorage
	)
	if producer != nil {
		pub = internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
	}
	if ch != nil {
		store = internalrepo.NewClickHouseTickStorage(ch.DB(), cfg.ClickHouse.Database+"."+tickTable)
	}
	return usecase.NewTickProcessor(pub, store, rec, cfg.Sink.Type)
}

// ProvidePipeline throttles and buffers ticks between the feed and the sink.
func ProvidePipeline(cfg *config.Config, proc *usecase.TickProcessor, rec *metrics.Recorder) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(proc, rec,
		mid.WithMaxRPS(cfg.Sink.MaxRPS),
		mid.WithBufferSize(cfg.Sink.BatchSize*20),
	)
}

// ProvideTickCollector keeps the watched symbols streaming.
func ProvideTickCollector(cfg *config.Config, client *feed.Client, local *internalrepo.MemoryTickStorage, pipe *mid.RealtimePipeline, l *applogger.Logger) *usecase.TickCollector {
	return usecase.NewTickCollector(client, cfg.Feed.Symbols, cfg.Feed.Multiplex, local, pipe, l)
}

// ProvideCandles aggregates from ClickHouse when it is the sink, otherwise
// from the in-memory ticks.
func ProvideCandles(cfg *config.Config, ch *pkgch.Client, local *internalrepo.MemoryTickStorage, l *applogger.Logger) *usecase.CandlesUseCase {
	if ch != nil {
		return usecase.NewCandlesUseCase(internalrepo.NewCHCandleStore(ch.DB(), cfg.ClickHouse.Database+"."+tickTable, l))
	}
	return usecase.NewCandlesUseCase(internalrepo.NewTickCandleStore(local))
}

// ProvideDashboard builds the polled dashboard.
func ProvideDashboard(cfg *config.Config, svc *backend.Service, gecko *coingecko.Client, session *usecase.SessionManager, rec *metrics.Recorder, l *applogger.Logger) *usecase.Dashboard {
	var public usecase.PublicMarkets
	if gecko != nil {
		public = gecko
	}
	return usecase.NewDashboard(svc, public, session, usecase.DashboardConfig{
		Symbols:      cfg.Feed.Symbols,
		Interval:     cfg.Polling.Interval,
		SignalsLimit: cfg.Polling.SignalsLimit,
		QuoteTTL:     cfg.Polling.Interval / 2,
	}, rec, l)
}

// ProvideAdmin gates the admin endpoints on the superuser flag.
func ProvideAdmin(svc *backend.Service, session *usecase.SessionManager) *usecase.Admin {
	return usecase.NewAdmin(svc, session)
}

// ProvideRouter assembles the local API handlers.
func ProvideRouter(
	cfg *config.Config,
	session *usecase.SessionManager,
	settings *usecase.SettingsManager,
	dashboard *usecase.Dashboard,
	admin *usecase.Admin,
	collector *usecase.TickCollector,
	local *internalrepo.MemoryTickStorage,
	candles *usecase.CandlesUseCase,
	gecko *coingecko.Client,
	l *applogger.Logger,
) *api.Router {
	rl := ratelimit.New()
	var coins api.CoinLister
	if gecko != nil {
		coins = gecko
	}
	orders := map[string]string{
		api.ListTop:     coingecko.OrderMarketCap,
		api.ListGainers: coingecko.OrderGainers,
		api.ListVolume:  coingecko.OrderVolume,
	}
	return api.NewRouter(collector,
		api.NewSessionHandler(session, rl, l),
		api.NewDashboardHandler(dashboard, session, rl, l),
		api.NewMarketHandler(local, candles, coins, orders, cfg.Polling.Interval, l),
		api.NewSettingsHandler(settings, l),
		api.NewAdminHandler(admin, l),
	)
}

// ProvideHTTPServer creates the local API server.
func ProvideHTTPServer(cfg *config.Config, router *api.Router, reg *prometheus.Registry, l *applogger.Logger) *pkghttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return pkghttp.NewServer(router,
		pkghttp.WithHost(cfg.Server.Host),
		pkghttp.WithPort(cfg.Server.Port),
		pkghttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		pkghttp.WithCORS(cfg.Server.CORS.AllowOrigins, cfg.Server.CORS.AllowMethods),
		pkghttp.WithMetrics(metricsPath, reg, reg),
		pkghttp.WithServerLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	session *usecase.SessionManager,
	settings *usecase.SettingsManager,
	dashboard *usecase.Dashboard,
	collector *usecase.TickCollector,
	processor *usecase.TickProcessor,
	feeds *feed.Client,
	httpServer *pkghttp.Server,
) *server.App {
	return server.New(cfg, l, session, settings, dashboard, collector, processor, feeds, httpServer)
}

// Console is the dependency set of the one-shot CLI commands.
type Console struct {
	Config    *config.Config
	Log       *applogger.Logger
	Session   *usecase.SessionManager
	Settings  *usecase.SettingsManager
	Backend   *backend.Service
	Feed      *feed.Client
	Converter models.Converter
}

// ProvideConsole groups the CLI dependencies.
func ProvideConsole(cfg *config.Config, l *applogger.Logger, session *usecase.SessionManager, settings *usecase.SettingsManager, svc *backend.Service, client *feed.Client, conv models.Converter) *Console {
	return &Console{Config: cfg, Log: l, Session: session, Settings: settings, Backend: svc, Feed: client, Converter: conv}
}
