package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"loadtest-server/internal/config"
	"loadtest-server/internal/dispatcher"
	"loadtest-server/internal/endpoints"
	"loadtest-server/internal/loadtest"
	"loadtest-server/internal/reporter"
	"loadtest-server/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var (
	configFile = kingpin.Flag("config", "Path to a yaml or json config file.").Short('c').String()
	ip         = kingpin.Flag("ip", "Server IP Address.").String()
	port       = kingpin.Flag("port", "Server Port.").String()
	debug      = kingpin.Flag("debug", "Enable debug logging.").Bool()
	backend    = kingpin.Flag("store", "Run history backend (local, redis, sqlite).").Enum(config.LocalBackend, config.RedisBackend, config.SQLiteBackend)
	redisAddr  = kingpin.Flag("redis-addr", "Redis address for the redis backend.").Envar("REDIS_ADDR").String()
	sqlitePath = kingpin.Flag("sqlite-path", "Database file for the sqlite backend.").String()
)

func main() {
	kingpin.Parse()

	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := newStore(cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("Failed to open run store")
	}
	defer st.Close()

	logger := log.WithField("service", "loadtest-server")
	prom := endpoints.NewPrometheus("loadtest")
	engine := loadtest.NewEngine(
		loadtest.WithCeilings(cfg.Engine.MaxTotalRequests, cfg.Engine.MaxConcurrentRequests),
		loadtest.WithRequestTimeout(time.Duration(cfg.Engine.RequestTimeout)),
		loadtest.WithUserAgent(cfg.Engine.UserAgent),
		loadtest.WithObserver(prom.ObserveRequest),
		loadtest.WithLogger(logger.WithField("component", "engine")),
	)
	e := endpoints.NewEndpoints(
		dispatcher.NewDispatcher(engine, st, cfg.MaxActiveRuns, logger),
		reporter.NewReporter(st),
		logger,
	)

	srv := newServer(cfg.Addr(), e.SetupRouter(prom))

	go func() {
		logger.WithFields(log.Fields{
			"addr":  cfg.Addr(),
			"store": cfg.Store.Backend,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// loadConfig reads the optional config file and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}

	if *ip != "" {
		cfg.Server.IP = *ip
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *redisAddr != "" {
		cfg.Store.RedisAddr = *redisAddr
	}
	if *sqlitePath != "" {
		cfg.Store.SQLitePath = *sqlitePath
	}

	return cfg, cfg.Validate()
}

func newStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.RedisBackend:
		rs, err := store.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return rs, nil
	case config.SQLiteBackend:
		ss, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return ss, nil
	case config.LocalBackend:
		return store.NewLocalStore(), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}
