package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ratingsite/api/handlers"
	"ratingsite/api/middleware"
	"ratingsite/api/routes"
	"ratingsite/config"
	"ratingsite/db"
	"ratingsite/logging"
	"ratingsite/services"
)

const (
	serviceName        = "ratingsite"
	defaultEventsQueue = "ratingsite_friend_events"
	shutdownTimeout    = 10 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	conf, err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logging.Init(logging.Config{Level: conf.Logs.Level, Dev: conf.Logs.Dev})
	if err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, conf, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, conf *config.ConfigSchema, log *zap.Logger) error {
	store, err := db.ConnectDB(conf, log)
	if err != nil {
		return err
	}
	defer store.Close()

	creds := services.NewCredentials(conf.JWT.Secret, conf.JWT.TTL)
	conns := services.NewWSConnManager()
	notifier := services.NewNotifier(conns, log)

	var cache services.FriendCache
	if addr := conf.Redis.Addr(); addr != "" {
		client, err := services.NewRedisClient(ctx, addr, conf.Redis.Password, conf.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, friends cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cache = services.NewRedisFriendCache(client, conf.Redis.TTL, log)
		}
	}

	var events services.EventPublisher = services.LocalPublisher{Handle: notifier.HandleFriendEvent}
	if conf.RabbitMQ.URL != "" {
		bus, err := services.NewEventBus(conf.RabbitMQ.URL, log)
		if err != nil {
			return err
		}
		defer bus.Close()

		queue := conf.RabbitMQ.Queue
		if queue == "" {
			queue = defaultEventsQueue
		}
		if err = bus.StartConsumer(ctx, queue, notifier.HandleFriendEvent); err != nil {
			return err
		}
		events = bus
	}

	users := services.NewUserService(store, creds, log)
	friends := services.NewFriendService(store, users, cache, events, log)
	ratings := services.NewRatingService(store, users, log)
	h := &handlers.Handlers{
		Users:   users,
		Friends: friends,
		Ratings: ratings,
		Info:    services.NewInfoService(users, friends, ratings),
		Conns:   conns,
		Log:     log,
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.PrometheusMiddleware(serviceName))
	router.Use(gin.Recovery())
	routes.PublicApi(router, h, creds)

	srv := &http.Server{
		Addr:    conf.Addr(),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server...", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
