// Package service wires repositories, caches, notifiers and the domain
// services into the running yachtcrew-core process.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/database"
	"github.com/debranko/obedio-yacht-crew-management-sub003/common/mqtt"
	rediscommon "github.com/debranko/obedio-yacht-crew-management-sub003/common/redis"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/config"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/consumer"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/duty"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/guest"
	httpapi "github.com/debranko/obedio-yacht-crew-management-sub003/internal/http"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/metrics"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/notifier"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/roster"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// rosterRepo shifts, assignments and crew share one backing store
type rosterRepo interface {
	repository.ShiftRepository
	repository.AssignmentRepository
	repository.CrewRepository
}

type guestsRepo interface {
	repository.GuestRepository
	repository.LocationRepository
}

type requestsRepo interface {
	repository.ServiceRequestRepository
	repository.HistoryRepository
}

// CoreService yachtcrew-core: duty status, roster, guests and service requests
type CoreService struct {
	config *config.Config
	logger *zap.Logger

	db         *sql.DB
	redis      *rediscommon.Client
	mqttClient *mqtt.Client

	metrics  *metrics.Metrics
	hub      *notifier.Hub
	Duty     *duty.Service
	Requests *request.Lifecycle
	consumer *consumer.ButtonConsumer
	router   *httpapi.Router
	server   *Server
}

// NewCoreService connects what is enabled and falls back to in-process
// storage when Postgres or Redis are unreachable.
func NewCoreService(cfg *config.Config, logger *zap.Logger) (*CoreService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := &CoreService{config: cfg, logger: logger, metrics: metrics.New()}
	loc := cfg.Location()

	var (
		rosterStore rosterRepo
		guests      guestsRepo
		requests    requestsRepo
	)
	if cfg.DBEnabled {
		if db, err := database.Open(ctx, &cfg.Database); err == nil {
			if err := repository.EnsureSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to prepare schema: %w", err)
			}
			s.db = db
			logger.Info("DB enabled for yachtcrew-core", zap.String("database", cfg.Database.Database))
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory", zap.Error(err))
		}
	}
	if s.db != nil {
		rosterStore = repository.NewPostgresRosterRepo(s.db, logger)
		guests = repository.NewPostgresGuestsRepo(s.db)
		requests = repository.NewPostgresRequestsRepo(s.db)
	} else {
		rosterStore = repository.NewMemoryRosterRepo()
		guests = repository.NewMemoryGuestsRepo()
		requests = repository.NewMemoryRequestsRepo()
	}

	var kv store.KV = store.NewMemoryKV()
	s.hub = notifier.NewHub(logger)
	publisher := notifier.NewMulti(s.metrics, logger, notifier.Sink{Name: "websocket", Publisher: s.hub})
	if cfg.RedisEnabled {
		if client, err := rediscommon.Connect(ctx, &cfg.Redis); err == nil {
			s.redis = client
			kv = store.NewRedisKV(client)
			publisher.Add("stream", notifier.NewStreamPublisher(client, cfg.Realtime.Stream, cfg.Realtime.MaxLen))
		} else {
			logger.Warn("Redis enabled but unreachable, using in-process cache", zap.Error(err))
		}
	}
	if cfg.MQTTEnabled {
		client, err := mqtt.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeConnections()
			return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = client
		publisher.Add("mqtt", notifier.NewMQTTPublisher(client, notifier.WatchTopics{
			Request: cfg.Topics.ServiceRequest,
			Update:  cfg.Topics.WatchUpdate,
		}, cfg.MQTT.QoS))
	}

	s.Duty = duty.NewService(
		duty.NewResolver(cfg.Duty.Department),
		duty.NewRepoSource(rosterStore, rosterStore, rosterStore),
		kv, publisher, s.metrics,
		duty.ServiceConfig{Location: loc, CacheTTL: cfg.Duty.CacheTTL, Tick: cfg.Duty.Tick},
		logger,
	)

	s.Requests = request.NewLifecycle(requests, requests, publisher, s.metrics, request.Config{
		ServingNowTimeout:      cfg.Lifecycle.ServingNowTimeout,
		StaleAssignedThreshold: cfg.Lifecycle.StaleAssignedThreshold,
		ReaperTick:             cfg.Lifecycle.ReaperTick,
	}, logger)
	if err := s.Requests.Load(ctx); err != nil {
		s.closeConnections()
		return nil, err
	}

	if s.mqttClient != nil {
		s.consumer = consumer.NewButtonConsumer(s.mqttClient, guests, guests, s.Requests, s.metrics,
			consumer.Topics{ButtonPress: cfg.Topics.ButtonPress, Command: cfg.Topics.DeviceCommand},
			cfg.MQTT.QoS, logger)
	}

	validator := roster.NewAvailabilityValidator(rosterStore, rosterStore, rosterStore)
	assignments := roster.NewAssignmentStore(rosterStore, validator, s.Duty, publisher, logger)

	s.router = httpapi.NewRouter(logger)
	s.router.RegisterHealth()
	s.router.RegisterDutyRoutes(httpapi.NewDutyHandler(s.Duty, rosterStore, rosterStore, logger))
	s.router.RegisterRosterRoutes(httpapi.NewRosterHandler(assignments, validator, rosterStore, rosterStore, loc, logger))
	s.router.RegisterGuestRoutes(httpapi.NewGuestHandler(guest.NewService(guests, logger), logger))
	s.router.RegisterRequestRoutes(httpapi.NewRequestHandler(s.Requests, loc, logger))
	s.router.HandleHandler("GET /ws", s.hub)
	s.router.HandleHandler("GET /metrics", s.metrics.Handler())

	s.server = NewServer(cfg.HTTP.Addr, s.router, logger)
	return s, nil
}

// Handler the full HTTP surface
func (s *CoreService) Handler() http.Handler {
	return s.router
}

// Addr the HTTP listen address once Start is running
func (s *CoreService) Addr() string {
	return s.server.Addr()
}

// Start runs the duty ticker, the request reaper, the button consumer and
// the HTTP server until ctx is cancelled or one of them fails.
func (s *CoreService) Start(ctx context.Context) error {
	s.logger.Info("Starting yachtcrew-core components")
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Duty.Run(ctx) })
	g.Go(func() error { return s.Requests.Run(ctx) })
	if s.consumer != nil {
		g.Go(func() error { return s.consumer.Start(ctx) })
	}
	g.Go(s.server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop releases broker, cache and database connections
func (s *CoreService) Stop(_ context.Context) error {
	s.logger.Info("Stopping yachtcrew-core")
	if s.consumer != nil {
		s.consumer.Stop()
	}
	s.hub.Close()
	s.closeConnections()
	s.logger.Info("yachtcrew-core stopped")
	return nil
}

func (s *CoreService) closeConnections() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Error closing Redis", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("Error closing database", zap.Error(err))
		}
	}
}
