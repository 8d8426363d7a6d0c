package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/config"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/handlers"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/health"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/middleware"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/proxy"
	"github.com/opsdeck/opsdeck-backend/internal/gateway/stream"
	"github.com/opsdeck/opsdeck-backend/pkg/eventbus"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
	metricspkg "github.com/opsdeck/opsdeck-backend/pkg/metrics"
)

// Server wires the proxy table, inbox client, realtime stream and health
// probes into one HTTP surface.
type Server struct {
	logger      logging.Logger
	router      *gin.Engine
	httpServer  *http.Server
	collector   *metricspkg.Collector
	metrics     *gatewaymetrics.Metrics
	forwarder   *proxy.Forwarder
	inboxClient *inbox.Client
	bus         *eventbus.EventBus
	hub         *stream.Hub
	bridge      *stream.Bridge
	streamView  *stream.Handler
	prober      *health.Prober
}

// NewServer assembles the gateway from the loaded configuration. The inbox
// client and realtime bridge are optional; the proxy table is not.
func NewServer(logger logging.Logger) (*Server, error) {
	table, err := proxy.LoadTable(config.GetUpstreamsConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load upstream table: %w", err)
	}

	collector := metricspkg.NewCollector("gateway")
	m := gatewaymetrics.New()
	m.RegisterWith(collector)

	forwarder, err := proxy.NewForwarder(logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy forwarder: %w", err)
	}

	var inboxClient *inbox.Client
	if config.GetInboxBaseURL() != "" && config.GetInboxAccessToken() != "" {
		inboxClient, err = inbox.NewClient(logger, inbox.Config{
			BaseURL:     config.GetInboxBaseURL(),
			AccessToken: config.GetInboxAccessToken(),
			AccountID:   config.GetInboxAccountID(),
		})
		if err != nil {
			forwarder.Close()
			return nil, fmt.Errorf("failed to create inbox client: %w", err)
		}
	} else {
		logger.Warn("Inbox credentials not set, inbox endpoints and realtime stream are disabled")
	}

	bus := eventbus.New(logger)
	hub := stream.NewHub(logger, m)

	var bridge *stream.Bridge
	if config.IsStreamEnabled() && config.GetInboxCableURL() != "" && inboxClient != nil {
		bridge, err = stream.NewBridge(logger, stream.BridgeConfig{
			CableURL:  config.GetInboxCableURL(),
			AccountID: config.GetInboxAccountID(),
		}, inboxClient, hub, bus, m)
		if err != nil {
			forwarder.Close()
			inboxClient.Close()
			return nil, fmt.Errorf("failed to create stream bridge: %w", err)
		}
	}

	prober, err := health.NewProber(logger, m, config.GetProbeSchedule(), probeTargets(table))
	if err != nil {
		forwarder.Close()
		if inboxClient != nil {
			inboxClient.Close()
		}
		return nil, fmt.Errorf("failed to create health prober: %w", err)
	}

	router := gin.New()

	s := &Server{
		logger:      logger,
		router:      router,
		collector:   collector,
		metrics:     m,
		forwarder:   forwarder,
		inboxClient: inboxClient,
		bus:         bus,
		hub:         hub,
		bridge:      bridge,
		streamView:  stream.NewHandler(logger, hub, bridge, config.GetInboxAccountID(), config.GetAllowedOrigins()),
		prober:      prober,
	}

	s.setupRoutes(table)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.GetAllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Content-Length", "Accept-Encoding", "Origin", "X-Requested-With", "X-Request-ID"},
		AllowCredentials: true,
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", config.GetGatewayPort()),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes(table *proxy.Table) {
	handler := handlers.NewHandler(s.logger, s.inboxClient, s.prober)

	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.AccessLog(s.logger, s.metrics))

	s.router.GET("/health", handler.HandleHealth)
	s.router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	s.router.GET("/ws/stream", s.streamView.ServeStream)

	api := s.router.Group("/api")
	api.GET("/stream/status", s.streamView.Status)
	api.GET("/inbox/conversations", handler.HandleListConversations)
	api.POST("/inbox/conversations/:id/toggle_status", handler.HandleToggleConversation)

	s.forwarder.Mount(s.router, table)
}

// probeTargets builds the health probe list from the proxy table plus the
// inbox platform when one is configured.
func probeTargets(table *proxy.Table) []health.Target {
	targets := make([]health.Target, 0, len(table.Upstreams)+1)
	for _, upstream := range table.Upstreams {
		targets = append(targets, health.Target{Name: upstream.Name, URL: upstream.ProbeURL()})
	}
	if config.GetInboxBaseURL() != "" {
		targets = append(targets, health.Target{Name: "inbox", URL: config.GetInboxBaseURL()})
	}
	return targets
}

// Handler returns the full HTTP handler including the CORS wrapper. Tests
// and custom deployments serve this instead of calling Start.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs all background components and then serves HTTP. It blocks
// until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.collector.Start()
	go s.hub.Run()

	if err := s.prober.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health prober: %w", err)
	}

	if s.bridge != nil {
		if err := s.bridge.Start(ctx); err != nil {
			// REST and proxy traffic still work without the bridge.
			s.logger.Errorf("Failed to start realtime bridge: %v", err)
		}
	}

	s.logger.Infof("Gateway listening on port %s", config.GetGatewayPort())
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	return nil
}

// Shutdown drains the HTTP server and stops every background component.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down gateway...")

	err := s.httpServer.Shutdown(ctx)

	if s.bridge != nil {
		s.bridge.Stop()
	}
	s.hub.Shutdown()
	s.prober.Stop()
	s.forwarder.Close()
	if s.inboxClient != nil {
		s.inboxClient.Close()
	}
	s.collector.Stop()

	return err
}
