// Package web provides the real-time dashboard for a signage node.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/decision"
	"github.com/edgesight/go-signage/pkg/heatmap"
	"github.com/edgesight/go-signage/pkg/hub"
	"github.com/edgesight/go-signage/pkg/sink"
)

// maxRecentDecisions bounds the decision ring buffer served by the API.
const maxRecentDecisions = 200

// Status is the node state snapshot served to the dashboard.
type Status struct {
	SessionID    string    `json:"session_id"`
	CameraID     string    `json:"camera_id"`
	StartedAt    time.Time `json:"started_at"`
	FramesSeen   uint64    `json:"frames_seen"`
	PeopleCount  int       `json:"people_count"`
	LiveTracks   int       `json:"live_tracks"`
	LastCreative string    `json:"last_creative"`
	LastReason   string    `json:"last_reason"`
}

// Server is the dashboard HTTP and websocket server. It also implements
// sink.Sink so the pipeline can publish decisions straight to it.
type Server struct {
	app  *fiber.App
	port string

	status   Status
	statusMu sync.RWMutex

	decisions   []sink.Event
	decisionsMu sync.RWMutex

	rules []decision.Rule

	statusHub   *hub.Hub
	decisionHub *hub.Hub

	// OnHeatReport supplies the current heatmap snapshot for the API.
	OnHeatReport func() heatmap.Report
}

// NewServer creates a dashboard server for the given camera.
func NewServer(port, cameraID string, rules []decision.Rule) *Server {
	s := &Server{
		port: port,
		status: Status{
			SessionID: uuid.NewString(),
			CameraID:  cameraID,
			StartedAt: time.Now(),
		},
		decisions:   make([]sink.Event, 0, maxRecentDecisions),
		rules:       rules,
		statusHub:   hub.New("status"),
		decisionHub: hub.New("decisions"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Signage Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/decisions", s.handleDecisions)
	api.Get("/rules", s.handleRules)
	api.Get("/heatmap", s.handleHeatReport)

	app.Get("/metrics", metricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/decisions", websocket.New(s.handleDecisionsWS))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.decisionHub.Run()

	log.Info("dashboard listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server stopped", "error", err)
		}
	}()
}

// UpdateStatus applies a mutation to the node status and broadcasts the
// result to status websocket clients.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	snapshot := s.status
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(snapshot)
}

// Publish records a decision event and broadcasts it. Implements sink.Sink.
func (s *Server) Publish(ev sink.Event) error {
	s.decisionsMu.Lock()
	s.decisions = append(s.decisions, ev)
	if len(s.decisions) > maxRecentDecisions {
		s.decisions = s.decisions[1:]
	}
	s.decisionsMu.Unlock()

	s.UpdateStatus(func(st *Status) {
		st.LastCreative = ev.Creative
		st.LastReason = ev.Reason
		st.PeopleCount = ev.PeopleCount
	})

	return s.decisionHub.BroadcastJSON(ev)
}

// Close implements sink.Sink. The server itself is stopped via Shutdown.
func (s *Server) Close() error {
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
