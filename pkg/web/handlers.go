package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgesight/go-signage/pkg/hub"
)

// handleStatus returns the current node status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleDecisions returns the recent decision events, newest last.
func (s *Server) handleDecisions(c *fiber.Ctx) error {
	s.decisionsMu.RLock()
	defer s.decisionsMu.RUnlock()
	return c.JSON(s.decisions)
}

// handleRules returns the loaded rule set in evaluation order.
func (s *Server) handleRules(c *fiber.Ctx) error {
	return c.JSON(s.rules)
}

// handleHeatReport returns the current dwell report.
func (s *Server) handleHeatReport(c *fiber.Ctx) error {
	if s.OnHeatReport == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "heatmap not enabled",
		})
	}
	return c.JSON(s.OnHeatReport())
}

// metricsHandler wraps the Prometheus handler for fiber.
func metricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// handleStatusWS streams status snapshots; the current state is sent on
// connect so new clients do not wait for the next update.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.statusMu.RLock()
	c.WriteJSON(s.status)
	s.statusMu.RUnlock()

	hub.NewClient(s.statusHub, c).Run()
}

// handleDecisionsWS streams decision events as they are made.
func (s *Server) handleDecisionsWS(c *websocket.Conn) {
	hub.NewClient(s.decisionHub, c).Run()
}
