// Package config provides environment configuration helpers for go-signage commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the signage runner.
const (
	DefaultDashboardPort = "8088"
	DefaultRulesPath     = "config/personas.yaml"
	DefaultHeatOutDir    = "heatmap_reports"
)

// CameraURL returns the snapshot camera URL from CAMERA_URL.
// Exits with a usage message if not set, since there is nothing
// sensible to fall back to.
func CameraURL() string {
	url := os.Getenv("CAMERA_URL")
	if url == "" {
		fmt.Fprintln(os.Stderr, "Error: CAMERA_URL environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: CAMERA_URL=http://cam1.local/snapshot.jpg go run ./cmd/signage")
		os.Exit(1)
	}
	return url
}

// CameraID returns the camera identifier from CAMERA_ID or the default.
func CameraID() string {
	if id := os.Getenv("CAMERA_ID"); id != "" {
		return id
	}
	return "cam1"
}

// RulesPath returns the persona rules file path from RULES_PATH or the default.
func RulesPath() string {
	if p := os.Getenv("RULES_PATH"); p != "" {
		return p
	}
	return DefaultRulesPath
}

// DashboardPort returns the dashboard port from DASHBOARD_PORT or the default.
func DashboardPort() string {
	if p := os.Getenv("DASHBOARD_PORT"); p != "" {
		return p
	}
	return DefaultDashboardPort
}

// HeatOutDir returns the heatmap report directory from HEAT_OUT_DIR or the default.
func HeatOutDir() string {
	if d := os.Getenv("HEAT_OUT_DIR"); d != "" {
		return d
	}
	return DefaultHeatOutDir
}

// PlayerURL returns the display player websocket URL from PLAYER_URL.
// Empty means decisions are only logged locally.
func PlayerURL() string {
	return os.Getenv("PLAYER_URL")
}

// FrameInterval returns the capture interval from FRAME_INTERVAL_MS.
func FrameInterval(def time.Duration) time.Duration {
	raw := os.Getenv("FRAME_INTERVAL_MS")
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
