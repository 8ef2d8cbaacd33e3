// Signage node - watches one camera, decides what to show, and reports
// dwell heatmaps. Configuration comes from flags with env fallbacks.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/edgesight/go-signage/internal/config"
	"github.com/edgesight/go-signage/internal/log"
	"github.com/edgesight/go-signage/pkg/attribute"
	"github.com/edgesight/go-signage/pkg/decision"
	"github.com/edgesight/go-signage/pkg/detect"
	"github.com/edgesight/go-signage/pkg/heatmap"
	"github.com/edgesight/go-signage/pkg/persona"
	"github.com/edgesight/go-signage/pkg/pipeline"
	"github.com/edgesight/go-signage/pkg/rules"
	"github.com/edgesight/go-signage/pkg/sink"
	"github.com/edgesight/go-signage/pkg/track"
	"github.com/edgesight/go-signage/pkg/web"
)

type options struct {
	cameraURL   string
	cameraID    string
	rulesPath   string
	port        string
	heatDir     string
	interval    time.Duration
	noHeatmap   bool
	noDashboard bool
}

func main() {
	log.Init(os.Getenv("LOG_LEVEL"))
	opts := parseFlags()

	ruleFile, err := rules.Load(opts.rulesPath)
	if err != nil {
		log.Error("failed to load rules", "path", opts.rulesPath, "error", err)
		os.Exit(1)
	}
	log.Info("rules loaded", "path", opts.rulesPath, "rules", len(ruleFile.Rules))

	detector, err := detect.New(detect.DefaultConfig())
	if err != nil {
		log.Error("no detection backend", "error", err)
		os.Exit(1)
	}

	estimator, err := attribute.New(attribute.DefaultConfig())
	if err != nil {
		log.Error("no attribute backend", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := pipeline.OpenSource(opts.cameraURL)
	if err != nil {
		log.Error("failed to open camera", "url", opts.cameraURL, "error", err)
		os.Exit(1)
	}
	defer src.Close()

	// One probe frame up front: it validates the camera and fixes the
	// heatmap grid dimensions.
	probe, err := src.Next(ctx)
	if err != nil {
		log.Error("camera unreachable", "url", opts.cameraURL, "error", err)
		os.Exit(1)
	}
	log.Info("camera online", "url", opts.cameraURL, "width", probe.Width, "height", probe.Height)

	var heat *heatmap.Tracker
	if !opts.noHeatmap {
		heat = heatmap.New(heatmap.DefaultConfig(), opts.cameraID, probe.Width, probe.Height)
	}

	tracker := track.New(track.DefaultConfig())
	sinks := sink.Multi{sink.LogSink{}}

	if url := config.PlayerURL(); url != "" {
		sinks = append(sinks, sink.NewPlayerSink(url))
		log.Info("display player configured", "url", url)
	}

	var dashboard *web.Server
	if !opts.noDashboard {
		dashboard = web.NewServer(opts.port, opts.cameraID, ruleFile.Rules)
		if heat != nil {
			dashboard.OnHeatReport = func() heatmap.Report {
				return heat.Snapshot(time.Now())
			}
		}
		sinks = append(sinks, dashboard)
		dashboard.StartAsync()
	}

	p := pipeline.New(
		pipeline.Config{
			CameraID:       opts.cameraID,
			MinPersonScore: ruleFile.MinPersonScore(),
		},
		pipeline.Deps{
			Detector:  detector,
			Estimator: estimator,
			Tracker:   tracker,
			Fuser:     persona.New(ruleFile.FusionConfig()),
			Engine:    decision.NewEngine(ruleFile.EngineConfig(), ruleFile.Rules),
			Heat:      heat,
			Sink:      sinks,
		},
	)
	defer p.Close()

	var frames uint64
	if dashboard != nil {
		p.OnResult = func(pipeline.Result) {
			frames++
			n := frames
			dashboard.UpdateStatus(func(st *web.Status) {
				st.FramesSeen = n
				st.LiveTracks = tracker.LiveCount()
			})
		}
	}

	if _, err := p.ProcessFrame(probe); err != nil {
		log.Warn("probe frame dropped", "error", err)
	}

	log.Info("signage node running", "camera", opts.cameraID, "interval", opts.interval)
	if err := p.Run(ctx, src, opts.interval); err != nil && ctx.Err() == nil {
		log.Error("pipeline stopped", "error", err)
	}

	shutdown(heat, dashboard, opts.heatDir)
}

// shutdown writes the final heat report and stops the dashboard.
func shutdown(heat *heatmap.Tracker, dashboard *web.Server, heatDir string) {
	if heat != nil {
		now := time.Now()
		path, err := heat.SaveReport(heatDir, now)
		if err != nil {
			log.Error("failed to save heat report", "error", err)
		} else {
			log.Info("heat report saved", "path", path)
			master := filepath.Join(heatDir, "master_heatmap.json")
			if _, err := heatmap.CombineReports(heatDir, master, now); err != nil {
				log.Warn("failed to combine heat reports", "error", err)
			}
		}
	}
	if dashboard != nil {
		if err := dashboard.Shutdown(); err != nil {
			log.Warn("dashboard shutdown", "error", err)
		}
	}
}

// parseFlags merges command line flags with environment fallbacks.
func parseFlags() options {
	cameraURL := flag.String("camera-url", "", "Snapshot camera URL (overrides CAMERA_URL)")
	cameraID := flag.String("camera-id", "", "Camera identifier (overrides CAMERA_ID)")
	rulesPath := flag.String("rules", "", "Persona rules YAML path (overrides RULES_PATH)")
	port := flag.String("port", "", "Dashboard port (overrides DASHBOARD_PORT)")
	heatDir := flag.String("heat-dir", "", "Heat report output dir (overrides HEAT_OUT_DIR)")
	intervalMs := flag.Int("interval-ms", 0, "Frame interval in ms (overrides FRAME_INTERVAL_MS)")
	noHeatmap := flag.Bool("no-heatmap", false, "Disable dwell heatmap tracking")
	noDashboard := flag.Bool("no-dashboard", false, "Disable the web dashboard")
	flag.Parse()

	opts := options{
		cameraURL:   *cameraURL,
		cameraID:    *cameraID,
		rulesPath:   *rulesPath,
		port:        *port,
		heatDir:     *heatDir,
		noHeatmap:   *noHeatmap,
		noDashboard: *noDashboard,
		interval:    time.Second,
	}
	if opts.cameraURL == "" {
		opts.cameraURL = config.CameraURL()
	}
	if opts.cameraID == "" {
		opts.cameraID = config.CameraID()
	}
	if opts.rulesPath == "" {
		opts.rulesPath = config.RulesPath()
	}
	if opts.port == "" {
		opts.port = config.DashboardPort()
	}
	if opts.heatDir == "" {
		opts.heatDir = config.HeatOutDir()
	}
	if *intervalMs > 0 {
		opts.interval = time.Duration(*intervalMs) * time.Millisecond
	} else {
		opts.interval = config.FrameInterval(time.Second)
	}
	return opts
}
