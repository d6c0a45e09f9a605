package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-pointdex/internal/config"
	"github.com/teslashibe/go-pointdex/internal/log"
	"github.com/teslashibe/go-pointdex/internal/observe"
	"github.com/teslashibe/go-pointdex/pkg/audio"
	"github.com/teslashibe/go-pointdex/pkg/camera"
	"github.com/teslashibe/go-pointdex/pkg/flavor"
	"github.com/teslashibe/go-pointdex/pkg/inference"
	"github.com/teslashibe/go-pointdex/pkg/labels"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/presenter"
	"github.com/teslashibe/go-pointdex/pkg/web"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the live recognition loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Dashboard listen address",
			},
			&cli.StringFlag{
				Name:  "device",
				Usage: "Camera index, stream URL or video file",
			},
			&cli.BoolFlag{
				Name:  "no-web",
				Usage: "Disable the dashboard",
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Serve dashboard assets from this directory",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := log.L()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "pointdex",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			logger.Warn("metrics shutdown", "error", err)
		}
	}()

	table, book, err := loadAssets(cfg, logger)
	if err != nil {
		return err
	}

	grabber, err := camera.OpenDevice(cfg.Camera)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	capture := camera.NewCapture(grabber, cfg.Camera, logger)
	defer capture.Close()

	cams := camera.NewManager(cfg.Camera)
	cams.OnConfigChange = capture.Apply

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	defer classifier.Close()

	var (
		speaker    presenter.Speaker
		cmdSpeaker *audio.CommandSpeaker
	)
	if cfg.Narration.Command != "" {
		if cmdSpeaker, err = audio.NewCommandSpeaker(cfg.Narration.Command, logger); err != nil {
			return err
		}
		speaker = cmdSpeaker
	}
	narrator := presenter.NewNarrator(book, speaker,
		presenter.WithSpeakTimeout(cfg.Narration.Timeout),
		presenter.WithNarratorLogger(logger),
	)
	defer narrator.Stop()
	presenters := presenter.Multi{narrator}

	opts := []loop.Option{
		loop.WithLogger(logger),
		loop.WithMetrics(observe.Default()),
		loop.WithLabels(table),
	}

	var dashboard *web.Server
	if cfg.Web.Enabled {
		webOpts := []web.Option{
			web.WithLogger(logger),
			web.WithCamera(cams),
			web.WithSnapshot(capture, cfg.Pipeline.ImageQuality),
			web.WithStaticDir(c.String("static")),
		}
		if cfg.Web.Metrics {
			webOpts = append(webOpts, web.WithMetrics(nil))
		}
		dashboard = web.NewServer(cfg.Web.Listen, nil, webOpts...)
		presenters = append(presenters, dashboard)
		opts = append(opts, loop.WithObserver(dashboard))
	}
	opts = append(opts, loop.WithPresenter(presenters))

	controller, err := loop.New(capture, classifier, cfg.LoopConfig(), opts...)
	if err != nil {
		return err
	}
	if dashboard != nil {
		dashboard.SetController(controller)
	}
	if cmdSpeaker != nil {
		// Utterances are serialized, so one release is outstanding at a time.
		var release func()
		cmdSpeaker.OnPlaybackStart = func(string) {
			release = controller.Suspend(loop.ReasonNarration)
		}
		cmdSpeaker.OnPlaybackEnd = func(string, error) {
			if release != nil {
				release()
				release = nil
			}
		}
	}

	logger.Info("pointdex starting",
		"version", version,
		"classifier", classifier.Endpoint(),
		"camera", cfg.Camera.Device,
		"labels", table.Len(),
		"flavor", book.Len(),
		"web", cfg.Web.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return capture.Run(gctx) })
	g.Go(func() error { return controller.Run(gctx) })
	if dashboard != nil {
		g.Go(func() error { return dashboard.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("pointdex stopped")
	return err
}

// loadAssets reads the label table and flavor book. Missing files are
// tolerated: labels resolve to unknown and narration is skipped.
func loadAssets(cfg *config.Config, logger *slog.Logger) (*labels.Table, *flavor.Book, error) {
	table, err := labels.Load(cfg.Assets.Labels)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("label table not found, all labels unknown", "path", cfg.Assets.Labels)
		table, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	book, err := flavor.Load(cfg.Assets.Flavor)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("flavor text not found, narration disabled", "path", cfg.Assets.Flavor)
		book, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return table, book, nil
}

func newClassifier(cfg *config.Config, logger *slog.Logger) (*inference.Client, error) {
	client, err := inference.NewClient(
		inference.WithEndpoint(cfg.Classifier.URL),
		inference.WithAPIKey(cfg.Classifier.APIKey),
		inference.WithTimeout(cfg.Classifier.Timeout),
		inference.WithMaxRPS(cfg.Classifier.MaxRPS),
		inference.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	return client, nil
}
