package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/teslashibe/go-pointdex/internal/log"
	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// classification is the JSON printed by the classify command.
type classification struct {
	Label        string  `json:"label"`
	LabelIndex   int     `json:"label_index"`
	Confidence   float64 `json:"confidence"`
	ServerStable bool    `json:"server_stable"`
	RequestID    string  `json:"request_id"`
	LatencyMS    int64   `json:"latency_ms"`
	Size         int     `json:"size"`
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Normalize a still image and print the classifier result",
		ArgsUsage: "<image>",
		Action:    classifyAction,
	}
}

func classifyAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("classify takes exactly one image path", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := log.L()

	img, err := decodeImage(c.Args().First())
	if err != nil {
		return err
	}

	normalized, err := frame.NewNormalizer(cfg.Pipeline.ImageQuality).Normalize(frame.NewRawFrame(img))
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}

	classifier, err := newClassifier(cfg, logger)
	if err != nil {
		return err
	}
	defer classifier.Close()

	ctx, cancel := context.WithTimeout(c.Context, cfg.Classifier.Timeout+time.Second)
	defer cancel()

	res, err := classifier.Classify(ctx, normalized)
	if err != nil {
		return err
	}

	table, _, err := loadAssets(cfg, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(classification{
		Label:        res.Label,
		LabelIndex:   table.Lookup(res.Label),
		Confidence:   res.Confidence,
		ServerStable: res.ServerStable,
		RequestID:    res.RequestID,
		LatencyMS:    res.Latency.Milliseconds(),
		Size:         normalized.Size,
	})
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
