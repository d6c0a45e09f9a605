// Pointdex Watch - tail the dashboard's event stream.
//
// Usage:
//
//	pointdex-watch [--url ws://localhost:8080/ws/events] [--predictions]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v2"

	"github.com/teslashibe/go-pointdex/internal/log"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

const (
	defaultURL   = "ws://localhost:8080/ws/events"
	reconnectMin = 500 * time.Millisecond
	reconnectMax = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "pointdex-watch",
		Usage: "Print ready events (or every prediction) from a running pointdex",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: defaultURL,
				Usage: "Dashboard websocket URL",
			},
			&cli.BoolFlag{
				Name:  "predictions",
				Usage: "Stream every prediction instead of ready events",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print raw JSON messages",
			},
		},
		Action: watch,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pointdex-watch: %v\n", err)
		os.Exit(1)
	}
}

func watch(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	url := c.String("url")
	if c.Bool("predictions") {
		url = strings.Replace(url, "/ws/events", "/ws/predictions", 1)
	}
	format := formatEvent
	if c.Bool("predictions") {
		format = formatPrediction
	}
	if c.Bool("json") {
		format = func(data []byte) (string, error) { return string(data), nil }
	}

	backoff := reconnectMin
	for {
		err := stream(ctx, url, os.Stdout, format)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("stream ended, reconnecting", "url", url, "error", err, "in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, reconnectMax)
	}
}

// stream prints messages from url until the connection drops or ctx ends.
func stream(ctx context.Context, url string, w io.Writer, format func([]byte) (string, error)) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %s", url, resp.Status)
		}
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info("connected", "url", url)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		line, err := format(data)
		if err != nil {
			log.Warn("skipping message", "error", err)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func formatEvent(data []byte) (string, error) {
	var ev stability.ReadyEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return "", err
	}
	if ev.Label == "" {
		return "", errors.New("event without label")
	}
	return fmt.Sprintf("%s  %-16s #%-4d %5.1f %%",
		ev.Timestamp.Format("15:04:05"), ev.Label, ev.LabelIndex, ev.Confidence*100), nil
}

func formatPrediction(data []byte) (string, error) {
	var p loop.Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	mark := " "
	if p.Ready {
		mark = "*"
	}
	return fmt.Sprintf("%s %s %-16s %5.1f %%  run=%d  %dms",
		p.At.Format("15:04:05"), mark, p.Label, p.Confidence*100, p.State.ConsecutiveCount, p.Latency.Milliseconds()), nil
}
