package main

import (
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/teslashibe/go-pointdex/internal/config"
	"github.com/teslashibe/go-pointdex/internal/log"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Labels = writeFile(t, dir, "class_indices.json", `{"bulbasaur": 0, "pikachu": 24}`)
	cfg.Assets.Flavor = writeFile(t, dir, "flavor_text.json", `{"pikachu": ["It keeps its tail raised."]}`)

	table, book, err := loadAssets(cfg, log.Discard())
	if err != nil {
		t.Fatalf("loadAssets failed: %v", err)
	}
	if table.Lookup("pikachu") != 24 {
		t.Errorf("Expected pikachu at 24, got %d", table.Lookup("pikachu"))
	}
	if _, ok := book.Lookup("Pikachu"); !ok {
		t.Error("Expected flavor text for Pikachu")
	}
}

func TestLoadAssetsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Labels = filepath.Join(dir, "missing.json")
	cfg.Assets.Flavor = filepath.Join(dir, "missing-too.json")

	table, book, err := loadAssets(cfg, log.Discard())
	if err != nil {
		t.Fatalf("Expected missing assets to be tolerated, got %v", err)
	}
	if table.Len() != 0 || book.Len() != 0 {
		t.Error("Expected empty table and book")
	}
}

func TestLoadAssetsInvalid(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Assets.Labels = writeFile(t, dir, "class_indices.json", `{"pikachu": "yes"}`)

	if _, _, err := loadAssets(cfg, log.Discard()); err == nil {
		t.Error("Expected error for malformed label table")
	}
}

func TestClassifyCommand(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/api/predict" {
			t.Errorf("Expected /api/predict, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"name": "pikachu", "conf": 0.77}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	imgPath := filepath.Join(dir, "still.png")
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatalf("encode image: %v", err)
	}
	f.Close()

	app := &cli.App{
		Name:     "pointdex",
		Flags:    commonFlags(),
		Commands: []*cli.Command{classifyCommand()},
	}
	if err := app.Run([]string{"pointdex", "--api", server.URL, "--log-level", "error", "classify", imgPath}); err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("Expected one classifier request, got %d", hits.Load())
	}
}

func TestClassifyRequiresImage(t *testing.T) {
	app := &cli.App{
		Name:           "pointdex",
		Flags:          commonFlags(),
		Commands:       []*cli.Command{classifyCommand()},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	if err := app.Run([]string{"pointdex", "classify"}); err == nil {
		t.Error("Expected error without an image path")
	}
}
