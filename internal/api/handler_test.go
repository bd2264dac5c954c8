package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/fetcher"
	"github.com/meggarmind/residio-email-imports/internal/logger"
	"github.com/meggarmind/residio-email-imports/internal/models"
	"github.com/meggarmind/residio-email-imports/internal/pipeline"
	"github.com/meggarmind/residio-email-imports/internal/store"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	maildir := t.TempDir()
	directory := filepath.Join(t.TempDir(), "residents.toml")
	if err := os.WriteFile(directory, []byte("[[residents]]\nid = \"res-1\"\nlast_name = \"Anih\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	payments := store.NewPaymentStore()
	p := pipeline.New(
		config.Default(),
		fetcher.NewMaildir(maildir, logger.Nop()),
		store.NewFileDirectory(directory),
		payments,
		payments,
		logger.Nop(),
	)

	app := fiber.New()
	h := &Handler{Pipeline: p, Log: logger.Nop()}
	h.RegisterRoutes(app)
	return app
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestRunEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("POST", "/api/imports/run", nil)
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var summary models.RunSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}

	if summary.Status != models.RunCompleted {
		t.Errorf("status: got %s, want completed", summary.Status)
	}
	if summary.RunID == "" {
		t.Error("expected a run id")
	}
	if summary.EmailsFetched != 0 {
		t.Errorf("emails fetched: got %d, want 0", summary.EmailsFetched)
	}
}

func TestLastEndpoint(t *testing.T) {
	app := setupTestApp(t)

	// Before any run: 404.
	resp, err := app.Test(httptest.NewRequest("GET", "/api/imports/last", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404 before first run, got %d", resp.StatusCode)
	}

	if _, err := app.Test(httptest.NewRequest("POST", "/api/imports/run", nil), 10000); err != nil {
		t.Fatalf("run request failed: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/imports/last", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200 after a run, got %d", resp.StatusCode)
	}
}
