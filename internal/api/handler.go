// Package api exposes the import pipeline over HTTP for the scheduler
// that triggers runs. The surface is deliberately small: trigger a run,
// read back the summary, and a health endpoint.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/meggarmind/residio-email-imports/internal/models"
	"github.com/meggarmind/residio-email-imports/internal/pipeline"
)

const version = "1.0.0"

// runTimeout is the soft deadline for one triggered run. When it
// expires the pipeline stops taking up new emails and reports what it
// finished.
const runTimeout = 5 * time.Minute

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Pipeline *pipeline.Pipeline
	Log      zerolog.Logger

	mu          sync.Mutex
	lastSummary *models.RunSummary
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/imports/run", h.HandleRun)
	app.Get("/api/imports/last", h.HandleLast)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": version,
	})
}

// HandleRun triggers one import run and returns its summary. Runs are
// synchronous: the scheduler polls infrequently and wants the summary
// in the response.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), runTimeout)
	defer cancel()

	result, err := h.Pipeline.Run(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("import run failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	h.mu.Lock()
	h.lastSummary = &result.Summary
	h.mu.Unlock()
	return c.JSON(result.Summary)
}

// HandleLast returns the most recent run summary, if any.
func (h *Handler) HandleLast(c *fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastSummary == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no run recorded yet",
		})
	}
	return c.JSON(h.lastSummary)
}
