package client_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"engine-bridge/core/response"
	"engine-bridge/core/session"
	"engine-bridge/feature/client"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEngine serves a minimal slice of the engine REST API on a loopback
// port.
func stubEngine(t *testing.T, configure func(*fiber.App)) *session.Session {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	configure(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	port := ln.Addr().(*net.TCPAddr).Port
	return &session.Session{
		ID:      "test-session",
		Host:    "127.0.0.1",
		Port:    port,
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d/ep", port),
	}
}

func TestGetReturnsObject(t *testing.T) {
	s := stubEngine(t, func(app *fiber.App) {
		app.Get("/ep/profiles/p1", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"uid": "p1", "name": "brakes"})
		})
	})

	res := client.New(s, zap.NewNop()).Get(context.Background(), "profiles/p1")
	require.Equal(t, response.OutcomeObject, res.Outcome)
	assert.Equal(t, "brakes", res.Object["name"])
}

func TestPathSpellingsAreNormalized(t *testing.T) {
	var hits atomic.Int32
	s := stubEngine(t, func(app *fiber.App) {
		app.Get("/ep/profiles", func(c *fiber.Ctx) error {
			hits.Add(1)
			return c.JSON([]fiber.Map{{"uid": "p1"}})
		})
	})
	c := client.New(s, zap.NewNop())

	for _, path := range []string{"profiles", "/profiles", "ep/profiles", "\\profiles"} {
		res := c.Get(context.Background(), path)
		assert.Equal(t, response.OutcomeList, res.Outcome, "path %q", path)
	}
	assert.Equal(t, int32(4), hits.Load())
}

func TestPostUnwrapsNestedResult(t *testing.T) {
	s := stubEngine(t, func(app *fiber.App) {
		app.Post("/ep/scopes", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusCreated).
				JSON(fiber.Map{"result": fiber.Map{"uid": "sc-9"}})
		})
	})

	res := client.New(s, zap.NewNop()).Post(context.Background(), "scopes", fiber.Map{"name": "top"})
	require.Equal(t, response.OutcomeObject, res.Outcome)
	assert.Equal(t, "sc-9", res.Object["uid"])
}

func TestErrorBodyBecomesTaggedError(t *testing.T) {
	s := stubEngine(t, func(app *fiber.App) {
		app.Get("/ep/profiles/missing", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"message": "no such profile"})
		})
	})

	res := client.New(s, zap.NewNop()).Get(context.Background(), "profiles/missing")
	require.Equal(t, response.OutcomeError, res.Outcome)
	assert.Equal(t, response.KindApplication, res.Err.Kind)
	assert.Equal(t, "no such profile", res.Err.Message)
}

func TestUnreachableEngine(t *testing.T) {
	s := &session.Session{ID: "gone", BaseURL: "http://127.0.0.1:1/ep"}
	res := client.New(s, zap.NewNop()).Get(context.Background(), "profiles")
	require.Equal(t, response.OutcomeError, res.Outcome)
	assert.Equal(t, response.KindUnreachable, res.Err.Kind)
}

func TestAcceptedResponseFollowsJob(t *testing.T) {
	var polls atomic.Int32
	s := stubEngine(t, func(app *fiber.App) {
		app.Post("/ep/b2b", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobID": "job-1"})
		})
		app.Get("/ep/progress", func(c *fiber.Ctx) error {
			require.Equal(t, "job-1", c.Query("progress-id"))
			if polls.Add(1) < 3 {
				return c.SendStatus(fiber.StatusAccepted)
			}
			return c.JSON(fiber.Map{"result": fiber.Map{"verdictStatus": "PASSED"}})
		})
	})

	c := client.New(s, zap.NewNop(), client.WithJobPollInterval(5*time.Millisecond))
	res := c.Post(context.Background(), "b2b", nil)
	require.Equal(t, response.OutcomeObject, res.Outcome)
	assert.Equal(t, "PASSED", res.Object["verdictStatus"])
	assert.Equal(t, int32(3), polls.Load())
}

func TestJobWaitCancellation(t *testing.T) {
	s := stubEngine(t, func(app *fiber.App) {
		app.Post("/ep/b2b", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobID": "job-2"})
		})
		app.Get("/ep/progress", func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusAccepted)
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()
	c := client.New(s, zap.NewNop(), client.WithJobPollInterval(5*time.Millisecond))
	res := c.Post(ctx, "b2b", nil)
	require.Equal(t, response.OutcomeError, res.Outcome)
	assert.Equal(t, response.KindCancelled, res.Err.Kind)
}

func TestApplyPreferencesBatch(t *testing.T) {
	var mu sync.Mutex
	var batches [][]map[string]any
	s := stubEngine(t, func(app *fiber.App) {
		app.Put("/ep/preferences", func(c *fiber.Ctx) error {
			var batch []map[string]any
			require.NoError(t, c.BodyParser(&batch))
			mu.Lock()
			batches = append(batches, batch)
			mu.Unlock()
			return c.SendStatus(fiber.StatusOK)
		})
	})

	c := client.New(s, zap.NewNop())
	err := c.ApplyPreferences(context.Background(), map[string]any{
		"REPORT_TEMPLATE_FOLDER": "/tmp/templates",
		"ARCH_LOWER_LIMIT":       2,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	// keys are applied in stable order
	assert.Equal(t, "ARCH_LOWER_LIMIT", batches[0][0]["preferenceName"])
	assert.Equal(t, "REPORT_TEMPLATE_FOLDER", batches[0][1]["preferenceName"])
}

func TestApplyPreferencesFallsBackPerKey(t *testing.T) {
	s := stubEngine(t, func(app *fiber.App) {
		app.Put("/ep/preferences", func(c *fiber.Ctx) error {
			var batch []map[string]any
			require.NoError(t, c.BodyParser(&batch))
			if len(batch) > 1 {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{"message": "unknown preference in batch"})
			}
			if batch[0]["preferenceName"] == "BOGUS_KEY" {
				return c.Status(fiber.StatusBadRequest).
					JSON(fiber.Map{"message": "unknown preference"})
			}
			return c.SendStatus(fiber.StatusOK)
		})
	})

	c := client.New(s, zap.NewNop())
	err := c.ApplyPreferences(context.Background(), map[string]any{
		"REPORT_TEMPLATE_FOLDER": "/tmp/templates",
		"BOGUS_KEY":              true,
	})
	require.Error(t, err)
	assert.Equal(t, response.KindApplication, response.KindOf(err))
	assert.Contains(t, err.Error(), "BOGUS_KEY")
	assert.NotContains(t, err.Error(), "REPORT_TEMPLATE_FOLDER")
}

func TestApplyPreferencesEmptyIsNoop(t *testing.T) {
	s := &session.Session{ID: "idle", BaseURL: "http://127.0.0.1:1/ep"}
	assert.NoError(t, client.New(s, zap.NewNop()).ApplyPreferences(context.Background(), nil))
}
