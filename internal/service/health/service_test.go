package health

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func TestReady_AllHealthy(t *testing.T) {
	s := NewService("test", zap.NewNop())
	s.RegisterPing("database", true, func(ctx context.Context) error { return nil })
	s.RegisterPing("redis", false, func(ctx context.Context) error { return nil })

	resp := s.Ready(context.Background())
	if !resp.Ready || resp.Status != StatusHealthy {
		t.Fatalf("expected ready and healthy, got %+v", resp)
	}
	if len(resp.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(resp.Checks))
	}
}

func TestReady_OptionalFailureDegrades(t *testing.T) {
	s := NewService("test", zap.NewNop())
	s.RegisterPing("database", true, func(ctx context.Context) error { return nil })
	s.RegisterPing("queue", false, func(ctx context.Context) error { return errors.New("nats: not connected") })

	resp := s.Ready(context.Background())
	if !resp.Ready {
		t.Fatal("optional failure must not make the service unready")
	}
	if resp.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", resp.Status)
	}
	if !strings.Contains(resp.Checks["queue"].Message, "not connected") {
		t.Errorf("unexpected message %q", resp.Checks["queue"].Message)
	}
}

func TestReady_CriticalFailure(t *testing.T) {
	s := NewService("test", zap.NewNop())
	s.RegisterPing("database", true, func(ctx context.Context) error { return errors.New("connection refused") })
	s.RegisterPing("queue", false, func(ctx context.Context) error { return errors.New("down") })

	resp := s.Ready(context.Background())
	if resp.Ready || resp.Status != StatusUnhealthy {
		t.Fatalf("expected unready and unhealthy, got %+v", resp)
	}
}

func TestFiberHandler_Routes(t *testing.T) {
	s := NewService("v-test", zap.NewNop())
	s.RegisterPing("database", true, func(ctx context.Context) error { return errors.New("down") })

	app := fiber.New()
	NewFiberHandler(s).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil), -1)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("live: expected 200, got %v %v", resp, err)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/health/ready", nil), -1)
	if err != nil || resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %v %v", resp, err)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("metrics: expected 200, got %v %v", resp, err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("expected default Go collectors in metrics output")
	}
}
