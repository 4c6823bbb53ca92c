package bh1750

import (
	"context"
	"fmt"
	"testing"
)

func TestMockDevice_StaticValue(t *testing.T) {
	// Create a mock that always returns 500
	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
		return 500, nil
	})

	value, err := dev.Read(context.Background(), ContinuousHighRes1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 500 {
		t.Errorf("expected 500, got %d", value)
	}
}

func TestMockDevice_DynamicBehavior(t *testing.T) {
	callCount := 0

	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
		callCount++
		return uint16(callCount * 100), nil
	})

	ctx := context.Background()

	v1, err := dev.Read(ctx, OneShotLowRes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v1 != 100 {
		t.Errorf("first call: expected 100, got %d", v1)
	}

	v2, err := dev.Read(ctx, OneShotLowRes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v2 != 200 {
		t.Errorf("second call: expected 200, got %d", v2)
	}
}

func TestMockDevice_ErrorHandling(t *testing.T) {
	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
		return 0, fmt.Errorf("sensor malfunction")
	})

	_, err := dev.Read(context.Background(), ContinuousHighRes2)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "sensor malfunction" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestMockDevice_ContextUsage(t *testing.T) {
	var receivedCtx context.Context

	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
		receivedCtx = ctx
		return 1000, nil
	})

	type contextKey string
	key := contextKey("test")
	ctx := context.WithValue(context.Background(), key, "test-value")

	if _, err := dev.Read(ctx, OneShotHighRes1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedCtx.Value(key) != "test-value" {
		t.Error("context was not passed through correctly")
	}
}

func TestMockDevice_PowerTracking(t *testing.T) {
	dev := NewMockDevice(func(ctx context.Context, mode Mode) (uint16, error) {
		return 1, nil
	})
	ctx := context.Background()

	_ = dev.Power(ctx, true)
	if _, err := dev.Read(ctx, ContinuousLowRes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.PowerState() != PoweredOn {
		t.Errorf("continuous read should keep power on")
	}
	if _, err := dev.Read(ctx, OneShotHighRes2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.PowerState() != PoweredDown {
		t.Errorf("one-shot read should power down")
	}
	if _, err := dev.Read(ctx, Mode(17)); err == nil {
		t.Error("expected error for unknown mode")
	}
}
