package refract

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/pipz"
)

// identityConvert wraps a single snapshot in a one-element delivery.
func identityConvert(v int) ([]int, error) {
	return []int{v}, nil
}

func TestWithRetry_RetriesOnFailure(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var attempts int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 42, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			attempts++
			if attempts < 3 {
				return errors.New("transient failure")
			}
			return nil
		},
		WithRetry[int](3),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if sub.State() != StateActive {
		t.Errorf("expected Active after retried success, got %s", sub.State())
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var attempts int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 42, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			attempts++
			return errors.New("persistent failure")
		},
		WithRetry[int](3),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if sub.State() != StateStalled {
		t.Errorf("expected Stalled without a prior success, got %s", sub.State())
	}
}

func TestWithBackoff_RetriesWithDelay(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var attempts int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 7, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			attempts++
			if attempts < 2 {
				return errors.New("transient failure")
			}
			return nil
		},
		WithBackoff[int](3, time.Millisecond),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithTimeout_FailsSlowDelivery(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 1, nil },
		identityConvert,
		func(ctx context.Context, _ Notification[int]) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(200 * time.Millisecond):
				return nil
			}
		},
		WithTimeout[int](10*time.Millisecond),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err == nil {
		t.Fatal("expected timeout error from slow consumer")
	}
	if sub.LastError() == nil {
		t.Error("expected LastError to report the timeout")
	}
}

func TestWithCircuitBreaker_PassesThroughWhenClosed(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var deliveries int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 9, nil },
		identityConvert,
		func(_ context.Context, n Notification[int]) error {
			deliveries++
			if n.Value != 9 {
				return errors.New("unexpected value")
			}
			return nil
		},
		WithCircuitBreaker[int](3, time.Second),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if deliveries != 1 {
		t.Errorf("expected 1 delivery, got %d", deliveries)
	}
}

func TestWithErrorHandler_ObservesFailure(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var observed atomic.Bool
	handler := pipz.Effect("observe", func(_ context.Context, _ *pipz.Error[*Notification[int]]) error {
		observed.Store(true)
		return nil
	})

	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 1, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			return errors.New("delivery failure")
		},
		WithErrorHandler[int](handler),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err == nil {
		t.Fatal("expected error to still propagate past the handler")
	}
	if !observed.Load() {
		t.Error("expected error handler to observe the failure")
	}
}

func TestWithMiddleware_RunsBeforeConsumer(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var order []string
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 5, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			order = append(order, "consumer")
			return nil
		},
		WithMiddleware(
			UseEffect("first", func(_ context.Context, _ *Notification[int]) error {
				order = append(order, "first")
				return nil
			}),
			UseEffect("second", func(_ context.Context, _ *Notification[int]) error {
				order = append(order, "second")
				return nil
			}),
		),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	want := []string{"first", "second", "consumer"}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestUseApply_TransformsNotification(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var received int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 21, nil },
		identityConvert,
		func(_ context.Context, n Notification[int]) error {
			received = n.Value
			return nil
		},
		WithMiddleware(
			UseApply("double", func(_ context.Context, n *Notification[int]) (*Notification[int], error) {
				n.Value *= 2
				return n, nil
			}),
		),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if received != 42 {
		t.Errorf("expected transformed value 42, got %d", received)
	}
}

func TestUseApply_FailureBecomesDeliveryError(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var consumed bool
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 1, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			consumed = true
			return nil
		},
		WithMiddleware(
			UseApply("enrich", func(_ context.Context, _ *Notification[int]) (*Notification[int], error) {
				return nil, errors.New("enrichment failed")
			}),
		),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err == nil {
		t.Fatal("expected enrichment failure to fail the delivery")
	}
	if consumed {
		t.Error("expected consumer to be skipped after middleware failure")
	}
}

func TestUseFilter_SkipsProcessorWhenFalse(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var doubled bool
	var received int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 3, nil },
		identityConvert,
		func(_ context.Context, n Notification[int]) error {
			received = n.Value
			return nil
		},
		WithMiddleware(
			UseFilter("only-large",
				func(_ context.Context, n *Notification[int]) bool { return n.Value > 10 },
				UseApply("double", func(_ context.Context, n *Notification[int]) (*Notification[int], error) {
					doubled = true
					n.Value *= 2
					return n, nil
				}),
			),
		),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if doubled {
		t.Error("expected filtered processor to be skipped")
	}
	if received != 3 {
		t.Errorf("expected untouched value 3, got %d", received)
	}
}

func TestUseRateLimit_AllowsWithinBurst(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var deliveries int
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 1, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			deliveries++
			return nil
		},
		WithMiddleware(UseRateLimit[int](100, 10)),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if deliveries != 1 {
		t.Errorf("expected 1 delivery, got %d", deliveries)
	}
}

func TestOptions_ComposeOutsideIn(t *testing.T) {
	ctx := context.Background()
	engine := NewChannelEngine()

	var attempts int
	var observed atomic.Int32
	handler := pipz.Effect("observe", func(_ context.Context, _ *pipz.Error[*Notification[int]]) error {
		observed.Add(1)
		return nil
	})

	// Retry wraps the handler-wrapped consumer: each failed attempt is
	// observed, then retried.
	sub := NewSubscription(engine,
		func(_ context.Context) (int, error) { return 1, nil },
		identityConvert,
		func(_ context.Context, _ Notification[int]) error {
			attempts++
			if attempts < 2 {
				return errors.New("transient failure")
			}
			return nil
		},
		WithErrorHandler[int](handler),
		WithRetry[int](3),
	).SyncMode()
	defer sub.Cancel()

	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if observed.Load() != 1 {
		t.Errorf("expected 1 observed failure, got %d", observed.Load())
	}
}
