package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/models"
)

type mockUpdater struct {
	updateFn func(ctx context.Context) ([]models.PortfolioSnapshot, error)
}

func (m *mockUpdater) Update(ctx context.Context) ([]models.PortfolioSnapshot, error) {
	return m.updateFn(ctx)
}

type mockNotifier struct {
	sent   []string
	ctxErr []error
	err    error
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	m.sent = append(m.sent, text)
	m.ctxErr = append(m.ctxErr, ctx.Err())
	return m.err
}

func snapshot(name, value, gain, rate string) models.PortfolioSnapshot {
	return models.PortfolioSnapshot{
		Name:  name,
		Date:  time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		Value: decimal.RequireFromString(value),
		Gain:  decimal.RequireFromString(gain),
		Rate:  decimal.RequireFromString(rate),
	}
}

func TestPortfolioJob_Run(t *testing.T) {
	t.Run("success_sends_summary", func(t *testing.T) {
		updater := &mockUpdater{updateFn: func(context.Context) ([]models.PortfolioSnapshot, error) {
			return []models.PortfolioSnapshot{
				snapshot("Individual", "1234.5", "10", "0.82"),
				snapshot("Roth IRA", "900", "-5", "-0.55"),
			}, nil
		}}
		notifier := &mockNotifier{}

		result := NewPortfolioJob(updater, notifier, time.Minute).Run(context.Background())

		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if len(result.Updated) != 2 {
			t.Errorf("updated = %d, want 2", len(result.Updated))
		}
		if len(notifier.sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(notifier.sent))
		}
		want := "Individual: $1,234.50 +$10.00 (0.82%)\nRoth IRA: $900.00 -$5.00 (-0.55%)"
		if notifier.sent[0] != want {
			t.Errorf("summary = %q, want %q", notifier.sent[0], want)
		}
	})

	t.Run("failure_is_reported", func(t *testing.T) {
		updater := &mockUpdater{updateFn: func(context.Context) ([]models.PortfolioSnapshot, error) {
			return []models.PortfolioSnapshot{snapshot("Individual", "100", "0", "0")},
				errors.New("Roth IRA: start value not matched")
		}}
		notifier := &mockNotifier{}

		result := NewPortfolioJob(updater, notifier, 0).Run(context.Background())

		if result.Err == nil {
			t.Fatal("expected error")
		}
		if len(notifier.sent) != 2 {
			t.Fatalf("sent %d messages, want 2", len(notifier.sent))
		}
		if want := "Individual: $100.00 $0.00 (0.00%)"; notifier.sent[0] != want {
			t.Errorf("summary = %q, want %q", notifier.sent[0], want)
		}
		if want := "Portfolio update failed: Roth IRA: start value not matched"; notifier.sent[1] != want {
			t.Errorf("failure = %q, want %q", notifier.sent[1], want)
		}
	})

	t.Run("nothing_updated", func(t *testing.T) {
		updater := &mockUpdater{updateFn: func(context.Context) ([]models.PortfolioSnapshot, error) {
			return nil, nil
		}}
		notifier := &mockNotifier{}

		result := NewPortfolioJob(updater, notifier, 0).Run(context.Background())

		if result.Err != nil {
			t.Errorf("unexpected error: %v", result.Err)
		}
		if len(notifier.sent) != 0 {
			t.Errorf("sent %v, want nothing", notifier.sent)
		}
	})

	t.Run("notifier_failure_does_not_fail_run", func(t *testing.T) {
		updater := &mockUpdater{updateFn: func(context.Context) ([]models.PortfolioSnapshot, error) {
			return []models.PortfolioSnapshot{snapshot("Individual", "100", "1", "1")}, nil
		}}
		notifier := &mockNotifier{err: errors.New("sms down")}

		result := NewPortfolioJob(updater, notifier, 0).Run(context.Background())

		if result.Err != nil {
			t.Errorf("unexpected error: %v", result.Err)
		}
		if len(notifier.sent) != 1 {
			t.Errorf("sent %d messages, want 1", len(notifier.sent))
		}
	})

	t.Run("timeout_is_applied", func(t *testing.T) {
		var hasDeadline bool
		updater := &mockUpdater{updateFn: func(ctx context.Context) ([]models.PortfolioSnapshot, error) {
			_, hasDeadline = ctx.Deadline()
			return nil, nil
		}}

		NewPortfolioJob(updater, &mockNotifier{}, time.Minute).Run(context.Background())
		if !hasDeadline {
			t.Error("update context has no deadline")
		}
	})

	t.Run("timeout_failure_is_still_reported", func(t *testing.T) {
		updater := &mockUpdater{updateFn: func(ctx context.Context) ([]models.PortfolioSnapshot, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		notifier := &mockNotifier{}

		result := NewPortfolioJob(updater, notifier, 20*time.Millisecond).Run(context.Background())

		if !errors.Is(result.Err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want %v", result.Err, context.DeadlineExceeded)
		}
		if len(notifier.sent) != 1 {
			t.Fatalf("sent %d messages, want 1", len(notifier.sent))
		}
		if want := "Portfolio update failed: context deadline exceeded"; notifier.sent[0] != want {
			t.Errorf("failure = %q, want %q", notifier.sent[0], want)
		}
		for i, err := range notifier.ctxErr {
			if err != nil {
				t.Errorf("notification %d sent on a done context: %v", i, err)
			}
		}
	})
}
