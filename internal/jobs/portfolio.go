// Package jobs runs the scheduled portfolio reconciliation and reports its
// outcome.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wallet/internal/logger"
	"wallet/internal/models"
)

// PortfolioUpdater records today's snapshot of every external portfolio.
type PortfolioUpdater interface {
	Update(ctx context.Context) ([]models.PortfolioSnapshot, error)
}

// Notifier delivers a short text message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// RunResult contains the outcome of a job run.
type RunResult struct {
	Updated  []models.PortfolioSnapshot
	Err      error
	Duration time.Duration
}

// PortfolioJob updates portfolio snapshots and notifies about the result.
type PortfolioJob struct {
	updater  PortfolioUpdater
	notifier Notifier
	timeout  time.Duration
}

// NewPortfolioJob creates a new PortfolioJob. A zero timeout means none.
func NewPortfolioJob(updater PortfolioUpdater, notifier Notifier, timeout time.Duration) *PortfolioJob {
	return &PortfolioJob{updater: updater, notifier: notifier, timeout: timeout}
}

// Run executes one update cycle. Snapshots recorded before a failure are
// still reported; the failure is sent as its own message.
func (j *PortfolioJob) Run(ctx context.Context) *RunResult {
	start := time.Now()
	log := logger.Get()

	updateCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		updateCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	updated, err := j.updater.Update(updateCtx)
	result := &RunResult{Updated: updated, Err: err}

	// Reports outlive the update deadline, including the one it just hit.
	notifyCtx := context.WithoutCancel(ctx)
	if len(updated) > 0 {
		summary := Summarize(updated)
		log.Infow("portfolio update finished", "count", len(updated))
		j.send(notifyCtx, summary)
	}
	if err != nil {
		log.Errorw("portfolio update failed", "error", err)
		j.send(notifyCtx, "Portfolio update failed: "+err.Error())
	}

	result.Duration = time.Since(start)
	return result
}

func (j *PortfolioJob) send(ctx context.Context, text string) {
	if err := j.notifier.Send(ctx, text); err != nil {
		logger.Get().Warnw("failed to send notification", "error", err)
	}
}

// Summarize renders one line per snapshot: value, gain and rate.
func Summarize(snapshots []models.PortfolioSnapshot) string {
	lines := make([]string, len(snapshots))
	for i, s := range snapshots {
		gain := models.CurrencyUSD.Format(s.Gain)
		if s.Gain.IsPositive() {
			gain = "+" + gain
		}
		lines[i] = fmt.Sprintf("%s: %s %s (%s%%)",
			s.Name, models.CurrencyUSD.Format(s.Value), gain, s.Rate.StringFixed(2))
	}
	return strings.Join(lines, "\n")
}
