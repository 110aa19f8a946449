package errors

import (
	"fmt"
	"testing"
)

func TestKindHelpers(t *testing.T) {
	t.Run("validation_through_wrap", func(t *testing.T) {
		err := fmt.Errorf("posting: %w", WithMessage(ErrUnbalancedTransaction, "three currencies left"))
		if !IsValidation(err) {
			t.Error("expected validation kind")
		}
		if IsConsistency(err) {
			t.Error("did not expect consistency kind")
		}
	})

	t.Run("consistency", func(t *testing.T) {
		err := Wrap(ErrSnapshotMismatch, fmt.Errorf("gain"))
		if !IsConsistency(err) {
			t.Error("expected consistency kind")
		}
		if err.Code != "SNAPSHOT_MISMATCH" {
			t.Errorf("expected code SNAPSHOT_MISMATCH, got %s", err.Code)
		}
	})

	t.Run("plain_error", func(t *testing.T) {
		err := fmt.Errorf("dial tcp: timeout")
		if IsValidation(err) || IsConsistency(err) {
			t.Error("plain errors carry no kind")
		}
	})
}
