package lock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	l := NewRedisLocker(client, "wallet:", time.Minute)
	l.newToken = func() string { return "token-1" }
	return l, mock
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquire_and_release", func(t *testing.T) {
		l, mock := newTestRedisLocker(t)
		mock.ExpectSetNX("wallet:portfolio:Individual", "token-1", time.Minute).SetVal(true)
		mock.ExpectEval(releaseScript, []string{"wallet:portfolio:Individual"}, "token-1").SetVal(int64(1))

		unlock, err := l.Lock(ctx, "portfolio:Individual")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		unlock()

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("contended", func(t *testing.T) {
		l, mock := newTestRedisLocker(t)
		mock.ExpectSetNX("wallet:portfolio:Individual", "token-1", time.Minute).SetVal(false)

		_, err := l.Lock(ctx, "portfolio:Individual")
		if !errors.Is(err, ErrLocked) {
			t.Errorf("err = %v, want %v", err, ErrLocked)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("redis_unavailable", func(t *testing.T) {
		l, mock := newTestRedisLocker(t)
		mock.ExpectSetNX("wallet:portfolio:Individual", "token-1", time.Minute).SetErr(errors.New("connection refused"))

		_, err := l.Lock(ctx, "portfolio:Individual")
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrLocked) {
			t.Errorf("transport failure reported as %v", ErrLocked)
		}
		if !strings.Contains(err.Error(), "connection refused") {
			t.Errorf("err = %v, want it to mention the cause", err)
		}
	})
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	unlock, err := l.Lock(ctx, "portfolio:Individual")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	if _, err := l.Lock(ctx, "portfolio:Individual"); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock err = %v, want %v", err, ErrLocked)
	}

	other, err := l.Lock(ctx, "portfolio:Roth")
	if err != nil {
		t.Fatalf("Lock other key: %v", err)
	}
	other()

	unlock()
	unlock()

	again, err := l.Lock(ctx, "portfolio:Individual")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
