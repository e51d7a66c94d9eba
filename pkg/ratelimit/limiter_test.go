package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingStore struct{}

func (failingStore) Admit(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestLimiter_NamespacesKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	scan := New("scan-url", 1, time.Minute, store, nil)
	visitor := New("get-visitor-ip", 1, time.Minute, store, nil)

	assert.True(t, scan.Admit(ctx, "203.0.113.5"))
	assert.False(t, scan.Admit(ctx, "203.0.113.5"))

	assert.True(t, visitor.Admit(ctx, "203.0.113.5"), "each handler has its own bucket")
	assert.Equal(t, "scan-url", scan.Name())
}

func TestLimiter_UnknownClientsShareABucket(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := New("check-ip-threat", 2, time.Minute, store, nil)

	assert.True(t, l.Admit(ctx, "unknown"))
	assert.True(t, l.Admit(ctx, "unknown"))
	assert.False(t, l.Admit(ctx, "unknown"))
}

func TestLimiter_ExemptNetworksBypass(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	l := New("check-ip-threat", 1, time.Minute, store, NewExempt([]string{"10.0.0.0/8"}))

	for i := 0; i < 5; i++ {
		assert.True(t, l.Admit(ctx, "10.1.2.3"))
	}
	assert.Equal(t, 0, store.Len())

	assert.True(t, l.Admit(ctx, "8.8.8.8"))
	assert.False(t, l.Admit(ctx, "8.8.8.8"))
}

func TestLimiter_StoreFailureAdmits(t *testing.T) {
	l := New("scan-url", 1, time.Minute, failingStore{}, nil)
	assert.True(t, l.Admit(context.Background(), "203.0.113.5"))
}
