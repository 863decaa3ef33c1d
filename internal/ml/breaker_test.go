package ml

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerModel_Disabled(t *testing.T) {
	inner := &stubModel{}
	assert.Same(t, Model(inner), NewBreakerModel(inner, BreakerOptions{}))
}

func TestBreakerModel_OpensAfterFailures(t *testing.T) {
	inner := &stubModel{err: errStub}
	m := NewBreakerModel(inner, BreakerOptions{Failures: 2, Cooldown: time.Hour}).(*BreakerModel)

	for i := 0; i < 2; i++ {
		_, err := m.Predict(context.Background(), testAligned())
		require.ErrorIs(t, err, errStub)
	}
	assert.Equal(t, "open", m.State())

	_, err := m.Predict(context.Background(), testAligned())
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerModel_RecoversAfterCooldown(t *testing.T) {
	inner := &stubModel{err: errStub}
	m := NewBreakerModel(inner, BreakerOptions{Failures: 1, Cooldown: 50 * time.Millisecond}).(*BreakerModel)

	_, err := m.Predict(context.Background(), testAligned())
	require.ErrorIs(t, err, errStub)

	inner.mu.Lock()
	inner.err = nil
	inner.value = 7
	inner.mu.Unlock()

	time.Sleep(80 * time.Millisecond)

	v, err := m.Predict(context.Background(), testAligned())
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	assert.Equal(t, "closed", m.State())
}

func TestBreakerModel_IgnoresCancellation(t *testing.T) {
	inner := &stubModel{}
	m := NewBreakerModel(inner, BreakerOptions{Failures: 1, Cooldown: time.Hour}).(*BreakerModel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Predict(ctx, testAligned())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", m.State())
}

func TestBreakerModel_ForwardsIdentity(t *testing.T) {
	lin := &LinearModel{ModelName: "lr", Weights: map[string]float64{"ano": 1}}
	m := NewBreakerModel(lin, BreakerOptions{Failures: 3}).(*BreakerModel)

	assert.Equal(t, "lr", m.Name())
	assert.Equal(t, []string{"ano"}, m.Columns())
}
