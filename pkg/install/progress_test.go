package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressAddClampsToTotal(t *testing.T) {
	p := NewProgress(19)

	p.Add(5)
	assert.Equal(t, int64(5), p.Completed())

	p.Add(100)
	assert.Equal(t, int64(19), p.Completed())
	assert.Equal(t, int64(19), p.Total())
}

func TestProgressAddIgnoresNonPositive(t *testing.T) {
	p := NewProgress(19)
	p.Add(3)
	p.Add(0)
	p.Add(-2)
	assert.Equal(t, int64(3), p.Completed())
}

func TestProgressNeverDecreases(t *testing.T) {
	p := NewProgress(19)

	var observed []int64
	p.SetOnChange(func(completed, total int64, label string) {
		observed = append(observed, completed)
	})

	for i := 0; i < 25; i++ {
		p.Add(1)
	}

	require.NotEmpty(t, observed)
	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, observed[i], observed[i-1])
	}
	assert.Equal(t, int64(19), observed[len(observed)-1])
}

func TestProgressLabelUpdates(t *testing.T) {
	p := NewProgress(19)

	var lastLabel string
	p.SetOnChange(func(completed, total int64, label string) {
		lastLabel = label
	})

	p.setLabel("Fetching certificates...")
	assert.Equal(t, "Fetching certificates...", p.Label())
	assert.Equal(t, "Fetching certificates...", lastLabel)
}

func TestProgressCancelIsIdempotent(t *testing.T) {
	p := NewProgress(19)

	hookCalls := 0
	p.registerCancel(func() { hookCalls++ })

	p.Cancel()
	p.Cancel()

	assert.True(t, p.Cancelled())
	assert.Equal(t, 1, hookCalls)
}

func TestProgressRegisterCancelAfterCancellation(t *testing.T) {
	p := NewProgress(19)
	p.Cancel()

	hookCalled := false
	p.registerCancel(func() { hookCalled = true })
	assert.True(t, hookCalled)
}

func TestProgressFinishReachesTotal(t *testing.T) {
	p := NewProgress(19)
	p.Add(7)
	p.finish()
	assert.Equal(t, int64(19), p.Completed())
}
