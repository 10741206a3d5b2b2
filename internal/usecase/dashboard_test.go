package usecase

import (
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(max int) *SessionStore {
	factory := NewDashboardFactory(DashboardDeps{
		Backend:  &fakeBackend{},
		Symbol:   "ETH/USDT",
		Presets:  []int{10, 24},
		Location: wib,
	})
	return NewSessionStore(factory, max, time.Hour)
}

func TestSessionStoreAcquire(t *testing.T) {
	s := newStore(10)
	defer s.Close()

	d, created := s.Acquire("", render.ThemeDark)
	require.True(t, created)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, render.ThemeDark, d.Theme())

	again, created := s.Acquire(d.ID, render.ThemeLight)
	assert.False(t, created)
	assert.Same(t, d, again)

	other, created := s.Acquire("unknown", render.ThemeLight)
	assert.True(t, created)
	assert.NotEqual(t, "unknown", other.ID)
	assert.Equal(t, 2, s.Len())
}

func TestDashboardSlots(t *testing.T) {
	s := newStore(10)
	defer s.Close()
	d, _ := s.Acquire("", render.ThemeLight)

	for _, name := range []string{SlotForecast, SlotHistory, SlotEval} {
		slot, ok := d.Slot(name)
		require.True(t, ok)
		assert.Equal(t, name, slot.Name())
	}
	_, ok := d.Slot("nope")
	assert.False(t, ok)
}

func TestEvictedSessionReleasesCharts(t *testing.T) {
	s := newStore(1)
	defer s.Close()

	first, _ := s.Acquire("", render.ThemeLight)
	slot, _ := first.Slot(SlotForecast)
	require.NoError(t, slot.Render(twoPoints()))

	second, created := s.Acquire("", render.ThemeLight)
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, slot.Live())

	_, ok := s.Get(first.ID)
	assert.False(t, ok)
}

func TestSetThemeReachesCharts(t *testing.T) {
	s := newStore(10)
	defer s.Close()
	d, _ := s.Acquire("", render.ThemeLight)
	slot, _ := d.Slot(SlotHistory)
	require.NoError(t, slot.Render(twoPoints()))
	id := slot.ID()

	d.SetTheme(render.ThemeDark)
	assert.Equal(t, render.ThemeDark, d.Theme())
	assert.Equal(t, id, slot.ID(), "theme change keeps the instance")
}

func twoPoints() render.LineSpec {
	return render.LineSpec{
		Labels: []string{"a", "b"},
		Series: []models.ChartSeries{{Name: "Close", Values: []float64{1, 2}}},
	}
}
