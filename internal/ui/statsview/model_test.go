package statsview

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tech-tracker/internal/keys"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/stats"
)

func TestViewShowsBreakdown(t *testing.T) {
	items := []model.Technology{
		{Status: model.StatusCompleted, Category: model.CategoryBackend, Difficulty: model.DifficultyBeginner, Priority: model.PriorityLow, EstimatedHours: 5},
		{Status: model.StatusNotStarted, Category: model.CategoryBackend, Difficulty: model.DifficultyExpert, Priority: model.PriorityLow, EstimatedHours: 7},
	}
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetStats(stats.Compute(items, time.Now()))

	view := m.View()
	assert.Contains(t, view, "1 of 2")
	assert.Contains(t, view, "5 / 12")
	assert.Contains(t, view, "backend")
	assert.Contains(t, view, "expert")
	assert.NotContains(t, view, "frontend")
}

func TestViewEmptyCollection(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetStats(stats.Compute(nil, time.Now()))

	assert.Contains(t, m.View(), "0 of 0")
	assert.Contains(t, m.View(), "nothing tracked")
}

func TestEscCloses(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
