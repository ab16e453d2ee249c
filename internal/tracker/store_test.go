package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/store"
	"github.com/nhle/tech-tracker/internal/transfer"
)

// fakePersister records every save and can be told to fail.
type fakePersister struct {
	mu      sync.Mutex
	loaded  []model.Technology
	saves   [][]model.Technology
	saveErr error
	changed []model.Technology
}

func (f *fakePersister) Load(_ context.Context, _ string, def []model.Technology) []model.Technology {
	if f.loaded != nil {
		return f.loaded
	}
	return def
}

func (f *fakePersister) Save(_ context.Context, _ string, items []model.Technology) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return fmt.Errorf("saving: %w", model.ErrPersistence)
	}
	f.saves = append(f.saves, cloneAll(items))
	return nil
}

func (f *fakePersister) Changed(context.Context, string) ([]model.Technology, bool, error) {
	if f.changed == nil {
		return nil, false, nil
	}
	return f.changed, true, nil
}

func (f *fakePersister) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() model.ID {
	n := 0
	return func() model.ID {
		n++
		return model.ID(fmt.Sprintf("id-%d", n))
	}
}

func newTestStore(t *testing.T, p Persister) *Store {
	t.Helper()
	return New(context.Background(), p,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(sequentialIDs()),
	)
}

func draft(title string) model.Draft {
	return model.Draft{Title: title, Description: "A description long enough"}
}

func addAll(t *testing.T, s *Store, titles ...string) []model.Technology {
	t.Helper()
	var out []model.Technology
	for _, title := range titles {
		rec, err := s.Add(context.Background(), draft(title))
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestAddAppliesDefaultsAndPrepends(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)

	first, err := s.Add(context.Background(), draft("  Go  "))
	require.NoError(t, err)
	_, err = s.Add(context.Background(), draft("Rust"))
	require.NoError(t, err)

	assert.Equal(t, "Go", first.Title)
	assert.Equal(t, model.DefaultCategory, first.Category)
	assert.Equal(t, model.DefaultDifficulty, first.Difficulty)
	assert.Equal(t, model.DefaultStatus, first.Status)
	assert.Equal(t, model.DefaultPriority, first.Priority)
	assert.Equal(t, model.DefaultEstimatedHours, first.EstimatedHours)
	assert.Equal(t, testNow, first.CreatedAt)
	assert.Equal(t, testNow, first.UpdatedAt)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Rust", all[0].Title)
	assert.Equal(t, "Go", all[1].Title)
	assert.Equal(t, 2, p.saveCount())
}

func TestAddIDsAreUnique(t *testing.T) {
	// A generator that keeps repeating itself must not produce duplicates.
	calls := 0
	gen := func() model.ID {
		calls++
		return model.ID(fmt.Sprintf("id-%d", calls/3))
	}
	s := New(context.Background(), &fakePersister{}, WithIDGenerator(gen))

	for i := 0; i < 20; i++ {
		_, err := s.Add(context.Background(), draft(fmt.Sprintf("tech %d", i)))
		require.NoError(t, err)
	}

	seen := map[model.ID]bool{}
	for _, rec := range s.All() {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
	assert.Len(t, seen, 20)
}

func TestAddRejectsUnknownEnum(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)

	d := draft("Go")
	d.Category = "cooking"
	_, err := s.Add(context.Background(), d)
	assert.ErrorIs(t, err, model.ErrInvalidValue)
	assert.Zero(t, s.Len())
	assert.Zero(t, p.saveCount())
}

func TestCreateRejectsShortTitle(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	addAll(t, s, "Go")

	_, err := s.Create(context.Background(), draft("Re"), false)

	verr, ok := model.IsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Violations, "title")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, p.saveCount())
}

func TestCreateAcceptsValidDraft(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	rec, err := s.Create(context.Background(), draft("Kubernetes"), true)
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes", rec.Title)
}

func TestUpdateMergesPatch(t *testing.T) {
	later := testNow.Add(time.Hour)
	clock := testNow
	s := New(context.Background(), &fakePersister{},
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(sequentialIDs()),
	)
	rec := addAll(t, s, "Go")[0]

	clock = later
	title := "Go Concurrency"
	hours := 40
	tags := []string{"go", " channels ", "go"}
	deadline := time.Date(2025, 4, 1, 18, 30, 0, 0, time.UTC)
	got, err := s.Update(context.Background(), rec.ID, model.Patch{
		Title:          &title,
		EstimatedHours: &hours,
		Tags:           &tags,
		Deadline:       &deadline,
	})
	require.NoError(t, err)

	assert.Equal(t, "Go Concurrency", got.Title)
	assert.Equal(t, 40, got.EstimatedHours)
	assert.Equal(t, []string{"go", "channels"}, got.Tags)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), *got.Deadline)
	assert.Equal(t, rec.CreatedAt, got.CreatedAt)
	assert.Equal(t, later, got.UpdatedAt)

	got, err = s.Update(context.Background(), rec.ID, model.Patch{ClearDeadline: true})
	require.NoError(t, err)
	assert.Nil(t, got.Deadline)
}

func TestEditValidatesTouchedFields(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	rec, err := s.Add(context.Background(), model.Draft{Title: "Go", Description: "tiny"})
	require.NoError(t, err)
	saves := p.saveCount()

	title, desc, hours := "Re", "x", 5000
	past := testNow.AddDate(0, 0, -1)
	_, err = s.Edit(context.Background(), rec.ID, model.Patch{
		Title:          &title,
		Description:    &desc,
		EstimatedHours: &hours,
		Deadline:       &past,
	}, true)
	verr, ok := model.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"deadline", "description", "estimatedHours", "title"}, verr.Violations.Fields())

	for _, h := range []int{-3, 0} {
		_, err = s.Edit(context.Background(), rec.ID, model.Patch{EstimatedHours: &h}, true)
		verr, ok = model.IsValidationError(err)
		require.True(t, ok, "hours %d", h)
		assert.Equal(t, []string{"estimatedHours"}, verr.Violations.Fields())
	}

	unknown := model.Category("other")
	_, err = s.Edit(context.Background(), rec.ID, model.Patch{Category: &unknown}, false)
	verr, ok = model.IsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Violations, "category")
	assert.Equal(t, saves, p.saveCount())

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// untouched short fields from an unvalidated add do not block other edits
	prio := model.PriorityHigh
	got, err = s.Edit(context.Background(), rec.ID, model.Patch{Priority: &prio}, true)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Equal(t, "tiny", got.Description)

	_, err = s.Edit(context.Background(), "nope", model.Patch{Priority: &prio}, true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateMissingID(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	notes := "x"

	_, err := s.Update(context.Background(), "nope", model.Patch{Notes: &notes})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.UpdateNotes(context.Background(), "nope", "x")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.UpdateStatus(context.Background(), "nope", model.StatusCompleted)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, p.saveCount())
}

func TestUpdateStatusEveryValue(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	rec := addAll(t, s, "Go")[0]

	for _, st := range model.Statuses {
		_, err := s.UpdateStatus(context.Background(), rec.ID, st)
		require.NoError(t, err)

		got, err := s.Get(rec.ID)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	rec := addAll(t, s, "Go")[0]
	_, err := s.UpdateStatus(context.Background(), rec.ID, model.StatusInProgress)
	require.NoError(t, err)
	saves := p.saveCount()

	_, err = s.UpdateStatus(context.Background(), rec.ID, "paused")
	assert.ErrorIs(t, err, model.ErrInvalidValue)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, saves, p.saveCount())
}

func TestAdvanceStatusCycles(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	rec := addAll(t, s, "Go")[0]

	want := []model.Status{model.StatusInProgress, model.StatusCompleted, model.StatusNotStarted}
	for _, st := range want {
		got, err := s.AdvanceStatus(context.Background(), rec.ID)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}

	_, err := s.AdvanceStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeleteThenGet(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	recs := addAll(t, s, "Go", "Rust", "Zig")

	require.NoError(t, s.Delete(context.Background(), recs[1].ID))
	_, err := s.Get(recs[1].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 2, s.Len())

	saves := p.saveCount()
	require.NoError(t, s.Delete(context.Background(), recs[1].ID))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, saves, p.saveCount())
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	addAll(t, s, "Go", "Rust")

	require.NoError(t, s.DeleteAll(context.Background()))
	assert.Empty(t, s.All())
	assert.Equal(t, 0, s.Stats().Progress)
}

func TestMarkAllCompletedScenario(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	recs := addAll(t, s, "Go", "Rust", "Zig")
	_, err := s.UpdateStatus(context.Background(), recs[1].ID, model.StatusInProgress)
	require.NoError(t, err)
	_, err = s.UpdateStatus(context.Background(), recs[2].ID, model.StatusCompleted)
	require.NoError(t, err)
	saves := p.saveCount()

	require.NoError(t, s.MarkAllCompleted(context.Background()))

	for _, rec := range s.All() {
		assert.Equal(t, model.StatusCompleted, rec.Status)
	}
	st := s.Stats()
	assert.Equal(t, 3, st.Completed)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, saves+1, p.saveCount())
}

func TestResetAll(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	addAll(t, s, "Go", "Rust")
	require.NoError(t, s.MarkAllCompleted(context.Background()))

	require.NoError(t, s.ResetAll(context.Background()))
	st := s.Stats()
	assert.Equal(t, 2, st.NotStarted)
	assert.Equal(t, 0, st.Progress)
}

func TestPersistenceFailureKeepsMutation(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("quota")}
	s := newTestStore(t, p)

	rec, err := s.Add(context.Background(), draft("Go"))
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Equal(t, "Go", rec.Title)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Title)
}

func TestStatsOnEmptyCollection(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	st := s.Stats()
	assert.Equal(t, 0, st.Total)
	assert.Equal(t, 0, st.Progress)
}

func TestNewUsesSeedWhenSlotEmpty(t *testing.T) {
	s := New(context.Background(), &fakePersister{}, WithSeed(StarterSet()))
	assert.Equal(t, len(StarterSet()), s.Len())

	rec, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "React Components", rec.Title)
}

func TestNewNormalizesLoadedRecords(t *testing.T) {
	p := &fakePersister{loaded: []model.Technology{
		{ID: "a", Title: "Go", Status: "paused"},
		{ID: "a", Title: "Rust"},
		{Title: "Zig"},
	}}
	s := newTestStore(t, p)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, model.StatusNotStarted, all[0].Status)
	assert.Equal(t, model.ID("a"), all[0].ID)
	assert.NotEqual(t, model.ID("a"), all[1].ID)
	assert.NotEmpty(t, all[2].ID)
	assert.Equal(t, testNow, all[2].CreatedAt)
}

func TestImportReplaceRegeneratesCollidingIDs(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	addAll(t, s, "Old")

	n, err := s.ImportReplace(context.Background(), []model.Technology{
		{ID: "x", Title: "Go", Category: "backend"},
		{ID: "x", Title: "Rust", Status: "completed"},
		{Title: "Zig"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "Go", all[0].Title)
	assert.Equal(t, model.CategoryBackend, all[0].Category)
	assert.Equal(t, model.StatusCompleted, all[1].Status)
	ids := map[model.ID]bool{}
	for _, rec := range all {
		ids[rec.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestImportReplaceRejectsUntitled(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	addAll(t, s, "Go")
	saves := p.saveCount()

	_, err := s.ImportReplace(context.Background(), []model.Technology{{Title: "  "}})
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, saves, p.saveCount())
}

func TestImportRejectsMalformedPayload(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	addAll(t, s, "Go")

	_, err := s.Import(context.Background(), []byte(`{"items":[]}`), false)
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
	assert.Equal(t, 1, s.Len())
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestStore(t, &fakePersister{})
	recs := addAll(t, src, "Go", "Rust", "Zig")
	_, err := src.UpdateStatus(context.Background(), recs[0].ID, model.StatusCompleted)
	require.NoError(t, err)
	_, err = src.UpdateNotes(context.Background(), recs[1].ID, "ownership")
	require.NoError(t, err)

	data, err := transfer.ExportJSON(src.All(), testNow)
	require.NoError(t, err)

	dst := newTestStore(t, &fakePersister{})
	n, err := dst.Import(context.Background(), data, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := src.All()
	got := dst.All()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Description, got[i].Description)
		assert.Equal(t, want[i].Category, got[i].Category)
		assert.Equal(t, want[i].Difficulty, got[i].Difficulty)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].Priority, got[i].Priority)
		assert.Equal(t, want[i].Notes, got[i].Notes)
		assert.Equal(t, want[i].EstimatedHours, got[i].EstimatedHours)
	}
}

func TestImportMerge(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	recs := addAll(t, s, "Go", "Rust")

	n, err := s.ImportMerge(context.Background(), []model.Technology{
		{ID: recs[0].ID, Title: "Go 2", Status: model.StatusCompleted, CreatedAt: testNow.Add(48 * time.Hour)},
		{ID: "fresh", Title: "Zig"},
		{Title: "Odin"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all := s.All()
	require.Len(t, all, 4)
	assert.Equal(t, "Rust", all[0].Title)
	assert.Equal(t, "Go 2", all[1].Title)
	assert.Equal(t, recs[0].CreatedAt, all[1].CreatedAt)
	assert.Equal(t, model.StatusCompleted, all[1].Status)
	assert.Equal(t, "Zig", all[2].Title)
	assert.Equal(t, model.ID("fresh"), all[2].ID)
	assert.Equal(t, "Odin", all[3].Title)
	assert.NotEmpty(t, all[3].ID)
}

func TestImportMergeRegeneratesRepeatedIDs(t *testing.T) {
	s := newTestStore(t, &fakePersister{})
	existing := addAll(t, s, "Go")[0]

	n, err := s.ImportMerge(context.Background(), []model.Technology{
		{ID: "x", Title: "First"},
		{ID: "x", Title: "Second"},
		{ID: existing.ID, Title: "Go 2"},
		{ID: existing.ID, Title: "Go 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	all := s.All()
	require.Len(t, all, 4)
	assert.Equal(t, n, len(all))
	assert.Equal(t, []string{"Go 2", "First", "Second", "Go 3"}, titles(all))
	ids := map[model.ID]bool{}
	for _, tech := range all {
		ids[tech.ID] = true
	}
	assert.Len(t, ids, 4)
	assert.Equal(t, model.ID("x"), all[1].ID)
	assert.Equal(t, existing.ID, all[0].ID)
}

func TestSyncAdoptsForeignWrite(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, p)
	addAll(t, s, "Go")

	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	p.changed = []model.Technology{{ID: "z", Title: "Zig"}, {ID: "r", Title: "Rust"}}
	changed, err = s.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, s.Len())
}

func TestStoreOverSQLiteAdapter(t *testing.T) {
	ctx := context.Background()
	slot, err := store.NewSQLiteSlot(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = slot.Close() })

	first := New(ctx, store.NewAdapter(slot, nil), WithSeed(StarterSet()))
	_, err = first.Add(ctx, draft("Kubernetes"))
	require.NoError(t, err)

	second := New(ctx, store.NewAdapter(slot, nil), WithSeed(StarterSet()))
	assert.Equal(t, len(StarterSet())+1, second.Len())
	assert.Equal(t, "Kubernetes", second.All()[0].Title)

	require.NoError(t, second.Delete(ctx, second.All()[0].ID))
	changed, err := first.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, len(StarterSet()), first.Len())
}

func TestConcurrentMutations(t *testing.T) {
	s := New(context.Background(), &fakePersister{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := s.Add(context.Background(), draft(fmt.Sprintf("tech %d", i)))
			if err != nil {
				return
			}
			_, _ = s.AdvanceStatus(context.Background(), rec.ID)
			_ = s.Search("tech")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}
