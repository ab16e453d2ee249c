package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/tech-tracker/internal/credential"
	"github.com/nhle/tech-tracker/internal/model"
	"github.com/nhle/tech-tracker/internal/stats"
	"github.com/nhle/tech-tracker/internal/tracker"
)

// setupCLI points the globals at a throwaway database and an in-memory
// keyring.
func setupCLI(t *testing.T) *credential.Vault {
	t.Helper()
	dir := t.TempDir()

	logger = zap.NewNop()
	cfgPath = filepath.Join(dir, "config.yaml")
	cfg = model.DefaultAppConfig()
	cfg.Storage.Path = filepath.Join(dir, "data", "tracker.db")
	cfg.Log.File = ""
	cfg.Lookup.BaseURL = ""

	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	prev := openVault
	openVault = func() (*credential.Vault, error) { return vault, nil }
	t.Setenv(tokenEnv, "")

	t.Cleanup(func() {
		openVault = prev
		cfg = nil
		cfgPath = ""
	})
	return vault
}

// newCmd returns a bare command with the given flags and captured output.
func newCmd(define func(*cobra.Command), input string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	if define != nil {
		define(cmd)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetContext(context.Background())
	return cmd, &out
}

func yesFlag(cmd *cobra.Command) { cmd.Flags().Bool("yes", false, "") }

func loadAll(t *testing.T) []model.Technology {
	t.Helper()
	s, slot, err := openTracker(context.Background())
	require.NoError(t, err)
	defer slot.Close()
	return s.All()
}

func find(items []model.Technology, title string) (model.Technology, bool) {
	for _, t := range items {
		if t.Title == title {
			return t, true
		}
	}
	return model.Technology{}, false
}

func TestListShowsStarterSet(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(addListFlags, "")
	require.NoError(t, runList(cmd, nil))

	assert.Contains(t, out.String(), "React Components")
	assert.Contains(t, out.String(), "Database Design")
	assert.Contains(t, out.String(), "6 technologies")
}

func TestListFilters(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(addListFlags, "")
	require.NoError(t, cmd.Flags().Set("category", "backend"))
	require.NoError(t, cmd.Flags().Set("sort", "title"))
	require.NoError(t, runList(cmd, nil))

	text := out.String()
	assert.Contains(t, text, "2 technologies")
	assert.Less(t, strings.Index(text, "Node.js Basics"), strings.Index(text, "REST API"))
	assert.NotContains(t, text, "React Components")
}

func TestListRejectsUnknownSortField(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(addListFlags, "")
	require.NoError(t, cmd.Flags().Set("sort", "stars"))
	assert.ErrorIs(t, runList(cmd, nil), model.ErrInvalidValue)
}

func TestAddPersists(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("description", "Containers and images"))
	require.NoError(t, cmd.Flags().Set("category", "DevOps"))
	require.NoError(t, cmd.Flags().Set("difficulty", "intermediate"))
	require.NoError(t, cmd.Flags().Set("tags", "containers, ops"))
	require.NoError(t, cmd.Flags().Set("hours", "20"))
	require.NoError(t, runAdd(cmd, []string{"Docker"}))
	assert.Contains(t, out.String(), `Added "Docker"`)

	items := loadAll(t)
	require.Len(t, items, 7)
	got := items[0]
	assert.Equal(t, "Docker", got.Title)
	assert.Equal(t, model.CategoryDevOps, got.Category)
	assert.Equal(t, model.DifficultyIntermediate, got.Difficulty)
	assert.Equal(t, model.StatusNotStarted, got.Status)
	assert.Equal(t, []string{"containers", "ops"}, got.Tags)
	assert.Equal(t, 20, got.EstimatedHours)
}

func TestAddValidates(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(addRecordFlags, "")
	err := runAdd(cmd, []string{"Go"})
	_, ok := model.IsValidationError(err)
	assert.True(t, ok, "short description should fail validation: %v", err)

	cmd, _ = newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("category", "cooking"))
	assert.ErrorIs(t, runAdd(cmd, []string{"Go"}), model.ErrInvalidValue)

	assert.Len(t, loadAll(t), 6)
}

func TestStatusCommand(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(func(c *cobra.Command) { c.Flags().Bool("next", false, "") }, "")
	require.NoError(t, runStatus(cmd, []string{"5", "completed"}))
	assert.Contains(t, out.String(), `"REST API" is now Completed`)

	out.Reset()
	require.NoError(t, cmd.Flags().Set("next", "true"))
	require.NoError(t, runStatus(cmd, []string{"1"}))
	assert.Contains(t, out.String(), `"React Components" is now Not started`)

	assert.ErrorIs(t, runStatus(cmd, []string{"99", "completed"}), model.ErrNotFound)
	assert.ErrorIs(t, runStatus(cmd, []string{"2", "paused"}), model.ErrInvalidValue)
}

func TestStatusNeedsTarget(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(func(c *cobra.Command) { c.Flags().Bool("next", false, "") }, "")
	assert.Error(t, runStatus(cmd, []string{"1"}))
}

func TestNotesAndEdit(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(nil, "")
	require.NoError(t, runNotes(cmd, []string{"3", "useReducer next"}))

	cmd, out := newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("priority", "high"))
	require.NoError(t, cmd.Flags().Set("deadline", "2030-01-31"))
	require.NoError(t, runEdit(cmd, []string{"3"}))
	assert.Contains(t, out.String(), `Updated "State Management"`)

	got, ok := find(loadAll(t), "State Management")
	require.True(t, ok)
	assert.Equal(t, "useReducer next", got.Notes)
	assert.Equal(t, model.PriorityHigh, got.Priority)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, "2030-01-31", got.Deadline.Format(model.DateLayout))
	assert.Equal(t, "Component state with useState", got.Description)

	cmd, _ = newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("deadline", ""))
	require.NoError(t, runEdit(cmd, []string{"3"}))
	got, _ = find(loadAll(t), "State Management")
	assert.Nil(t, got.Deadline)
}

func TestEditRejectsEmptyChanges(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(addRecordFlags, "")
	assert.Error(t, runEdit(cmd, []string{"3"}))

	require.NoError(t, cmd.Flags().Set("title", "  "))
	verr, ok := model.IsValidationError(runEdit(cmd, []string{"3"}))
	require.True(t, ok)
	assert.Contains(t, verr.Violations, "title")
}

func TestEditValidatesMergedRecord(t *testing.T) {
	setupCLI(t)
	before, ok := find(loadAll(t), "State Management")
	require.True(t, ok)

	cmd, out := newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("title", "Re"))
	require.NoError(t, cmd.Flags().Set("hours", "5000"))
	require.NoError(t, cmd.Flags().Set("deadline", "2000-01-01"))
	require.NoError(t, cmd.Flags().Set("description", "x"))
	verr, ok := model.IsValidationError(runEdit(cmd, []string{"3"}))
	require.True(t, ok)
	for _, field := range []string{"title", "description", "estimatedHours", "deadline"} {
		assert.Contains(t, verr.Violations, field)
	}
	assert.NotContains(t, out.String(), "Updated")

	cmd, _ = newCmd(addRecordFlags, "")
	require.NoError(t, cmd.Flags().Set("hours", "-3"))
	verr, ok = model.IsValidationError(runEdit(cmd, []string{"3"}))
	require.True(t, ok)
	assert.Equal(t, []string{"estimatedHours"}, verr.Violations.Fields())

	after, ok := find(loadAll(t), "State Management")
	require.True(t, ok)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.EstimatedHours, after.EstimatedHours)
	assert.Equal(t, before.Deadline, after.Deadline)
}

func TestRecordFlagsListEveryEnumValue(t *testing.T) {
	cmd, _ := newCmd(addRecordFlags, "")
	usage := cmd.Flags().FlagUsages()
	for _, c := range model.Categories {
		assert.Contains(t, usage, string(c))
	}
	for _, d := range model.Difficulties {
		assert.Contains(t, usage, string(d))
	}
	assert.NotContains(t, usage, "other")
	assert.Equal(t, "low, medium, high or critical", oneOf(model.Priorities))
}

func TestRunExitCodes(t *testing.T) {
	setupCLI(t)
	assert.Equal(t, 0, run([]string{"--help"}))
	assert.Equal(t, 1, run([]string{"no-such-command"}))
}

func TestDelete(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(nil, "")
	require.NoError(t, runDelete(cmd, []string{"4"}))
	assert.Contains(t, out.String(), `Deleted "Node.js Basics"`)
	assert.Len(t, loadAll(t), 5)

	assert.ErrorIs(t, runDelete(cmd, []string{"4"}), model.ErrNotFound)
}

func TestResolveIDPrefix(t *testing.T) {
	setupCLI(t)

	ids := []model.ID{"abc123", "abd456"}
	next := 0
	s := tracker.New(context.Background(), memoryPersister{},
		tracker.WithIDGenerator(func() model.ID { id := ids[next]; next++; return id }))
	for _, title := range []string{"Go", "Rust"} {
		_, err := s.Add(context.Background(), model.Draft{Title: title})
		require.NoError(t, err)
	}

	id, err := resolveID(s, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.ID("abc123"), id)

	id, err = resolveID(s, "abd456")
	require.NoError(t, err)
	assert.Equal(t, model.ID("abd456"), id)

	_, err = resolveID(s, "ab")
	assert.ErrorContains(t, err, "matches 2")

	_, err = resolveID(s, "zz")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

type memoryPersister struct{}

func (memoryPersister) Load(_ context.Context, _ string, def []model.Technology) []model.Technology {
	return def
}

func (memoryPersister) Save(context.Context, string, []model.Technology) error { return nil }

func (memoryPersister) Changed(context.Context, string) ([]model.Technology, bool, error) {
	return nil, false, nil
}

func TestBulkCommandsConfirm(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(yesFlag, "n\n")
	require.NoError(t, runClear(cmd, nil))
	assert.Contains(t, out.String(), "Delete every tracked technology (6 records)? [y/N]")
	assert.Contains(t, out.String(), "Aborted")
	assert.Len(t, loadAll(t), 6)

	cmd, _ = newCmd(yesFlag, "")
	require.NoError(t, cmd.Flags().Set("yes", "true"))
	require.NoError(t, runCompleteAll(cmd, nil))
	for _, tech := range loadAll(t) {
		assert.Equal(t, model.StatusCompleted, tech.Status)
	}

	cmd, _ = newCmd(yesFlag, "y\n")
	require.NoError(t, runResetAll(cmd, nil))
	for _, tech := range loadAll(t) {
		assert.Equal(t, model.StatusNotStarted, tech.Status)
	}

	cmd, out = newCmd(yesFlag, "yes\n")
	require.NoError(t, runClear(cmd, nil))
	assert.Contains(t, out.String(), "Cleared the collection")
	assert.Empty(t, loadAll(t))
}

func exportFlags(c *cobra.Command) {
	c.Flags().String("format", "json", "")
	c.Flags().String("out", "", "")
	c.Flags().Bool("template", false, "")
}

func TestExportImportRoundTrip(t *testing.T) {
	setupCLI(t)
	file := filepath.Join(t.TempDir(), "backup.json")

	cmd, _ := newCmd(exportFlags, "")
	require.NoError(t, cmd.Flags().Set("out", file))
	require.NoError(t, runExport(cmd, nil))

	cmd, _ = newCmd(yesFlag, "")
	require.NoError(t, cmd.Flags().Set("yes", "true"))
	require.NoError(t, runClear(cmd, nil))
	require.Empty(t, loadAll(t))

	cmd, out := newCmd(func(c *cobra.Command) { c.Flags().Bool("merge", false, "") }, "")
	require.NoError(t, runImport(cmd, []string{file}))
	assert.Contains(t, out.String(), "Imported 6 technologies (6 tracked)")

	got, ok := find(loadAll(t), "Database Design")
	require.True(t, ok)
	assert.Equal(t, model.ID("6"), got.ID)
	assert.Equal(t, "Designed a normalized schema for a blog", got.Notes)
}

func TestImportCSVMerge(t *testing.T) {
	setupCLI(t)
	file := filepath.Join(t.TempDir(), "more.csv")
	csv := "title,description,category,difficulty,status,createdAt\n" +
		"Kubernetes,Container orchestration,devops,advanced,in-progress,2025-01-02T00:00:00Z\n"
	require.NoError(t, os.WriteFile(file, []byte(csv), 0o644))

	cmd, out := newCmd(func(c *cobra.Command) { c.Flags().Bool("merge", false, "") }, "")
	require.NoError(t, cmd.Flags().Set("merge", "true"))
	require.NoError(t, runImport(cmd, []string{file}))
	assert.Contains(t, out.String(), "Merged 1 technologies (7 tracked)")

	got, ok := find(loadAll(t), "Kubernetes")
	require.True(t, ok)
	assert.Equal(t, model.CategoryDevOps, got.Category)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestImportRejectsMalformed(t *testing.T) {
	setupCLI(t)

	cmd, _ := newCmd(func(c *cobra.Command) { c.Flags().Bool("merge", false, "") }, `{"items": []}`)
	assert.ErrorIs(t, runImport(cmd, []string{"-"}), model.ErrInvalidFormat)
	assert.Len(t, loadAll(t), 6)
}

func TestExportCSVAndTemplate(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(exportFlags, "")
	require.NoError(t, cmd.Flags().Set("format", "csv"))
	require.NoError(t, runExport(cmd, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 7)
	assert.Contains(t, lines[0], `"title"`)

	cmd, out = newCmd(exportFlags, "")
	require.NoError(t, cmd.Flags().Set("template", "true"))
	require.NoError(t, runExport(cmd, nil))
	assert.Contains(t, out.String(), `"technologies"`)

	cmd, _ = newCmd(exportFlags, "")
	require.NoError(t, cmd.Flags().Set("format", "xml"))
	assert.ErrorIs(t, runExport(cmd, nil), model.ErrInvalidValue)
}

func TestRestoreStepsBack(t *testing.T) {
	setupCLI(t)
	restoreFlags := func(c *cobra.Command) { c.Flags().Bool("list", false, "") }

	cmd, _ := newCmd(restoreFlags, "")
	assert.ErrorContains(t, runRestore(cmd, nil), "nothing to restore")

	del, _ := newCmd(nil, "")
	require.NoError(t, runDelete(del, []string{"1"}))
	require.NoError(t, runDelete(del, []string{"2"}))
	require.Len(t, loadAll(t), 4)

	cmd, out := newCmd(restoreFlags, "")
	require.NoError(t, cmd.Flags().Set("list", "true"))
	require.NoError(t, runRestore(cmd, nil))
	assert.Contains(t, out.String(), "5 technologies")

	cmd, out = newCmd(restoreFlags, "")
	require.NoError(t, runRestore(cmd, nil))
	assert.Contains(t, out.String(), "Restored 5 technologies")
	assert.Len(t, loadAll(t), 5)
}

func TestStatsCommand(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(func(c *cobra.Command) { c.Flags().Bool("json", false, "") }, "")
	require.NoError(t, runStats(cmd, nil))
	assert.Contains(t, out.String(), "Progress:     33% (2 of 6 completed)")
	assert.Contains(t, out.String(), "Top category: frontend")

	out.Reset()
	require.NoError(t, cmd.Flags().Set("json", "true"))
	require.NoError(t, runStats(cmd, nil))
	var st stats.Stats
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.Equal(t, 6, st.Total)
	assert.Equal(t, 2, st.Completed)
	assert.Equal(t, 3, st.ByCategory[model.CategoryFrontend])
}

func TestSearchCommand(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(nil, "")
	require.NoError(t, runSearch(cmd, []string{"express"}))
	assert.Contains(t, out.String(), "REST API")
	assert.Contains(t, out.String(), "1 technologies")

	out.Reset()
	require.NoError(t, runOverdue(cmd, nil))
	assert.Contains(t, out.String(), "No technologies found.")
}

func lookupFlags(c *cobra.Command) {
	c.Flags().Int("limit", 0, "")
	c.Flags().Int("import", 0, "")
}

func TestLookupFallsBackToCatalog(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(lookupFlags, "")
	require.NoError(t, cmd.Flags().Set("import", "1"))
	require.NoError(t, runLookup(cmd, []string{"mongo"}))

	assert.Contains(t, out.String(), "built-in suggestions")
	assert.Contains(t, out.String(), `Now tracking "MongoDB"`)
	got, ok := find(loadAll(t), "MongoDB")
	require.True(t, ok)
	assert.Equal(t, model.CategoryDatabase, got.Category)
}

func TestLookupQueriesServerWithStoredToken(t *testing.T) {
	vault := setupCLI(t)
	require.NoError(t, vault.SetLookupToken("secret-token"))

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"name":"gin","description":"HTTP web framework written in Go","html_url":"https://github.com/gin-gonic/gin","language":"Go","stargazers_count":80000}]}`))
	}))
	t.Cleanup(srv.Close)
	cfg.Lookup.BaseURL = srv.URL

	cmd, out := newCmd(lookupFlags, "")
	require.NoError(t, runLookup(cmd, []string{"gin"}))

	assert.Equal(t, "Bearer secret-token", auth)
	assert.Contains(t, out.String(), "gin")
	assert.NotContains(t, out.String(), "built-in suggestions")

	require.NoError(t, cmd.Flags().Set("import", "3"))
	assert.ErrorContains(t, runLookup(cmd, []string{"gin"}), "between 1 and 1")
}

func TestLookupImportFitsShortNames(t *testing.T) {
	setupCLI(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"name":"ky","description":"Tiny HTTP","html_url":"https://github.com/sindresorhus/ky","language":"TypeScript","stargazers_count":14000}]}`))
	}))
	t.Cleanup(srv.Close)
	cfg.Lookup.BaseURL = srv.URL

	cmd, out := newCmd(lookupFlags, "")
	require.NoError(t, cmd.Flags().Set("import", "1"))
	require.NoError(t, runLookup(cmd, []string{"ky"}))
	assert.Contains(t, out.String(), `Now tracking "sindresorhus/ky"`)

	got, ok := find(loadAll(t), "sindresorhus/ky")
	require.True(t, ok)
	assert.Equal(t, "Tiny HTTP (TypeScript repository)", got.Description)
	assert.Equal(t, "https://github.com/sindresorhus/ky", got.Notes)
}

func TestTokenCommands(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(nil, "")
	require.NoError(t, runTokenStatus(cmd, nil))
	assert.Contains(t, out.String(), "No token stored")

	cmd, _ = newCmd(nil, "ghp_example1234\n")
	require.NoError(t, runTokenSet(cmd, nil))

	cmd, out = newCmd(nil, "")
	require.NoError(t, runTokenStatus(cmd, nil))
	assert.Contains(t, out.String(), "***********1234")
	assert.Equal(t, "ghp_example1234", lookupToken())

	t.Setenv(tokenEnv, "from-env")
	assert.Equal(t, "from-env", lookupToken())

	require.NoError(t, runTokenDelete(cmd, nil))
	out.Reset()
	require.NoError(t, runTokenStatus(cmd, nil))
	assert.Contains(t, out.String(), "No token stored")

	assert.Error(t, runTokenSet(cmd, []string{"   "}))
}

func TestConfigInitAndShow(t *testing.T) {
	setupCLI(t)

	cmd, out := newCmd(func(c *cobra.Command) { c.Flags().Bool("force", false, "") }, "")
	require.NoError(t, runConfigInit(cmd, nil))
	assert.FileExists(t, cfgPath)
	assert.Contains(t, out.String(), "Wrote")

	assert.ErrorContains(t, runConfigInit(cmd, nil), "already exists")
	require.NoError(t, cmd.Flags().Set("force", "true"))
	require.NoError(t, runConfigInit(cmd, nil))

	out.Reset()
	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, out.String(), "storage:")
	assert.Contains(t, out.String(), "sort_by: createdAt")
}
