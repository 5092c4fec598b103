package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/app-catalog/internal/config"
	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/prefs"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
)

func seededStore(t *testing.T) storage.Storage {
	t.Helper()
	store := memory.New()
	g := gateway.NewApplications(store, zerolog.Nop())
	for _, req := range []*domain.CreateApplicationRequest{
		{AppCode: "HR1", Name: "Employee Management System", FunctionalDomains: []string{"Human Resources"},
			Stakeholders: &domain.Stakeholders{ProductOwner: "Dana Lee"}},
		{AppCode: "FN1", Name: "Ledger", FunctionalDomains: []string{"Finance"}, TechnicalStack: []string{"Java"}},
		{AppCode: "MK1", Name: "Campaign Hub", FunctionalDomains: []string{"Marketing"}, Status: domain.StatusDeprecated},
	} {
		_, err := g.Create(context.Background(), req)
		require.NoError(t, err)
	}
	return store
}

// run executes one command against store and p, returning what it printed.
func run(t *testing.T, store storage.Storage, p prefs.Store, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{
		cfg:   &config.Config{Search: config.SearchConfig{Debounce: 10 * time.Millisecond, PageSize: 2}},
		store: store,
		prefs: p,
		out:   &out,
	}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListPaginates(t *testing.T) {
	store := seededStore(t)

	out, err := run(t, store, prefs.NewMemoryStore(), "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "page 1 of 2 (3 applications)")

	out, err = run(t, store, prefs.NewMemoryStore(), "", "list", "--page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "page 2 of 2")
}

func TestListFilters(t *testing.T) {
	store := seededStore(t)

	out, err := run(t, store, prefs.NewMemoryStore(), "", "list", "--domain", "Finance", "--domain", "Marketing", "--status", "Deprecated")
	require.NoError(t, err)
	assert.Contains(t, out, "MK1")
	assert.NotContains(t, out, "FN1")
	assert.NotContains(t, out, "HR1")

	_, err = run(t, store, prefs.NewMemoryStore(), "", "list", "--status", "Retired")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchRecordsHistory(t *testing.T) {
	store := seededStore(t)
	p := prefs.NewMemoryStore()

	out, err := run(t, store, p, "", "search", "dana", "lee")
	require.NoError(t, err)
	assert.Contains(t, out, "HR1")
	assert.NotContains(t, out, "FN1")

	out, err = run(t, store, p, "", "search", "--server", "ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "FN1")
	assert.NotContains(t, out, "HR1")

	out, err = run(t, store, p, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, " 1  ledger")
	assert.Contains(t, out, " 2  dana lee")

	_, err = run(t, store, p, "", "history", "--clear")
	require.NoError(t, err)
	history, err := prefs.LoadHistory(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSuggest(t *testing.T) {
	out, err := run(t, seededStore(t), prefs.NewMemoryStore(), "", "suggest", "fin")
	require.NoError(t, err)
	assert.Equal(t, "Finance\n", out)
}

func TestShow(t *testing.T) {
	store := seededStore(t)

	out, err := run(t, store, prefs.NewMemoryStore(), "", "show", "hr1")
	require.NoError(t, err)
	assert.Contains(t, out, "Employee Management System")
	assert.Contains(t, out, "Dana Lee")

	_, err = run(t, store, prefs.NewMemoryStore(), "", "show", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportAndExport(t *testing.T) {
	store := seededStore(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "catalog.json")
	body := `[{"appCode":"SC1","name":"Warehouse","functionalDomains":["Supply Chain"]},{"name":"no code"}]`
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))

	out, err := run(t, store, prefs.NewMemoryStore(), "", "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 applications, 1 failed")

	out, err = run(t, store, prefs.NewMemoryStore(), "", "export", "--format", "yaml", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")

	matches, err := filepath.Glob(filepath.Join(dir, "applications-*.yaml"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Warehouse")

	_, err = run(t, store, prefs.NewMemoryStore(), "", "export", "--format", "csv", "--dir", dir)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestThemePersists(t *testing.T) {
	store := seededStore(t)
	p := prefs.NewMemoryStore()

	out, err := run(t, store, p, "", "theme")
	require.NoError(t, err)
	assert.Equal(t, "light\n", out)

	out, err = run(t, store, p, "", "theme", "--toggle")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	out, err = run(t, store, p, "", "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)
}

func TestStats(t *testing.T) {
	out, err := run(t, seededStore(t), prefs.NewMemoryStore(), "", "stats")
	require.NoError(t, err)
	assert.Regexp(t, `Total\s+3\n`, out)
	assert.Regexp(t, `Deprecated\s+1\n`, out)
}

func TestShell(t *testing.T) {
	input := "ledg\n:submit\n:show FN1\n:quit\nnever read\n"
	out, err := run(t, seededStore(t), prefs.NewMemoryStore(), input, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "FN1")
	assert.Contains(t, out, "Java")
	assert.NotContains(t, out, "HR1")
}
