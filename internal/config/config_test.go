package config

import (
	"context"
	"os"
	"path/filepath"
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"siiau-backend/lib/markup"
	"siiau-backend/lib/scrapers/siiau"
	"siiau-backend/services/notify"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `{
  // course offering query
  catalog: {
    term: "202510",
    center: "D",
    major: "ICOM",
    max_rows: 500,
    curriculum: "curriculum.yaml",
    interval: "5m",
    permissive_text: true,
  },
  subscriptions: {
    database: ":memory:",
    cooldown: "2h",
  },
}`

const exampleCurriculum = `primero: [I5288, I5247]
segundo:
  - IL352
  - LT251
`

type nopFetcher struct{}

func (nopFetcher) Fetch(ctx context.Context, req siiau.FetchRequest) ([]byte, error) {
	return nil, nil
}

func writeFiles(t testing.TB, files map[string]string) string {
	dir := t.TempDir()
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0600))
	}
	return dir
}

func TestRead(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"config.json5":    exampleConfig,
		"curriculum.yaml": exampleCurriculum,
	})

	cfg, err := Read(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)

	req, err := cfg.Catalog.Request()
	require.NoError(t, err)
	require.Equal(t, siiau.FetchRequest{Term: "202510", Center: "D", Major: "ICOM", MaxRows: 500}, req)

	curriculum, err := cfg.LoadCurriculum()
	require.NoError(t, err)
	expected := catalog.Curriculum{
		"primero": {"I5288", "I5247"},
		"segundo": {"IL352", "LT251"},
	}
	if diff := cmp.Diff(expected, curriculum); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	opts, err := cfg.CatalogOptions(nopFetcher{})
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, opts.Interval)
	require.NotNil(t, opts.TextFilter)
	require.True(t, opts.TextFilter("año"))
	require.False(t, markup.DefaultTextFilter("año"))

	_, ok := cfg.Notifier().(notify.LogNotifier)
	require.True(t, ok)

	store, database, err := cfg.OpenStore(chrono.NewStandardTime())
	require.NoError(t, err)
	defer database.Close()

	monitor, err := cfg.MonitorOptions(store, nil, notify.LogNotifier{})
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, monitor.Cooldown)
}

func TestReadInvalid(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)

	dir := writeFiles(t, map[string]string{
		"config.json5": `{catalog: {term: "202510", center: "D", major: "ICOM", interval: "soon"}}`,
	})
	cfg, err := Read(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	_, err = cfg.CatalogOptions(nopFetcher{})
	require.Error(t, err)

	cfg.Catalog.Interval = ""
	for _, marker := range []string{"il", "1", " "} {
		cfg.Catalog.SubjectMarker = marker
		_, err = cfg.CatalogOptions(nopFetcher{})
		require.ErrorContains(t, err, "subject_marker")
	}
	cfg.Catalog.SubjectMarker = "l"
	opts, err := cfg.CatalogOptions(nopFetcher{})
	require.NoError(t, err)
	require.Equal(t, "l", opts.SubjectMarker)

	cfg.Catalog.Term = ""
	_, err = cfg.Catalog.Request()
	require.Error(t, err)

	cfg.Catalog.Curriculum = "missing.yaml"
	_, err = cfg.LoadCurriculum()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNotifier(t *testing.T) {
	cfg := Config{Subscriptions: SubscriptionsConfig{
		Smtp: &notify.SmtpConfig{Server: "smtp.example.com", Port: 587},
	}}
	_, ok := cfg.Notifier().(notify.EmailNotifier)
	require.True(t, ok)
}
