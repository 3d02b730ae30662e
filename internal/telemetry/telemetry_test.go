package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("catalog", NewScopedAPI("build", rec))

	scoped.ReportWarning("malformed-record", 5, KV{Key: "row", Value: 2})
	scoped.ReportBroken("fetch")
	scoped.ReportCount("sections", 3)

	warnings := rec.Reports("warning", "malformed-record")
	require.Len(t, warnings, 1)
	require.Equal(t, "build:catalog:malformed-record", warnings[0].ID)
	require.Equal(t, []any{5, KV{Key: "row", Value: 2}}, warnings[0].Params)

	require.Len(t, rec.Reports("broken", ""), 1)
	require.Equal(t, []any{int64(3)}, rec.Reports("count", "sections")[0].Params)
	require.Len(t, rec.Reports("", ""), 3)
	require.Empty(t, rec.Reports("debug", ""))
}

func TestScopedAPIRequiresNamespace(t *testing.T) {
	require.Panics(t, func() { NewScopedAPI("", &Recorder{}) })
	require.Panics(t, func() { NewScopedAPI("catalog", nil) })
}

func TestSlogAPI(t *testing.T) {
	require.NotPanics(t, func() {
		api := NewScopedAPI("test", SlogAPI{})
		api.ReportBroken("broken", "positional", KV{Key: "key", Value: "value"})
		api.ReportWarning("warning")
		api.ReportDebug("debug", 1, 2)
		api.ReportCount("count", 1)
	})
}
