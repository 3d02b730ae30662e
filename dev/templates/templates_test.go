package templates

import (
	"os"
	"path/filepath"
	"siiau-backend/internal/config"
	"siiau-backend/lib/configutil"
	"siiau-backend/lib/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), Config, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "curriculum.yaml"), Curriculum, 0600))

	cfg, err := config.Read(filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	_, err = cfg.Catalog.Request()
	require.NoError(t, err)

	curriculum, err := cfg.LoadCurriculum()
	require.NoError(t, err)
	require.Len(t, curriculum, 10)
	require.Equal(t, []string{"I5288", "I5247", "IG738", "IL340", "IL342", "IL341"}, curriculum["primero"])

	var tel telemetry.Config
	require.NoError(t, configutil.Unmarshal("json5", Telemetry, &tel))
	require.Equal(t, "localhost:4317", tel.Otlp.Traces.GrpcEndpoint)
}
