package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestWatchCmd_UploadsExistingFiles(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.documents.docs = map[string]*domain.Document{}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grass.txt"), []byte("Grass is green."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("secret"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	out, err := executeContext(t, ctx, "watch", "--existing", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, out, "uploaded "+filepath.Join(dir, "grass.txt")+" as doc-1")
	assert.Equal(t, []string{"grass.txt"}, ts.documents.uploaded)
	assert.Equal(t, 1, ts.ingestion.calls)
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "root path error")
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(Services{})

	_, err := execute(t, "watch", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}
