package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/pkg/logger"
)

func TestLocalStorage_StoreGetDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, logger.NewTestLogger())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := s.Store(ctx, strings.NewReader("Service bulletin SB-45"), "reports/bulletin.txt")
	require.NoError(t, err)
	assert.Equal(t, "reports/bulletin.txt", key)

	onDisk, err := os.ReadFile(filepath.Join(dir, "reports", "bulletin.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Service bulletin SB-45", string(onDisk))

	// overwrite
	_, err = s.Store(ctx, strings.NewReader("v2"), "reports/bulletin.txt")
	require.NoError(t, err)

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "v2", string(data))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), logger.NewTestLogger())
	require.NoError(t, err)

	for _, key := range []string{"../x.txt", "/etc/passwd", "", "a/../../b"} {
		_, err := s.Store(context.Background(), strings.NewReader("x"), key)
		assert.Error(t, err, key)
	}
}

func TestLocalStorage_CleanupBefore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, logger.NewTestLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Store(ctx, strings.NewReader("old"), "old.txt")
	require.NoError(t, err)
	_, err = s.Store(ctx, strings.NewReader("new"), "new.txt")
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.txt"), past, past))

	require.NoError(t, s.CleanupBefore(ctx, time.Now().Add(-24*time.Hour)))

	_, err = os.Stat(filepath.Join(dir, "old.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "new.txt"))
	assert.NoError(t, err)
}
