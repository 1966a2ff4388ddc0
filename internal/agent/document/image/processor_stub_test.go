//go:build !gosseract

package image

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-harvester/internal/agent/document"
)

func TestStubProcessor_ReportsUnavailable(t *testing.T) {
	p, err := NewProcessor("eng")
	require.NoError(t, err)

	_, err = p.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, document.ErrEngineUnavailable)
	assert.NoError(t, p.Close())
}
