package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", contentType("out/bulletin.txt"))
	assert.Equal(t, "application/pdf", contentType("uploads/abc/bulletin.pdf"))
	assert.Equal(t, "application/octet-stream", contentType("uploads/abc/noext"))
}
