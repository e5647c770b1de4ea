package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeliksML/web-cellar-sub000/internal/storage"
)

func TestStorage_UploadOpenDelete(t *testing.T) {
	s := New("http://localhost:8080/media")
	ctx := context.Background()

	res, err := s.Upload(ctx, &storage.UploadInput{
		Key:         "products/prod-001/a.jpg",
		ContentType: "image/jpeg",
		Data:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/products/prod-001/a.jpg", res.URL)
	assert.Equal(t, 1, s.Len())

	r, contentType, ok := s.Open("products/prod-001/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", contentType)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, s.Delete(ctx, "products/prod-001/a.jpg"))
	require.NoError(t, s.Delete(ctx, "products/prod-001/a.jpg"))
	_, _, ok = s.Open("products/prod-001/a.jpg")
	assert.False(t, ok)
}
