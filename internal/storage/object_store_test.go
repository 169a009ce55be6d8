package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("http://localhost:8080/files/")

	require.NoError(t, store.Put(ctx, "a.png", strings.NewReader("png-bytes"), 9, "image/png"))

	obj, err := store.Get(ctx, "a.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "http://localhost:8080/files/a.png", store.URL("a.png"))

	require.NoError(t, store.Remove(ctx, "a.png"))
	_, err = store.Get(ctx, "a.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMinioStoreURL(t *testing.T) {
	store, err := NewMinioStore(config.StorageConfig{
		Endpoint:    "http://minio.local:9000",
		AccessKey:   "key",
		SecretKey:   "secret",
		BucketProof: "proofs",
		Region:      "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://minio.local:9000/proofs/x.jpg", store.URL("x.jpg"))

	store.cfg.PublicURL = "https://cdn.example.com/p/"
	assert.Equal(t, "https://cdn.example.com/p/x.jpg", store.URL("x.jpg"))
}
