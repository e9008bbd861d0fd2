package data

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/lk2023060901/media-edge-backend/internal/asset/biz"
	"github.com/lk2023060901/media-edge-backend/internal/pkg/kvstore"
	pkgminio "github.com/lk2023060901/media-edge-backend/internal/pkg/minio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func TestMemoryBlobStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()

	_, err := s.Stat(ctx, "assets/ab/missing")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)
	_, _, err = s.Get(ctx, "assets/ab/missing")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)

	require.NoError(t, s.Put(ctx, "assets/ab/k", []byte("hello"), "text/plain"))

	info, err := s.Stat(ctx, "assets/ab/k")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "text/plain", info.ContentType)
	// md5("hello")
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", info.ETag)

	body, _, err := s.Get(ctx, "assets/ab/k")
	require.NoError(t, err)
	got, _ := io.ReadAll(body)
	assert.Equal(t, "hello", string(got))

	var _ biz.BlobStore = s
	_, native := interface{}(s).(biz.RangeBlobStore)
	assert.False(t, native)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Puts())
}

func TestAssetRepo(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	repo := NewAssetRepo(kv)

	_, err := repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, biz.ErrMetadataAbsent)

	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, &biz.Asset{
		ID:               "0123456789abcdef0123456789abcdef",
		ContentType:      "image/png",
		OriginalFilename: "cat.png",
		SizeBytes:        42,
		UploadedAt:       uploaded,
	}))

	raw, err := kv.Get(ctx, "asset:0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"asset_id": "0123456789abcdef0123456789abcdef",
		"content_type": "image/png",
		"original_filename": "cat.png",
		"size_bytes": 42,
		"uploaded_at": "2026-03-01T12:00:00Z"
	}`, string(raw))

	got, err := repo.Get(ctx, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.OriginalFilename)
	assert.True(t, uploaded.Equal(got.UploadedAt))
}

func TestMinIOBlobStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping minio integration test in short mode")
	}
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("minio container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := pkgminio.NewClient(&pkgminio.Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketLookup:    pkgminio.BucketLookupPath,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx, "media-assets"))
	require.NoError(t, client.EnsureBucket(ctx, "media-assets"))

	store := NewMinIOBlobStore(client, "media-assets")

	_, err = store.Stat(ctx, "assets/00/missing")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)
	_, _, err = store.Get(ctx, "assets/00/missing")
	assert.ErrorIs(t, err, biz.ErrBlobNotFound)

	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, store.Put(ctx, "assets/ab/blob", data, "video/mp4"))

	info, err := store.Stat(ctx, "assets/ab/blob")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), info.Size)
	assert.Equal(t, "video/mp4", info.ContentType)
	assert.NotEmpty(t, info.ETag)

	body, err := store.GetRange(ctx, "assets/ab/blob", 0, 99)
	require.NoError(t, err)
	part, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, data[:100], part)

	full, _, err := store.Get(ctx, "assets/ab/blob")
	require.NoError(t, err)
	all, err := io.ReadAll(full)
	full.Close()
	require.NoError(t, err)
	assert.Equal(t, data, all)
}
