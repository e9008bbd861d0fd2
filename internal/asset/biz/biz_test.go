package biz

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlob struct {
	data        []byte
	contentType string
}

type fakeBlobStore struct {
	mu      sync.Mutex
	blobs   map[string]fakeBlob
	puts    int
	failPut error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string]fakeBlob{}}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.puts++
	s.blobs[key] = fakeBlob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (s *fakeBlobStore) info(b fakeBlob) *BlobInfo {
	sum := md5.Sum(b.data)
	return &BlobInfo{Size: int64(len(b.data)), ContentType: b.contentType, ETag: hex.EncodeToString(sum[:])}
}

func (s *fakeBlobStore) Stat(_ context.Context, key string) (*BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return s.info(b), nil
}

func (s *fakeBlobStore) Get(_ context.Context, key string) (io.ReadCloser, *BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), s.info(b), nil
}

// rangingStore 额外实现 RangeBlobStore
type rangingStore struct {
	*fakeBlobStore
	rangeCalls int
}

func (s *rangingStore) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	s.rangeCalls++
	body, _, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	data, _ := io.ReadAll(body)
	return io.NopCloser(bytes.NewReader(data[start : end+1])), nil
}

type fakeRepo struct {
	mu      sync.Mutex
	assets  map[string]Asset
	failErr error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{assets: map[string]Asset{}} }

func (r *fakeRepo) Save(_ context.Context, a *Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.assets[a.ID] = *a
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, ErrMetadataAbsent
	}
	return &a, nil
}

func newUseCase(t *testing.T, blobs BlobStore, repo AssetRepo) *AssetUseCase {
	t.Helper()
	addr, err := NewAddresser(AlgorithmSHA256, DefaultIDLength)
	require.NoError(t, err)
	return NewAssetUseCase(blobs, repo, addr, "https://cdn.example.com/", nil)
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func TestNewAddresser(t *testing.T) {
	tests := []struct {
		name    string
		algo    string
		length  int
		wantErr error
	}{
		{name: "sha256 default", algo: AlgorithmSHA256, length: DefaultIDLength},
		{name: "blake3 full", algo: AlgorithmBLAKE3, length: MaxIDLength},
		{name: "blake2b min", algo: AlgorithmBLAKE2b, length: MinIDLength},
		{name: "unknown algorithm", algo: "md5", length: 32, wantErr: ErrUnknownAlgo},
		{name: "too short", algo: AlgorithmSHA256, length: 8, wantErr: ErrInvalidIDLen},
		{name: "too long", algo: AlgorithmSHA256, length: 65, wantErr: ErrInvalidIDLen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAddresser(tt.algo, tt.length)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			id := a.ID([]byte("hello"))
			assert.Len(t, id, tt.length)
			assert.True(t, a.Valid(id))
		})
	}
}

func TestAddresser_KnownDigest(t *testing.T) {
	a, err := NewAddresser(AlgorithmSHA256, MaxIDLength)
	require.NoError(t, err)
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", a.ID([]byte("abc")))
}

func TestAddresser_DeterministicAndDistinct(t *testing.T) {
	for _, algo := range []string{AlgorithmSHA256, AlgorithmBLAKE3, AlgorithmBLAKE2b} {
		t.Run(algo, func(t *testing.T) {
			a, err := NewAddresser(algo, DefaultIDLength)
			require.NoError(t, err)

			seen := make(map[string]string)
			for size := 0; size < 300; size += 7 {
				for variant := 0; variant < 3; variant++ {
					data := payload(size)
					if size > 0 {
						data[size/2] ^= byte(variant + 1)
					} else if variant > 0 {
						continue
					}
					id := a.ID(data)
					assert.Equal(t, id, a.ID(append([]byte(nil), data...)))

					label := fmt.Sprintf("%d/%d", size, variant)
					if prev, dup := seen[id]; dup {
						t.Fatalf("collision between %s and %s", prev, label)
					}
					seen[id] = label
				}
			}
		})
	}
}

func TestAddresser_Valid(t *testing.T) {
	a, err := NewAddresser(AlgorithmSHA256, 16)
	require.NoError(t, err)

	assert.True(t, a.Valid("0123456789abcdef"))
	assert.False(t, a.Valid("0123456789ABCDEF"))
	assert.False(t, a.Valid("0123456789abcde"))
	assert.False(t, a.Valid("../../etc/passwd"))
}

func TestBlobKey(t *testing.T) {
	assert.Equal(t, "assets/ab/abcdef0123456789", BlobKey("abcdef0123456789"))
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		size    int64
		want    ByteRange
		wantErr error
	}{
		{name: "first hundred", header: "bytes=0-99", size: 1000, want: ByteRange{0, 99}},
		{name: "open ended", header: "bytes=900-", size: 1000, want: ByteRange{900, 999}},
		{name: "single byte", header: "bytes=5-5", size: 10, want: ByteRange{5, 5}},
		{name: "end clamped", header: "bytes=10-5000", size: 1000, want: ByteRange{10, 999}},
		{name: "garbage", header: "bytes=abc", size: 1000, wantErr: ErrRangeMalformed},
		{name: "wrong unit", header: "items=0-1", size: 1000, wantErr: ErrRangeMalformed},
		{name: "suffix range", header: "bytes=-100", size: 1000, wantErr: ErrRangeMalformed},
		{name: "multi range", header: "bytes=0-1,5-9", size: 1000, wantErr: ErrRangeMalformed},
		{name: "start after end", header: "bytes=50-10", size: 1000, wantErr: ErrRangeMalformed},
		{name: "whitespace", header: "bytes= 0-10", size: 1000, wantErr: ErrRangeMalformed},
		{name: "overflow", header: "bytes=99999999999999999999-", size: 1000, wantErr: ErrRangeMalformed},
		{name: "start at size", header: "bytes=1000-", size: 1000, wantErr: ErrRangeUnsatisfiable},
		{name: "empty object", header: "bytes=0-", size: 0, wantErr: ErrRangeUnsatisfiable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestByteRange_Headers(t *testing.T) {
	r := ByteRange{Start: 0, End: 99}
	assert.Equal(t, int64(100), r.Length())
	assert.Equal(t, "bytes 0-99/1000", r.ContentRange(1000))
}

func TestIngest_Deduplicates(t *testing.T) {
	blobs := newFakeBlobStore()
	repo := newFakeRepo()
	uc := newUseCase(t, blobs, repo)
	ctx := context.Background()

	data := payload(1000)
	first, err := uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "video/mp4", Filename: "a.mp4"})
	require.NoError(t, err)
	second, err := uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "video/mp4", Filename: "b.mp4"})
	require.NoError(t, err)

	assert.Equal(t, first.AssetID, second.AssetID)
	assert.Equal(t, "https://cdn.example.com/a/"+first.AssetID, first.CanonicalURL)
	assert.Equal(t, int64(1000), first.Size)
	assert.Len(t, blobs.blobs, 1)
	assert.Equal(t, 1, blobs.puts)

	// 元数据后写覆盖
	meta, err := uc.GetMetadata(ctx, first.AssetID)
	require.NoError(t, err)
	assert.Equal(t, "b.mp4", meta.OriginalFilename)
}

func TestIngest_ContentTypeChangeRewritesBlob(t *testing.T) {
	blobs := newFakeBlobStore()
	repo := newFakeRepo()
	uc := newUseCase(t, blobs, repo)
	ctx := context.Background()

	data := payload(64)
	first, err := uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "image/gif", Filename: "clip.gif"})
	require.NoError(t, err)
	second, err := uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "image/png", Filename: "clip.png"})
	require.NoError(t, err)
	require.Equal(t, first.AssetID, second.AssetID)
	assert.Equal(t, 2, blobs.puts)
	assert.Len(t, blobs.blobs, 1)

	info, err := uc.Stat(ctx, first.AssetID)
	require.NoError(t, err)
	meta, err := uc.GetMetadata(ctx, first.AssetID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, meta.ContentType, info.ContentType)
	assert.Equal(t, "clip.png", meta.OriginalFilename)

	// 同类型再次上传不重写
	_, err = uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "image/png", Filename: "again.png"})
	require.NoError(t, err)
	assert.Equal(t, 2, blobs.puts)
}

func TestIngest_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("empty payload", func(t *testing.T) {
		uc := newUseCase(t, newFakeBlobStore(), newFakeRepo())
		_, err := uc.Ingest(ctx, &IngestInput{})
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("blob write fails leaves no metadata", func(t *testing.T) {
		blobs := newFakeBlobStore()
		blobs.failPut = errors.New("bucket offline")
		repo := newFakeRepo()
		uc := newUseCase(t, blobs, repo)

		_, err := uc.Ingest(ctx, &IngestInput{Data: []byte("x")})
		assert.ErrorIs(t, err, ErrBlobWrite)
		assert.Empty(t, repo.assets)
	})

	t.Run("metadata write fails keeps reusable blob", func(t *testing.T) {
		blobs := newFakeBlobStore()
		repo := newFakeRepo()
		repo.failErr = errors.New("kv offline")
		uc := newUseCase(t, blobs, repo)

		_, err := uc.Ingest(ctx, &IngestInput{Data: []byte("orphan")})
		assert.ErrorIs(t, err, ErrMetadataWrite)
		assert.Len(t, blobs.blobs, 1)

		repo.failErr = nil
		_, err = uc.Ingest(ctx, &IngestInput{Data: []byte("orphan")})
		require.NoError(t, err)
		assert.Equal(t, 1, blobs.puts)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	data := payload(1000)

	stores := map[string]func() BlobStore{
		"sliced":  func() BlobStore { return newFakeBlobStore() },
		"ranging": func() BlobStore { return &rangingStore{fakeBlobStore: newFakeBlobStore()} },
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			blobs := mk()
			uc := newUseCase(t, blobs, newFakeRepo())
			res, err := uc.Ingest(ctx, &IngestInput{Data: data, ContentType: "audio/mpeg"})
			require.NoError(t, err)

			full, err := uc.Open(ctx, res.AssetID, "")
			require.NoError(t, err)
			body, _ := io.ReadAll(full.Body)
			full.Body.Close()
			assert.Equal(t, data, body)
			assert.Nil(t, full.Range)
			assert.Equal(t, "audio/mpeg", full.Info.ContentType)

			part, err := uc.Open(ctx, res.AssetID, "bytes=100-199")
			require.NoError(t, err)
			body, _ = io.ReadAll(part.Body)
			part.Body.Close()
			assert.Equal(t, data[100:200], body)
			assert.Equal(t, ByteRange{100, 199}, *part.Range)

			bad, err := uc.Open(ctx, res.AssetID, "bytes=abc")
			assert.ErrorIs(t, err, ErrRangeMalformed)
			assert.Equal(t, int64(1000), bad.Info.Size)

			_, err = uc.Open(ctx, res.AssetID, "bytes=1000-")
			assert.ErrorIs(t, err, ErrRangeUnsatisfiable)

			if rs, ok := blobs.(*rangingStore); ok {
				assert.Equal(t, 1, rs.rangeCalls)
			}
		})
	}
}

func TestOpen_UnknownAsset(t *testing.T) {
	uc := newUseCase(t, newFakeBlobStore(), newFakeRepo())
	ctx := context.Background()
	unknown := "00000000000000000000000000000000"

	_, err := uc.Open(ctx, unknown, "")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	// 未知资产优先于范围错误
	_, err = uc.Open(ctx, unknown, "bytes=abc")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	_, err = uc.Open(ctx, "not-an-id", "")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	ok, err := uc.Exists(ctx, unknown)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = uc.GetMetadata(ctx, unknown)
	assert.ErrorIs(t, err, ErrAssetNotFound)
}
