package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contract runs the behaviour every backend must share.
func contract(t *testing.T, s Store) {
	ctx := context.Background()

	v, err := s.Get(ctx, "movies:last_upload", "0001-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "0001-01-01T00:00:00Z", v, "missing key returns default")

	require.NoError(t, s.Set(ctx, "movies:last_upload", "2024-01-01T00:00:00Z"))
	require.NoError(t, s.Set(ctx, "other", "x"))
	require.NoError(t, s.Set(ctx, "movies:last_upload", "2024-02-01T00:00:00Z"))

	v, err = s.Get(ctx, "movies:last_upload", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01T00:00:00Z", v)

	v, err = s.Get(ctx, "other", "")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestFileStoreContract(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	contract(t, s)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v1"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(context.Background(), "k", time.Now().String()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStoreCorruptIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k": "v"`), 0o644))

	_, err := NewFileStore(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreEmptyFileIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewFileStore(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreFailedWriteKeepsPreviousState(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "committed"))

	// a read-only directory makes the temp file creation fail
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	assert.Error(t, s.Set(context.Background(), "k", "lost"))
	v, err := s.Get(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, "committed", v)
}

func TestBadgerStoreContract(t *testing.T) {
	s, err := NewBadgerStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	defer s.Close()
	contract(t, s)
}

func TestBadgerStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	s, err := NewBadgerStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", "v"))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get(context.Background(), "k", "")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestBadgerStoreLockedIsNotCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	s, err := NewBadgerStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewBadgerStore(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestBadgerStoreDamagedManifestIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "MANIFEST"), []byte("not a badger manifest"), 0o644))

	_, err := NewBadgerStore(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

var errNoMultipart = errors.New("multipart upload not expected")

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errNoMultipart
}

func TestS3StoreContract(t *testing.T) {
	fake := newFakeS3()
	contract(t, newS3Store(fake, "bucket", "sync/"))
	assert.Contains(t, fake.objects, "sync/movies:last_upload.json")
}

func TestS3StoreCorruptObject(t *testing.T) {
	fake := newFakeS3()
	fake.objects["k.json"] = []byte("not json")
	_, err := newS3Store(fake, "bucket", "").Get(context.Background(), "k", "")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestS3StoreTransportErrorIsNotCorruption(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("dial tcp: connection refused")
	_, err := newS3Store(fake, "bucket", "").Get(context.Background(), "k", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestWatermarkHelpers(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := GetWatermark(ctx, s, "wm")
	require.NoError(t, err)
	assert.False(t, found)

	ts := time.Date(2024, 5, 6, 7, 8, 9, 10, time.UTC)
	require.NoError(t, SetWatermark(ctx, s, "wm", ts))
	got, found, err := GetWatermark(ctx, s, "wm")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Equal(ts))

	require.NoError(t, s.Set(ctx, "wm", "garbage"))
	_, _, err = GetWatermark(ctx, s, "wm")
	assert.ErrorIs(t, err, ErrCorrupt)
}
