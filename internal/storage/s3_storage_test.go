package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the handful of path-style object calls S3Storage makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func setupS3Storage(t *testing.T) (*S3Storage, *fakeS3, string) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Storage(context.Background(), S3Options{
		Region:          "us-east-1",
		Bucket:          "inventory",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return s, fake, srv.URL
}

func TestS3Storage_SaveExistsDelete(t *testing.T) {
	ctx := context.Background()
	s, fake, endpoint := setupS3Storage(t)

	ref, err := s.Save(ctx, KeyFor(7), []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, endpoint+"/inventory/7.jpg", ref)
	assert.Contains(t, fake.objects, "inventory/7.jpg")
	assert.Equal(t, ContentType, fake.types["inventory/7.jpg"])

	exists, err := s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, ref))
	assert.Empty(t, fake.objects)

	exists, err = s.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestS3Storage_DeleteEmptyRefMakesNoCall(t *testing.T) {
	s, _, _ := setupS3Storage(t)
	assert.NoError(t, s.Delete(context.Background(), ""))
}

func TestS3Storage_KeyFromRef(t *testing.T) {
	s, _, endpoint := setupS3Storage(t)

	tests := []struct {
		ref    string
		key    string
		wantOK bool
	}{
		{endpoint + "/inventory/5.jpg", "5.jpg", true},
		{"https://inventory.s3.amazonaws.com/widget.jpg", "widget.jpg", true},
		{"9.jpg", "9.jpg", true},
		{"", "", false},
	}
	for _, tt := range tests {
		key, ok := s.KeyFromRef(tt.ref)
		assert.Equal(t, tt.wantOK, ok, tt.ref)
		assert.Equal(t, tt.key, key, tt.ref)
	}
}
