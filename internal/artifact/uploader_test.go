package artifact

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run_1.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04archive-bytes"), 0o644))
	return path
}

func TestUploader_Upload_PutsFileToPresignedURL(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uploader := NewUploader(time.Second)
	defer uploader.Close()

	err := uploader.Upload(context.Background(), writeArchive(t), server.URL+"/presigned")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	// The concrete type depends on the host's mime table; a zip maps to
	// application/zip where the table knows it and to the octet-stream
	// fallback elsewhere.
	assert.Contains(t, gotContentType, "application/")
	assert.Contains(t, gotBody, "archive-bytes")
}

func TestUploader_Upload_RejectedByStorage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "signature expired", http.StatusForbidden)
	}))
	defer server.Close()

	uploader := NewUploader(time.Second)
	defer uploader.Close()

	err := uploader.Upload(context.Background(), writeArchive(t), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUploader_Upload_MissingSourceFile(t *testing.T) {
	uploader := NewUploader(time.Second)
	defer uploader.Close()

	err := uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.zip"), "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}
