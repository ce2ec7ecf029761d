package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinIO_Send(t *testing.T) {
	var mu sync.Mutex
	var method, path, ct, clipID string
	var body []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, b
		ct = r.Header.Get("Content-Type")
		clipID = r.Header.Get("X-Amz-Meta-Clip-Id")
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr, err := NewMinIO(MinIOConfig{
		Endpoint:  strings.TrimPrefix(ts.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "clipvault",
	}, "dev-1")
	require.NoError(t, err)

	err = tr.Send(context.Background(), Payload{
		ClipID:      9,
		Data:        []byte("webm-bytes"),
		ContentType: "video/webm",
		Digest:      []byte{0xab, 0xcd},
		CapturedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/clipvault/clips/dev-1/2024/05/01/9.webm", path)
	assert.Equal(t, "video/webm", ct)
	assert.Equal(t, "9", clipID)
	assert.Equal(t, "webm-bytes", string(body))
}

func TestMinIO_Send_Denied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied.</Message></Error>`)
	}))
	defer ts.Close()

	tr, err := NewMinIO(MinIOConfig{
		Endpoint: strings.TrimPrefix(ts.URL, "http://"),
		Bucket:   "clipvault",
	}, "dev-1")
	require.NoError(t, err)

	err = tr.Send(context.Background(), Payload{ClipID: 1, Data: []byte("x"), ContentType: "video/mp4"})
	require.ErrorIs(t, err, ErrTransfer)
}
