package searchindex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bihari123/reelpick/internal/logger"
)

func TestIndex_PostsDocument(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx := NewIndexer(srv.URL, time.Second, logger.New())
	idx.Index(context.Background(), Document{ID: "f1", FileName: "video.mp4", FileSize: 100, Action: "initialize_upload"})

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestIndex_NoEndpointIsNoop(t *testing.T) {
	idx := NewIndexer("", time.Second, logger.New())
	idx.Index(context.Background(), Document{ID: "f1"})
}

func TestIndex_ServerErrorIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	idx := NewIndexer(srv.URL, time.Second, logger.New())
	idx.Index(context.Background(), Document{ID: "f1"})
}

func TestHTTPClient_IsSharedSingleton(t *testing.T) {
	a := NewIndexer("http://a.invalid", time.Second, logger.New())
	b := NewIndexer("http://b.invalid", 2*time.Second, logger.New())
	assert.Same(t, a.client, b.client)
}
