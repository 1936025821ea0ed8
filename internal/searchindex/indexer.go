// Package searchindex pushes best-effort document updates to an external
// search service. Indexing never blocks or fails the upload response: every
// failure is logged and swallowed.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/bihari123/reelpick/internal/logger"
)

var (
	sharedClient *http.Client
	clientOnce   sync.Once
)

// httpClient returns the process-wide singleton *http.Client used by every
// Indexer. A single client reuses connections (and their TLS handshakes)
// across every indexing call in the process, regardless of how many
// Indexer values get constructed.
func httpClient(timeout time.Duration) *http.Client {
	clientOnce.Do(func() {
		sharedClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	})
	return sharedClient
}

// Document is the body posted to the search index for one lifecycle event.
// The three actions have distinct shapes: initialize_upload and
// complete_upload carry directory/file_size (complete_upload adds
// total_chunks), while chunk_upload carries chunk_path/chunk_index instead.
// ID is the document id: file_id for initialize/complete, "<file_id>_<chunk_index>"
// for chunk_upload.
type Document struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	FileName    string `json:"file_name"`
	Directory   string `json:"directory,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty"`
	ChunkPath   string `json:"chunk_path,omitempty"`
	ChunkIndex  int    `json:"chunk_index,omitempty"`
	IndexedAt   int64  `json:"indexed_at"`
}

// MarshalJSON always emits chunk_index for chunk_upload documents, so
// chunk 0 is not dropped by omitempty.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	if d.Action != "chunk_upload" {
		return json.Marshal(plain(d))
	}
	return json.Marshal(struct {
		plain
		ChunkIndex int `json:"chunk_index"`
	}{plain(d), d.ChunkIndex})
}

// Indexer posts document updates to a single search endpoint.
type Indexer struct {
	endpoint string
	client   *http.Client
	log      *logger.Logger
}

// NewIndexer builds an Indexer against endpoint. If endpoint is empty,
// Index becomes a no-op, which lets the service run without a search
// backend configured.
func NewIndexer(endpoint string, timeout time.Duration, log *logger.Logger) *Indexer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Indexer{
		endpoint: endpoint,
		client:   httpClient(timeout),
		log:      log,
	}
}

// Index posts doc to the search endpoint. Any transport error or non-2xx
// response is logged and swallowed — indexing failures never propagate to
// the upload caller.
func (idx *Indexer) Index(ctx context.Context, doc Document) {
	if idx.endpoint == "" {
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		idx.log.Error("searchindex: marshal document for %s: %v", doc.ID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, idx.endpoint, bytes.NewReader(body))
	if err != nil {
		idx.log.Error("searchindex: build request for %s: %v", doc.ID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := idx.client.Do(req)
	if err != nil {
		idx.log.Error("searchindex: post document for %s: %v", doc.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		idx.log.Error("searchindex: %s returned %s for file %s", idx.endpoint, resp.Status, doc.ID)
	}
}
