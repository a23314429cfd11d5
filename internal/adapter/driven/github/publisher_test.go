package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentsServer fakes the two Contents API endpoints the publisher touches.
type contentsServer struct {
	remote  map[string][]byte // path -> current content; absent means 404
	updates []updateRequest
}

type updateRequest struct {
	Path      string
	Message   string `json:"message"`
	Content   string `json:"content"`
	SHA       string `json:"sha"`
	Branch    string `json:"branch"`
	Committer struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"committer"`
}

func (s *contentsServer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /repos/owner/repo/contents/{path}", func(w http.ResponseWriter, r *http.Request) {
		path := r.PathValue("path")
		content, ok := s.remote[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		resp := map[string]any{
			"type":     "file",
			"encoding": "base64",
			"name":     path,
			"path":     path,
			"sha":      "abc123",
			"content":  base64.StdEncoding.EncodeToString(content),
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("PUT /repos/owner/repo/contents/{path}", func(w http.ResponseWriter, r *http.Request) {
		var req updateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		req.Path = r.PathValue("path")
		s.updates = append(s.updates, req)
		fmt.Fprint(w, `{"content":{"sha":"def456"}}`)
	})

	return mux
}

func newTestPublisher(t *testing.T, s *contentsServer) (*ContentsPublisher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s.handler(t))
	t.Cleanup(srv.Close)

	pub, err := NewContentsPublisherWithHTTPClient(srv.Client(), srv.URL+"/", "owner/repo", "main")
	require.NoError(t, err)
	return pub, srv
}

func TestPublishFile_CreatesNewFile(t *testing.T) {
	s := &contentsServer{remote: map[string][]byte{}}
	pub, _ := newTestPublisher(t, s)

	committed, err := pub.PublishFile(context.Background(), "review_history.json", []byte(`[]`), "update history")
	require.NoError(t, err)
	assert.True(t, committed)

	require.Len(t, s.updates, 1)
	up := s.updates[0]
	assert.Equal(t, "review_history.json", up.Path)
	assert.Equal(t, "update history", up.Message)
	assert.Equal(t, "main", up.Branch)
	assert.Empty(t, up.SHA)
	assert.Equal(t, "review-monitor-bot", up.Committer.Name)

	decoded, err := base64.StdEncoding.DecodeString(up.Content)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(decoded))
}

func TestPublishFile_UpdatesChangedFile(t *testing.T) {
	s := &contentsServer{remote: map[string][]byte{"monitor.log": []byte("old line\n")}}
	pub, _ := newTestPublisher(t, s)

	committed, err := pub.PublishFile(context.Background(), "monitor.log", []byte("old line\nnew line\n"), "append log")
	require.NoError(t, err)
	assert.True(t, committed)

	require.Len(t, s.updates, 1)
	assert.Equal(t, "abc123", s.updates[0].SHA)
}

func TestPublishFile_SkipsIdenticalContent(t *testing.T) {
	s := &contentsServer{remote: map[string][]byte{"review_history.json": []byte(`[{"review_count":663}]`)}}
	pub, _ := newTestPublisher(t, s)

	committed, err := pub.PublishFile(context.Background(), "review_history.json", []byte(`[{"review_count":663}]`), "update history")
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Empty(t, s.updates)
}

func TestNewContentsPublisher_RejectsBadRepoName(t *testing.T) {
	_, err := NewContentsPublisher("token", "not-a-repo", "main")
	assert.Error(t, err)

	_, err = NewContentsPublisher("token", "owner/repo/extra", "main")
	assert.Error(t, err)
}
