package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sc "github.com/supabase-community/storage-go"
	"github.com/xbanchon/image-variant-service/internal/store"
)

// objectServer keeps uploaded bodies keyed by object name.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (s *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := path.Base(r.URL.Path)

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.objects[key] = body
		s.headers[key] = r.Header.Clone()
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"Key":%q}`, r.URL.Path)
	case http.MethodGet:
		s.mu.Lock()
		body, ok := s.objects[key]
		s.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"statusCode":"404","error":"not_found","message":"Object not found"}`)
			return
		}
		w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestBucket(t *testing.T) (*ImageBucket, *objectServer) {
	t.Helper()

	srv := &objectServer{
		objects: make(map[string][]byte),
		headers: make(map[string]http.Header),
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return NewSupabaseStorage(sc.NewClient(ts.URL, "test-key", nil), ""), srv
}

func TestPutGetRoundTrip(t *testing.T) {
	b, srv := newTestBucket(t)
	ctx := context.Background()
	id := store.ImageID{Image: 5, Variant: 21}

	require.NoError(t, b.Put(ctx, id, []byte("\xff\xd8variant")))

	got, err := b.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xd8variant"), got)

	srv.mu.Lock()
	h := srv.headers[store.ObjectKey(id)]
	srv.mu.Unlock()
	require.NotNil(t, h)
	assert.Equal(t, cacheControl, h.Get("Cache-Control"))
	assert.Equal(t, contentType, h.Get("Content-Type"))
}

func TestConcurrentPutGet(t *testing.T) {
	b, srv := newTestBucket(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := store.ImageID{Image: int64(w + 1), Variant: int64(i + 1)}
				data := []byte(id.String())

				if !assert.NoError(t, b.Put(ctx, id, data)) {
					return
				}
				got, err := b.Get(ctx, id)
				if assert.NoError(t, err) {
					assert.Equal(t, data, got)
				}
			}
		}(w)
	}
	wg.Wait()

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Len(t, srv.objects, 8*50)
}
