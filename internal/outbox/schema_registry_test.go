package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu       sync.Mutex
	subjects map[string]int
	nextID   int
	paths    []string
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)

	var body struct {
		Schema string `json:"schema"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch {
	case r.URL.Path == "/subjects/progress_events-seeded-value":
		id, ok := f.subjects[body.Schema]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":40403}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"id": id})
	case r.URL.Path == "/subjects/progress_events-seeded-value/versions":
		f.nextID++
		f.subjects[body.Schema] = f.nextID
		_ = json.NewEncoder(w).Encode(map[string]int{"id": f.nextID})
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func TestSchemaRegistryRegistersOnce(t *testing.T) {
	fake := &fakeRegistry{subjects: map[string]int{}, nextID: 10}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	id, err := client.EnsureSchema(context.Background(), "progress_events-seeded-value", seededSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)

	id, err = client.EnsureSchema(context.Background(), "progress_events-seeded-value", seededSchema)
	require.NoError(t, err)
	require.Equal(t, 11, id)
	require.Len(t, fake.paths, 3)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeRegistry{subjects: map[string]int{}})
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "other", "{}")
	require.ErrorContains(t, err, "status 500")
}
