package vectorstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore counts calls and lets tests script EnsureCollection
// failures.
type fakeStore struct {
	ensureCalls  atomic.Int64
	ensureErrs   []error
	ensureErrMu  sync.Mutex
	addCalls     atomic.Int64
	searchCalls  atomic.Int64
	searchResult []SearchResult
}

func (f *fakeStore) EnsureCollection(_ context.Context) error {
	f.ensureCalls.Add(1)
	f.ensureErrMu.Lock()
	defer f.ensureErrMu.Unlock()
	if len(f.ensureErrs) > 0 {
		err := f.ensureErrs[0]
		f.ensureErrs = f.ensureErrs[1:]
		return err
	}
	return nil
}

func (f *fakeStore) AddDocuments(_ context.Context, docs []Document) ([]string, error) {
	f.addCalls.Add(1)
	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	return ids, nil
}

func (f *fakeStore) Search(_ context.Context, _ string, _ int) ([]SearchResult, error) {
	f.searchCalls.Add(1)
	return f.searchResult, nil
}

func (f *fakeStore) Info(_ context.Context) (*CollectionInfo, error) {
	return &CollectionInfo{Name: "documents"}, nil
}

func (f *fakeStore) Close() error { return nil }

var _ Store = (*fakeStore)(nil)

func TestService_InitializesOnce(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := NewService(store)

	_, err := svc.AddDocuments(ctx, []Document{{Content: "a"}})
	require.NoError(t, err)
	_, err = svc.Search(ctx, "q", 1)
	require.NoError(t, err)
	_, err = svc.Info(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), store.ensureCalls.Load())
	assert.Equal(t, int64(1), store.addCalls.Load())
	assert.Equal(t, int64(1), store.searchCalls.Load())
}

func TestService_ConcurrentInitSingleFlight(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := NewService(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Search(ctx, "q", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), store.ensureCalls.Load())
	assert.Equal(t, int64(20), store.searchCalls.Load())
}

func TestService_FailedInitRetries(t *testing.T) {
	ctx := context.Background()
	initErr := errors.New("backend down")
	store := &fakeStore{ensureErrs: []error{initErr}}
	svc := NewService(store)

	_, err := svc.Search(ctx, "q", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, initErr)
	assert.Equal(t, int64(0), store.searchCalls.Load())

	// The failure is not cached; the next call retries and succeeds.
	_, err = svc.Search(ctx, "q", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), store.ensureCalls.Load())
	assert.Equal(t, int64(1), store.searchCalls.Load())
}
