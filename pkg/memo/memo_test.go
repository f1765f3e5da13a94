package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentSameKeyCallsInvokeOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	f := Wrap(func(ctx context.Context, word string) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "def:" + word, nil
	}, Config[string, string]{})

	const n = 2
	var wg sync.WaitGroup
	got := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := f.Call(context.Background(), "dedo")
			assert.NoError(t, err)
			got[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"def:dedo", "def:dedo"}, got)

	// Later calls hit the store.
	v, err := f.Call(context.Background(), "dedo")
	require.NoError(t, err)
	assert.Equal(t, "def:dedo", v)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRejectedCallIsRetried(t *testing.T) {
	var calls int32
	boom := errors.New("boom")
	store := NewMapStore[int](nil)
	f := Wrap(func(ctx context.Context, key string) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, boom
		}
		return 42, nil
	}, Config[string, int]{Store: store})

	_, err := f.Call(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())

	v, err := f.Call(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, 1, store.Len())
}

func TestSeededStoreSkipsCall(t *testing.T) {
	type wordLang struct {
		Word string
		Lang string
	}
	seedKey := DefaultKey(wordLang{"dedo", "spa"})
	store := NewMapStore(map[string]string{seedKey: "<ol><li>finger</li></ol>"})

	f := Wrap(func(ctx context.Context, a wordLang) (string, error) {
		t.Fatalf("unexpected call for %v", a)
		return "", nil
	}, Config[wordLang, string]{Store: store})

	v, err := f.Call(context.Background(), wordLang{"dedo", "spa"})
	require.NoError(t, err)
	assert.Equal(t, "<ol><li>finger</li></ol>", v)
}

func TestDistinctKeysDoNotShare(t *testing.T) {
	var calls int32
	f := Wrap(func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return n * 2, nil
	}, Config[int, int]{})

	for _, n := range []int{1, 2, 3, 1, 2} {
		v, err := f.Call(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, n*2, v)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestCallerCancellationDoesNotCancelSharedCall(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := Wrap(func(ctx context.Context, key string) (string, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "done", nil
	}, Config[string, string]{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.Call(ctx, "k")
		errc <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		v, _ := f.Call(context.Background(), "k")
		waiter <- v
	}()

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	assert.Equal(t, "done", <-waiter)
}

func TestForgetEvicts(t *testing.T) {
	var calls int32
	f := Wrap(func(ctx context.Context, key string) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}, Config[string, int32]{})

	a, _ := f.Call(context.Background(), "k")
	require.NoError(t, f.Forget("k"))
	b, _ := f.Call(context.Background(), "k")
	assert.NotEqual(t, a, b)
}

func TestDefaultKey(t *testing.T) {
	assert.Equal(t, "dedo", DefaultKey("dedo"))
	assert.Equal(t, `["dedo","spa"]`, DefaultKey([2]string{"dedo", "spa"}))
	assert.Equal(t, "7", DefaultKey(7))
}

type failingStore struct{ MapStore[string] }

func (*failingStore) Load(string) (string, bool, error) { return "", false, errors.New("disk gone") }

func TestStoreReadErrorIsMiss(t *testing.T) {
	var calls int32
	f := Wrap(func(ctx context.Context, key string) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "fresh", nil
	}, Config[string, string]{Store: &failingStore{MapStore[string]{m: map[string]string{}}}})

	v, err := f.Call(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
