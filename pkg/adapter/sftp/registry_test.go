package sftp

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// fakeChannel is an ssh.Channel that only records Close.
type fakeChannel struct {
	closed atomic.Bool
}

func (f *fakeChannel) Read([]byte) (int, error)  { return 0, io.EOF }
func (f *fakeChannel) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeChannel) Close() error                { f.closed.Store(true); return nil }
func (f *fakeChannel) CloseWrite() error           { return nil }
func (f *fakeChannel) Stderr() io.ReadWriter       { return nil }
func (f *fakeChannel) SendRequest(string, bool, []byte) (bool, error) {
	return false, nil
}

var _ ssh.Channel = (*fakeChannel)(nil)

func TestChannelRegistryTakeOnce(t *testing.T) {
	r := NewChannelRegistry()
	ch := &fakeChannel{}
	id := r.Add(ch)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Take(id)
	require.True(t, ok)
	assert.Same(t, ch, got)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Take(id)
	assert.False(t, ok, "a second take finds nothing")
}

func TestChannelRegistryIDsAreDistinct(t *testing.T) {
	r := NewChannelRegistry()
	a, b := &fakeChannel{}, &fakeChannel{}
	idA := r.Add(a)
	idB := r.Add(b)
	require.NotEqual(t, idA, idB)

	got, ok := r.Take(idB)
	require.True(t, ok)
	assert.Same(t, b, got)

	got, ok = r.Take(idA)
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestChannelRegistryConcurrentTake(t *testing.T) {
	r := NewChannelRegistry()
	id := r.Add(&fakeChannel{})

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Take(id); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestChannelRegistryCloseAll(t *testing.T) {
	r := NewChannelRegistry()
	a, b, taken := &fakeChannel{}, &fakeChannel{}, &fakeChannel{}
	r.Add(a)
	r.Add(b)
	_, ok := r.Take(r.Add(taken))
	require.True(t, ok)

	assert.Equal(t, 2, r.CloseAll())
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.False(t, taken.closed.Load(), "owned channels are left alone")
	assert.Equal(t, 0, r.Len())
}
