package sftp

import (
	"sync"

	"golang.org/x/crypto/ssh"
)

// ChannelRegistry holds the accepted channels of one connection that no
// subsystem owns yet. Take removes a channel, so ownership moves to exactly
// one caller; a second Take of the same id finds nothing.
//
// The lock is never held across channel I/O.
type ChannelRegistry struct {
	mu       sync.Mutex
	next     uint32
	channels map[uint32]ssh.Channel
}

// NewChannelRegistry returns an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[uint32]ssh.Channel)}
}

// Add records ch and returns its connection-scoped id.
func (r *ChannelRegistry) Add(ch ssh.Channel) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.channels[id] = ch
	return id
}

// Take removes and returns the channel registered under id.
func (r *ChannelRegistry) Take(id uint32) (ssh.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if ok {
		delete(r.channels, id)
	}
	return ch, ok
}

// Len returns the number of unowned channels.
func (r *ChannelRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// CloseAll closes and forgets every unowned channel and returns how many
// there were.
func (r *ChannelRegistry) CloseAll() int {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[uint32]ssh.Channel)
	r.mu.Unlock()

	for _, ch := range channels {
		_ = ch.Close()
	}
	return len(channels)
}
