package store

import "sync"

// ConversationLocks serializes webhook handling per conversation so
// concurrent deliveries for the same conversation never interleave
// history reads and writes. Locks are created lazily and never removed;
// conversation cardinality is bounded by active sessions.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationLocks returns an empty lock registry.
func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for a conversation id.
func (c *ConversationLocks) Lock(conversationID string) {
	c.lockFor(conversationID).Lock()
}

// Unlock releases the lock for a conversation id.
func (c *ConversationLocks) Unlock(conversationID string) {
	c.lockFor(conversationID).Unlock()
}

func (c *ConversationLocks) lockFor(conversationID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[conversationID] = lock
	}
	return lock
}
