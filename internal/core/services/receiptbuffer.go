package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type receiptKind int

const (
	kindDelivered receiptKind = iota
	kindRead
)

type pendingReceipt struct {
	kind   receiptKind
	userID string
	at     time.Time
}

type pendingSet struct {
	entries []pendingReceipt
	firstAt time.Time
}

// receiptBuffer holds receipts that raced ahead of message-creation
// propagation, keyed by message id, until the message becomes
// resolvable in-process. The source behavior kept this unbounded; here
// it is capped in both dimensions and time-boxed, with the oldest set
// evicted under pressure.
type receiptBuffer struct {
	mu          sync.Mutex
	maxMessages int
	perMessage  int
	ttl         time.Duration
	pending     map[uuid.UUID]*pendingSet
}

func newReceiptBuffer(maxMessages, perMessage int, ttl time.Duration) *receiptBuffer {
	if maxMessages <= 0 {
		maxMessages = 1024
	}
	if perMessage <= 0 {
		perMessage = 32
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &receiptBuffer{
		maxMessages: maxMessages,
		perMessage:  perMessage,
		ttl:         ttl,
		pending:     make(map[uuid.UUID]*pendingSet),
	}
}

// add buffers one receipt and reports whether it was kept.
func (b *receiptBuffer) add(messageID uuid.UUID, r pendingReceipt, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.pending[messageID]
	if set == nil {
		if len(b.pending) >= b.maxMessages {
			b.evictOldestLocked()
		}
		set = &pendingSet{firstAt: now}
		b.pending[messageID] = set
	}
	if len(set.entries) >= b.perMessage {
		return false
	}
	set.entries = append(set.entries, r)
	return true
}

// drain removes and returns all buffered receipts for the message, so
// the merge happens exactly once.
func (b *receiptBuffer) drain(messageID uuid.UUID) []pendingReceipt {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.pending[messageID]
	if set == nil {
		return nil
	}
	delete(b.pending, messageID)
	return set.entries
}

// expire drops sets older than the TTL and returns how many were cut.
func (b *receiptBuffer) expire(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int
	for id, set := range b.pending {
		if now.Sub(set.firstAt) > b.ttl {
			delete(b.pending, id)
			n++
		}
	}
	return n
}

func (b *receiptBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *receiptBuffer) evictOldestLocked() {
	var oldest uuid.UUID
	var oldestAt time.Time
	for id, set := range b.pending {
		if oldestAt.IsZero() || set.firstAt.Before(oldestAt) {
			oldest, oldestAt = id, set.firstAt
		}
	}
	if !oldestAt.IsZero() {
		delete(b.pending, oldest)
	}
}
