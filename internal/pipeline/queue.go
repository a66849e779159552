// Package pipeline runs the concurrent half of indexing: a document queue fed
// by the corpus reader, parser workers that extract terms into private
// buffers, and the flusher that merges those buffers into the shared
// dictionary and document store.
package pipeline

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/corpus"
)

// Queue is an unbounded FIFO of documents waiting to be parsed. It rejects a
// document equal (corpus.Document.Equal) to one still waiting.
type Queue struct {
	mu      sync.Mutex
	items   []*corpus.Document
	head    int
	pending map[string]struct{}
	changed chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		pending: make(map[string]struct{}),
		changed: make(chan struct{}),
	}
}

// Enqueue appends doc. It returns false without modifying the queue when doc
// is nil or a duplicate of a waiting document. The membership check and the
// insert happen under one lock.
func (q *Queue) Enqueue(doc *corpus.Document) bool {
	if doc == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if key, ok := doc.Key(); ok {
		if _, dup := q.pending[key]; dup {
			return false
		}
		q.pending[key] = struct{}{}
	}
	q.items = append(q.items, doc)
	close(q.changed)
	q.changed = make(chan struct{})
	return true
}

// Dequeue removes and returns the head; ok is false when the queue is empty.
func (q *Queue) Dequeue() (doc *corpus.Document, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.items) {
		return nil, false
	}
	doc = q.items[q.head]
	q.items[q.head] = nil
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	if key, ok := doc.Key(); ok {
		delete(q.pending, key)
	}
	return doc, true
}

func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Changed returns a channel closed by the next successful Enqueue. Grab it
// before checking the queue so that an insert in between is not missed.
func (q *Queue) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}
