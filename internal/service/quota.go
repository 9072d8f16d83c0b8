package service

import (
	"errors"
	"strconv"
	"sync"

	"github.com/atinyakov/videora/internal/client/storage"
)

// ErrQueryLimitReached is returned once every generation query of the
// session has been used.
var ErrQueryLimitReached = errors.New("generation query limit reached")

// Quota counts AI generation queries in the session store.
type Quota struct {
	store storage.Store
	limit int

	mu sync.Mutex
}

// NewQuota returns a Quota allowing limit queries. limit <= 0 means
// unlimited.
func NewQuota(store storage.Store, limit int) *Quota {
	return &Quota{store: store, limit: limit}
}

// Used returns the number of queries issued so far.
func (q *Quota) Used() int {
	raw, _ := q.store.Get(storage.KeyQueryCount)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LimitReached reports whether further queries are refused.
func (q *Quota) LimitReached() bool {
	v, _ := q.store.Get(storage.KeyQueryLimitReached)
	return v == "true"
}

// Remaining returns how many queries are left, or -1 when unlimited.
func (q *Quota) Remaining() int {
	if q.limit <= 0 {
		return -1
	}
	if left := q.limit - q.Used(); left > 0 {
		return left
	}
	return 0
}

// Consume records one query, failing with ErrQueryLimitReached when none is
// left.
func (q *Quota) Consume() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.LimitReached() {
		return ErrQueryLimitReached
	}
	used := q.Used()
	if q.limit > 0 && used >= q.limit {
		_ = q.store.Set(storage.KeyQueryLimitReached, "true")
		return ErrQueryLimitReached
	}
	used++
	if err := q.store.Set(storage.KeyQueryCount, strconv.Itoa(used)); err != nil {
		return err
	}
	if q.limit > 0 && used >= q.limit {
		return q.store.Set(storage.KeyQueryLimitReached, "true")
	}
	return nil
}

// Refund gives back one query taken by a call that did not complete.
func (q *Quota) Refund() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	used := q.Used()
	if used == 0 {
		return nil
	}
	if err := q.store.Set(storage.KeyQueryCount, strconv.Itoa(used-1)); err != nil {
		return err
	}
	return q.store.Delete(storage.KeyQueryLimitReached)
}

// Reset clears the counter.
func (q *Quota) Reset() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Delete(storage.KeyQueryCount, storage.KeyQueryLimitReached)
}
