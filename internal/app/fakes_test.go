package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ragchat-api/internal/app/apptest"
	"ragchat-api/internal/model"
	"ragchat-api/internal/pkg/password"
)

// racingUserStore never sees an existing row on lookup, so uniqueness is only
// caught by the insert.
type racingUserStore struct {
	*apptest.UserStore
}

func (s racingUserStore) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, nil
}

type countingHasher struct {
	password.Hasher
	dummyCalls  atomic.Int32
	verifyCalls atomic.Int32
}

func (h *countingHasher) Verify(plain, digest string) bool {
	h.verifyCalls.Add(1)
	return h.Hasher.Verify(plain, digest)
}

func (h *countingHasher) VerifyDummy(plain string) {
	h.dummyCalls.Add(1)
	h.Hasher.VerifyDummy(plain)
}

type recordedOutcome struct {
	operation string
	outcome   string
}

type sliceRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
}

func (r *sliceRecorder) Record(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{operation: operation, outcome: outcome})
}

func (r *sliceRecorder) last() recordedOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return recordedOutcome{}
	}
	return r.outcomes[len(r.outcomes)-1]
}

var errStoreDown = errors.New("store unavailable")
