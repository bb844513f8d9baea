package user

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

var _ Repository = (*FilteredRepository)(nil)

// FilteredRepository tracks known usernames in a bloom filter. The filter is
// local to one process while storage may be shared, so a miss is only a hint:
// FindByUsername still asks storage and learns names created elsewhere.
type FilteredRepository struct {
	Repository

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewFilteredRepository wraps repo with a filter sized for capacity usernames
// at the given false positive rate. Call Warm before serving traffic.
func NewFilteredRepository(repo Repository, capacity uint, fpr float64) *FilteredRepository {
	return &FilteredRepository{
		Repository: repo,
		filter:     bloom.NewWithEstimates(capacity, fpr),
	}
}

// Warm loads every stored username into the filter.
func (r *FilteredRepository) Warm(ctx context.Context) (int, error) {
	names, err := r.Repository.Usernames(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list usernames")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		r.filter.AddString(name)
	}
	return len(names), nil
}

// Create stores the user and records the username in the filter.
func (r *FilteredRepository) Create(ctx context.Context, u *User) error {
	if err := r.Repository.Create(ctx, u); err != nil {
		return err
	}

	r.mu.Lock()
	r.filter.AddString(u.Username)
	r.mu.Unlock()
	return nil
}

// FindByUsername consults storage on a filter miss and records the username
// when storage knows it, so replicas converge on users created by others.
func (r *FilteredRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	known := r.filter.TestString(username)
	r.mu.RUnlock()

	u, err := r.Repository.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !known {
		r.mu.Lock()
		r.filter.AddString(username)
		r.mu.Unlock()
	}
	return u, nil
}
