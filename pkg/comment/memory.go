package comment

import (
	"context"
	"sync"
)

// MemoryRepo keeps comments in process. The stub uses it when no MongoDB is
// configured.
type MemoryRepo struct {
	mu       sync.Mutex
	seq      int64
	comments []*Comment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Add(ctx context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	c.ID = r.seq
	stored := *c
	r.comments = append(r.comments, &stored)
	return nil
}

func (r *MemoryRepo) ByPhoto(ctx context.Context, photoID int64) ([]*Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*Comment{}
	for _, c := range r.comments {
		if c.PhotoID == photoID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, photoID, commentID int64, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.comments {
		if c.PhotoID != photoID || c.ID != commentID {
			continue
		}
		if c.UserID == "" || c.UserID != userID {
			return ErrForbidden
		}
		r.comments = append(r.comments[:i], r.comments[i+1:]...)
		return nil
	}
	return ErrNotFound
}

func (r *MemoryRepo) DeleteByPhoto(ctx context.Context, photoID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.comments[:0]
	for _, c := range r.comments {
		if c.PhotoID != photoID {
			kept = append(kept, c)
		}
	}
	r.comments = kept
	return nil
}
