package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/humanist/internal/common"
	"github.com/dmitrijs2005/humanist/internal/server/models"
)

// MemoryRepository keeps users in process memory with the same uniqueness
// rules as the database schema. It backs tests and local runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	lastID   int64
	byID     map[int64]models.User
	byEmail  map[string]int64
	authorID int64
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[int64]models.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := foldEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[key]; ok {
		return nil, common.ErrDuplicateEmail
	}
	if user.Role.IsAuthor() && r.authorID != 0 {
		return nil, common.ErrAuthorAlreadyExists
	}

	r.lastID++
	created := *user
	created.ID = r.lastID
	created.Email = key
	created.CreatedAt = r.now().UTC()

	r.byID[created.ID] = created
	r.byEmail[key] = created.ID
	if created.Role.IsAuthor() {
		r.authorID = created.ID
	}

	return &created, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[foldEmail(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}
