// Package repository holds the GORM-backed stores.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/chirp/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// PostRepository reads and writes the post table.
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository wraps an initialised GORM handle.
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// newestFirst orders by creation time; ties are left in store order.
func (r *PostRepository) newestFirst(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Post{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "createdAt"}, Desc: true})
}

// ListRecent returns at most limit posts, newest first.
func (r *PostRepository) ListRecent(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	if err := r.newestFirst(ctx).Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Latest returns the newest post, or ErrNotFound when the table is empty.
func (r *PostRepository) Latest(ctx context.Context) (*models.Post, error) {
	var post models.Post
	err := r.newestFirst(ctx).Limit(1).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetByID looks up a single post.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Create inserts post; the id and createdAt are filled in by the model hook.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}
