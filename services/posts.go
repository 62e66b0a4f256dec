package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/chirp/metrics"
	"github.com/cppla/chirp/models"
	"github.com/cppla/chirp/ratelimit"
	"github.com/cppla/chirp/repository"
)

// FeedLimit caps the number of posts returned by ListPosts.
const FeedLimit = 100

// PostStore is the persistence the procedures need.
type PostStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.Post, error)
	Latest(ctx context.Context) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
}

// RateLimiter decides whether an author may write now.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// CreatePostInput is the createPost payload.
type CreatePostInput struct {
	Content  string `json:"content"`
	AuthorID string `json:"authorId"`
}

// CreatePostResult carries the stored post and the limiter state after the write.
type CreatePostResult struct {
	Post      *models.Post
	RateLimit ratelimit.Decision
}

// RateLimitedError is wrapped by KindRateLimited errors and carries the limiter decision.
type RateLimitedError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("limit of %d reached until %s", e.Decision.Limit, e.Decision.ResetAt.Format(time.RFC3339))
}

// PostService implements the post procedures. It holds no per-request state; every
// dependency is an injected handle shared for the life of the process.
type PostService struct {
	store    PostStore
	limiter  RateLimiter
	enricher *Enricher
	logger   *zap.Logger
}

func NewPostService(store PostStore, limiter RateLimiter, directory UserDirectory, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		store:    store,
		limiter:  limiter,
		enricher: NewEnricher(directory, logger),
		logger:   logger,
	}
}

// ListPosts returns the newest FeedLimit posts with their authors.
func (s *PostService) ListPosts(ctx context.Context) ([]models.EnrichedPost, error) {
	posts, err := s.store.ListRecent(ctx, FeedLimit)
	if err != nil {
		return nil, classifyStoreError("failed to list posts", err)
	}
	return s.enricher.Enrich(ctx, posts)
}

// GetPost returns one post with its author.
func (s *PostService) GetPost(ctx context.Context, id string) (*models.EnrichedPost, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id is required")
	}
	post, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewNotFoundError("post not found")
	}
	if err != nil {
		return nil, classifyStoreError("failed to load post", err)
	}
	enriched, err := s.enricher.Enrich(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// CreatePost validates the input, charges the author's rate limit and stores the post.
// Invalid input is rejected before the limiter is consulted.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	if len(in.Content) == 0 {
		return nil, NewValidationError("content cannot be empty")
	}
	if strings.TrimSpace(in.AuthorID) == "" {
		return nil, NewValidationError("authorId is required")
	}

	decision, err := s.limiter.Allow(ctx, in.AuthorID)
	if err != nil {
		return nil, NewUnavailableError("rate limiter unavailable", err)
	}
	if !decision.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("post", "denied").Inc()
		s.logger.Info("post rate limited", zap.String("author_id", in.AuthorID), zap.Time("reset_at", decision.ResetAt))
		return nil, &Error{
			Kind:    KindRateLimited,
			Message: "too many posts, try again later",
			Err:     &RateLimitedError{Decision: decision},
		}
	}
	metrics.RateLimitDecisions.WithLabelValues("post", "allowed").Inc()

	post := &models.Post{Content: in.Content, AuthorID: in.AuthorID}
	if err := s.store.Create(ctx, post); err != nil {
		return nil, classifyStoreError("failed to create post", err)
	}
	metrics.PostsCreated.Inc()
	return &CreatePostResult{Post: post, RateLimit: decision}, nil
}

// GetLatestPost returns the newest post, or nil when there are none.
func (s *PostService) GetLatestPost(ctx context.Context) (*models.Post, error) {
	post, err := s.store.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreError("failed to load latest post", err)
	}
	return post, nil
}

// RetryAfter is how long the caller should wait before the next slot frees up.
func (e *RateLimitedError) RetryAfter(now time.Time) time.Duration {
	if d := e.Decision.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

func classifyStoreError(msg string, err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return NewUnavailableError("database unavailable", err)
	}
	return NewInternalError(msg, err)
}
