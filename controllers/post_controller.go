package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chirp/middleware"
	"github.com/cppla/chirp/models"
	"github.com/cppla/chirp/services"
	"github.com/cppla/chirp/utils"
)

// PostService is the set of post procedures the HTTP layer exposes.
type PostService interface {
	ListPosts(ctx context.Context) ([]models.EnrichedPost, error)
	GetPost(ctx context.Context, id string) (*models.EnrichedPost, error)
	CreatePost(ctx context.Context, in services.CreatePostInput) (*services.CreatePostResult, error)
	GetLatestPost(ctx context.Context) (*models.Post, error)
}

// PostController serves the post procedures as JSON.
type PostController struct {
	posts PostService
	now   func() time.Time
}

// NewPostController creates a new PostController instance.
func NewPostController(posts PostService) *PostController {
	return &PostController{posts: posts, now: time.Now}
}

// ListPosts returns the newest posts with their authors.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// GetPost returns one post with its author.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		p.fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// GetLatestPost returns the newest post, or null data when there are none.
func (p *PostController) GetLatestPost(ctx *gin.Context) {
	post, err := p.posts.GetLatestPost(ctx.Request.Context())
	if err != nil {
		p.fail(ctx, err)
		return
	}
	if post == nil {
		utils.Success(ctx, nil)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost stores a post for the author. With a signed-in session the author
// defaults to the session user and may not be anyone else.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.CreatePostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	// Malformed input is reported before any session mismatch.
	if len(req.Content) == 0 {
		p.fail(ctx, services.NewValidationError("content cannot be empty"))
		return
	}

	if uid, ok := middleware.CurrentUserID(ctx); ok {
		if strings.TrimSpace(req.AuthorID) == "" {
			req.AuthorID = uid
		} else if req.AuthorID != uid {
			p.fail(ctx, services.NewForbiddenError("authorId does not match the signed-in user"))
			return
		}
	}

	res, err := p.posts.CreatePost(ctx.Request.Context(), req)
	if err != nil {
		p.fail(ctx, err)
		return
	}

	setRateLimitHeaders(ctx, res.RateLimit.Limit, res.RateLimit.Remaining, res.RateLimit.ResetAt)
	utils.Success(ctx, res.Post)
}

// fail maps a procedure error onto the response envelope.
func (p *PostController) fail(ctx *gin.Context, err error) {
	var svcErr *services.Error
	message := "internal server error"
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}

	switch services.KindOf(err) {
	case services.KindValidation:
		utils.Error(ctx, http.StatusBadRequest, 40021, message)
	case services.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40301, message)
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40401, message)
	case services.KindRateLimited:
		var rl *services.RateLimitedError
		if errors.As(err, &rl) {
			d := rl.Decision
			setRateLimitHeaders(ctx, d.Limit, d.Remaining, d.ResetAt)
			retry := rl.RetryAfter(p.now())
			ctx.Header("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
		}
		utils.Error(ctx, http.StatusTooManyRequests, 42901, message)
	case services.KindUnavailable:
		_ = ctx.Error(err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50300, "service temporarily unavailable")
	default:
		_ = ctx.Error(err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "internal server error")
	}
}

func setRateLimitHeaders(ctx *gin.Context, limit, remaining int, resetAt time.Time) {
	ctx.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	ctx.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	ctx.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}
