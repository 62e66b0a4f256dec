package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/chirp/models"
	"github.com/cppla/chirp/services"
)

// PostReader is the read side of the post procedures.
type PostReader interface {
	ListPosts(ctx context.Context) ([]models.EnrichedPost, error)
	GetPost(ctx context.Context, id string) (*models.EnrichedPost, error)
}

type feedPage struct {
	Title string
	Posts []models.EnrichedPost
}

type postPage struct {
	Title string
	Post  models.EnrichedPost
}

type errorPage struct {
	Title   string
	Message string
}

// Handler serves the HTML pages.
type Handler struct {
	posts     PostReader
	templates *Templates
	logger    *zap.Logger
}

func NewHandler(posts PostReader, templates *Templates, logger *zap.Logger) *Handler {
	return &Handler{posts: posts, templates: templates, logger: logger}
}

// Feed renders the newest posts.
func (h *Handler) Feed(ctx *gin.Context) {
	posts, err := h.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		h.renderError(ctx, err)
		return
	}
	h.render(ctx, http.StatusOK, "feed.html", feedPage{Title: "Chirp", Posts: posts})
}

// Post renders a single post.
func (h *Handler) Post(ctx *gin.Context) {
	post, err := h.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.renderError(ctx, err)
		return
	}
	title := post.Post.Content + " - @" + post.Author.DisplayName()
	h.render(ctx, http.StatusOK, "post.html", postPage{Title: title, Post: *post})
}

// NotFound renders the failure page for unknown paths.
func (h *Handler) NotFound(ctx *gin.Context) {
	h.render(ctx, http.StatusNotFound, "error.html", errorPage{Title: "Chirp", Message: "Page not found."})
}

func (h *Handler) renderError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong."
	switch services.KindOf(err) {
	case services.KindNotFound, services.KindValidation:
		status = http.StatusNotFound
		message = "Post not found."
	case services.KindUnavailable:
		status = http.StatusServiceUnavailable
	default:
		_ = ctx.Error(err)
	}
	h.render(ctx, status, "error.html", errorPage{Title: "Chirp", Message: message})
}

func (h *Handler) render(ctx *gin.Context, status int, name string, data interface{}) {
	if err := h.templates.Render(ctx.Writer, status, name, data); err != nil {
		h.logger.Error("render page", zap.String("template", name), zap.Error(err))
		ctx.String(http.StatusInternalServerError, "internal server error")
	}
}
