package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/cppla/chirp/identity"
	"github.com/cppla/chirp/metrics"
	"github.com/cppla/chirp/models"
	"github.com/cppla/chirp/utils"
)

// UserDirectory resolves author ids to client users. Unknown ids are omitted from the result.
type UserDirectory interface {
	GetUserList(ctx context.Context, ids []string) ([]models.ClientUser, error)
}

// ErrMissingUsername means a user has neither a username nor an external username.
var ErrMissingUsername = errors.New("user has no username or external username")

// ResolveUsername picks the name shown for an author: the username, else the external
// account username, else ErrMissingUsername.
func ResolveUsername(u models.ClientUser) (string, error) {
	if u.Username != "" {
		return u.Username, nil
	}
	if u.ExternalUsername != "" {
		return u.ExternalUsername, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingUsername, u.ID)
}

// Enricher joins posts with their authors.
type Enricher struct {
	directory UserDirectory
	logger    *zap.Logger
}

func NewEnricher(directory UserDirectory, logger *zap.Logger) *Enricher {
	return &Enricher{directory: directory, logger: logger}
}

// Enrich returns one EnrichedPost per post, in input order. Any unresolved author fails
// the whole call and no partial result is returned.
func (e *Enricher) Enrich(ctx context.Context, posts []models.Post) ([]models.EnrichedPost, error) {
	if len(posts) == 0 {
		return []models.EnrichedPost{}, nil
	}

	authorIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	authorIDs = utils.UniqueStrings(authorIDs)

	users := make(map[string]models.ClientUser, len(authorIDs))
	for _, batch := range utils.Chunk(authorIDs, identity.MaxUserListLimit) {
		resolved, err := e.directory.GetUserList(ctx, batch)
		if err != nil {
			metrics.EnrichmentFailures.WithLabelValues("directory").Inc()
			return nil, classifyDirectoryError(err)
		}
		for _, u := range resolved {
			users[u.ID] = u
		}
	}

	out := make([]models.EnrichedPost, 0, len(posts))
	for _, p := range posts {
		author, ok := users[p.AuthorID]
		if !ok {
			e.logger.Error("author not found", zap.String("post_id", p.ID), zap.String("author_id", p.AuthorID))
			metrics.EnrichmentFailures.WithLabelValues("author_not_found").Inc()
			return nil, NewInternalError(
				fmt.Sprintf("author for post not found. post id: %s, user id: %s", p.ID, p.AuthorID), nil)
		}
		name, err := ResolveUsername(author)
		if err != nil {
			e.logger.Error("author has no username", zap.String("author_id", author.ID))
			metrics.EnrichmentFailures.WithLabelValues("missing_username").Inc()
			return nil, NewInternalError(fmt.Sprintf("author has no username: %s", author.ID), err)
		}
		author.Username = name
		out = append(out, models.EnrichedPost{Post: p, Author: author})
	}
	return out, nil
}

// classifyDirectoryError separates retryable outages from misconfiguration such as a bad secret key.
func classifyDirectoryError(err error) error {
	var ue *identity.UpstreamError
	if errors.As(err, &ue) {
		if ue.StatusCode >= http.StatusInternalServerError || ue.StatusCode == http.StatusTooManyRequests {
			return NewUnavailableError("identity provider unavailable", err)
		}
		return NewInternalError("identity provider rejected user lookup", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return NewUnavailableError("identity provider unreachable", err)
	}
	return NewInternalError("user lookup failed", err)
}
