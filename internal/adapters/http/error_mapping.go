package httpadapter

import (
	"net/http"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrWorkspaceNotFound), domain.IsKind(err, domain.ErrLinkNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrSelfLink), domain.IsKind(err, domain.ErrDuplicateLink):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrIndexUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
