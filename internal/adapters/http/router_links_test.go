package httpadapter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

func TestCreateLinkReturns201(t *testing.T) {
	linker := &linkerFake{link: &domain.WorkspaceLink{SourceID: 1, TargetID: 2}}
	handler := newTestRouter(&retrieverFake{}, linker)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/links", strings.NewReader(`{"target_workspace_id":2}`))
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
}

func TestCreateSelfLinkReturns409(t *testing.T) {
	linker := &linkerFake{err: domain.WrapError(domain.ErrSelfLink, "link workspaces", errors.New("workspace 1"))}
	handler := newTestRouter(&retrieverFake{}, linker)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/links", strings.NewReader(`{"target_workspace_id":1}`))
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestCreateDuplicateLinkReturns409(t *testing.T) {
	linker := &linkerFake{err: domain.WrapError(domain.ErrDuplicateLink, "create link", errors.New("1 -> 2"))}
	handler := newTestRouter(&retrieverFake{}, linker)

	req := httptest.NewRequest(http.MethodPost, "/v1/workspaces/1/links", strings.NewReader(`{"target_workspace_id":2}`))
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestListLinksReturnsGraph(t *testing.T) {
	linker := &linkerFake{links: domain.WorkspaceLinks{
		Outgoing: []domain.WorkspaceLink{{SourceID: 1, TargetID: 2}},
		Incoming: []domain.WorkspaceLink{{SourceID: 3, TargetID: 1}},
	}}
	handler := newTestRouter(&retrieverFake{}, linker)

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/1/links", nil)
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"outgoing"`) {
		t.Fatalf("expected outgoing links in body, got %s", res.Body.String())
	}
}

func TestDeleteLinkReturns204(t *testing.T) {
	handler := newTestRouter(&retrieverFake{}, &linkerFake{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/workspaces/1/links/2", nil)
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestDeleteMissingLinkReturns404(t *testing.T) {
	linker := &linkerFake{err: domain.WrapError(domain.ErrLinkNotFound, "delete link", errors.New("1 -> 2"))}
	handler := newTestRouter(&retrieverFake{}, linker)

	req := httptest.NewRequest(http.MethodDelete, "/v1/workspaces/1/links/2", nil)
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestLinkRoutesRejectBadWorkspaceID(t *testing.T) {
	handler := newTestRouter(&retrieverFake{}, &linkerFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/zero/links", nil)
	req.Header.Set("X-User-Id", "u1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
