package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegen/internal/database"
	"sitegen/internal/storage"
)

func TestProjects_CreateListGetDelete(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(1, "")

	rec := s.do(http.MethodPost, "/api/projects", token, map[string]string{"prompt": "a portfolio"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[database.Project](t, rec)
	assert.Equal(t, "Untitled Project", created.Title)
	assert.Equal(t, "a portfolio", created.Prompt)

	rec = s.do(http.MethodGet, "/api/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]database.Project](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = s.do(http.MethodGet, "/api/projects/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/projects/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"success": true}, decodeJSON[map[string]bool](t, rec))

	rec = s.do(http.MethodGet, "/api/projects/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Project not found", errorBody(t, rec))
}

func TestProjects_CreateRequiresPrompt(t *testing.T) {
	s := newTestServer(t)
	_, token := s.user(1, "")

	rec := s.do(http.MethodPost, "/api/projects", token, map[string]string{"title": "no prompt"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjects_OwnershipIsEnforced(t *testing.T) {
	s := newTestServer(t)
	ownerID, _ := s.user(1, "")
	_, intruder := s.user(1, "")
	project := s.project(ownerID, "<!DOCTYPE html>")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/projects/" + project.ID},
		{http.MethodPatch, "/api/projects/" + project.ID},
		{http.MethodDelete, "/api/projects/" + project.ID},
		{http.MethodGet, "/api/projects/" + project.ID + "/versions"},
	} {
		var body any
		if tc.method == http.MethodPatch {
			body = map[string]string{"title": "mine now"}
		}
		rec := s.do(tc.method, tc.path, intruder, body)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.method+" "+tc.path)
		assert.Equal(t, "Access denied", errorBody(t, rec))
	}
}

func TestProjects_PatchAndThumbnailURL(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.user(1, "")
	project := s.project(userID, "<!DOCTYPE html><p>hi</p>")
	key := storage.ThumbnailKey(userID, project.ID)
	require.NoError(t, s.store.SetThumbnailKey(context.Background(), project.ID, key))

	rec := s.do(http.MethodPatch, "/api/projects/"+project.ID, token, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeJSON[database.Project](t, rec)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "<!DOCTYPE html><p>hi</p>", updated.HTMLContent)
	assert.Equal(t, "https://cdn.example.test/"+key+"?sig=1", updated.ThumbnailURL)
	assert.Empty(t, s.scanner.scanned, "only publishing is scanned")

	rec = s.do(http.MethodDelete, "/api/projects/"+project.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{key}, s.objects.deleted)
}

func TestProjects_PublishIsScanned(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.user(1, "")
	project := s.project(userID, "<!DOCTYPE html><p>stored</p>")

	rec := s.do(http.MethodPatch, "/api/projects/"+project.ID, token, map[string]any{"is_public": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[database.Project](t, rec).IsPublic)
	assert.Equal(t, []string{"<!DOCTYPE html><p>stored</p>"}, s.scanner.scanned)

	s.scanner.err = ErrMaliciousContent
	rec = s.do(http.MethodPatch, "/api/projects/"+project.ID, token, map[string]any{
		"is_public":    true,
		"html_content": "<!DOCTYPE html><script>evil()</script>",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "<!DOCTYPE html><script>evil()</script>", s.scanner.scanned[1])

	stored, err := s.store.GetProject(context.Background(), project.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><p>stored</p>", stored.HTMLContent)

	s.scanner.err = errors.New("clamd unreachable")
	rec = s.do(http.MethodPatch, "/api/projects/"+project.ID, token, map[string]any{"is_public": true})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestVersions_SaveListRestore(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.user(1, "")
	project := s.project(userID, "")

	rec := s.do(http.MethodPost, "/api/projects/"+project.ID+"/versions", token, map[string]string{"html_content": "<!DOCTYPE html>v1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v1 := decodeJSON[database.ProjectVersion](t, rec)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, "Version 1", v1.Label)

	rec = s.do(http.MethodPost, "/api/projects/"+project.ID+"/versions", token, map[string]string{"html_content": "<!DOCTYPE html>v2", "label": "Tweaks"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/projects/"+project.ID+"/versions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	versions := decodeJSON[[]database.ProjectVersion](t, rec)
	require.Len(t, versions, 2)
	assert.Equal(t, "Tweaks", versions[0].Label)

	rec = s.do(http.MethodPost, "/api/projects/"+project.ID+"/versions/"+v1.ID+"/restore", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "<!DOCTYPE html>v1", decodeJSON[database.Project](t, rec).HTMLContent)

	rec = s.do(http.MethodPost, "/api/projects/"+project.ID+"/versions/00000000-0000-0000-0000-000000000000/restore", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Version not found", errorBody(t, rec))

	rec = s.do(http.MethodPost, "/api/projects/"+project.ID+"/versions", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjects_MalformedIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.user(1, "")
	project := s.project(userID, "<!DOCTYPE html>")

	cases := []struct {
		method  string
		path    string
		body    any
		message string
	}{
		{http.MethodGet, "/api/projects/abc", nil, "Project not found"},
		{http.MethodPatch, "/api/projects/abc", map[string]string{"title": "x"}, "Project not found"},
		{http.MethodDelete, "/api/projects/abc", nil, "Project not found"},
		{http.MethodGet, "/api/projects/abc/versions", nil, "Project not found"},
		{http.MethodPost, "/api/projects/abc/versions", map[string]string{"html_content": "<p>"}, "Project not found"},
		{http.MethodPost, "/api/projects/abc/versions/" + project.ID + "/restore", nil, "Project not found"},
		{http.MethodPost, "/api/projects/" + project.ID + "/versions/v1/restore", nil, "Version not found"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tc.message, errorBody(t, rec))
		})
	}
}
