package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegen/internal/database"
)

func TestAdmin_RequiresAdminRole(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.user(1, "")

	rec := s.do(http.MethodGet, "/api/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", errorBody(t, rec))

	// a verified identity without a profile row is not an admin either
	rec = s.do(http.MethodGet, "/api/admin/stats", s.token("no-profile"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_StatsAndListings(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)
	userID, _ := s.user(7, "")
	project := s.project(userID, "<!DOCTYPE html>")
	require.NoError(t, s.store.InsertAiLog(context.Background(), &database.AiLog{UserID: userID, ProjectID: project.ID, Success: true}))

	rec := s.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeJSON[database.Stats](t, rec)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.TotalProjects)
	assert.EqualValues(t, 1, stats.SuccessfulGenerations)
	assert.EqualValues(t, 7, stats.TotalCreditsIssued)

	rec = s.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeJSON[map[string]any](t, rec)
	assert.EqualValues(t, 2, users["total"])
	assert.EqualValues(t, 20, users["limit"])
	assert.Len(t, users["users"], 2)

	rec = s.do(http.MethodGet, "/api/admin/projects", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[map[string]any](t, rec)["projects"], 1)

	rec = s.do(http.MethodGet, "/api/admin/logs", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeJSON[map[string]any](t, rec)
	assert.EqualValues(t, 50, logs["limit"])
	assert.Len(t, logs["logs"], 1)
}

func TestAdmin_SetCredits(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)
	userID, _ := s.user(1, "")

	rec := s.do(http.MethodPatch, "/api/admin/users/"+userID+"/credits", adminToken, map[string]int{"credits": 25})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 25, decodeJSON[database.Profile](t, rec).Credits)

	rec = s.do(http.MethodPatch, "/api/admin/users/"+userID+"/credits", adminToken, map[string]int{"credits": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/api/admin/users/"+userID+"/credits", adminToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/api/admin/users/00000000-0000-0000-0000-000000000000/credits", adminToken, map[string]int{"credits": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", errorBody(t, rec))
}

func TestAdmin_BanBlocksGeneration(t *testing.T) {
	s := newTestServer(t)
	adminID, adminToken := s.user(0, database.RoleAdmin)
	userID, userToken := s.user(5, "")
	project := s.project(userID, "")

	rec := s.do(http.MethodPatch, "/api/admin/users/"+userID+"/ban", adminToken, map[string]bool{"ban": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeJSON[database.Profile](t, rec).IsBanned)

	rec = s.do(http.MethodPost, "/api/ai/generate/"+project.ID, userToken, map[string]string{"prompt": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, "/api/admin/users/"+adminID+"/ban", adminToken, map[string]bool{"ban": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/api/admin/users/"+userID+"/ban", adminToken, map[string]bool{"ban": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/api/ai/generate/"+project.ID, userToken, map[string]string{"prompt": "x"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_DeleteUser(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)
	userID, _ := s.user(5, "")

	rec := s.do(http.MethodDelete, "/api/admin/users/"+userID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]bool{"success": true}, decodeJSON[map[string]bool](t, rec))
	assert.Equal(t, []string{userID}, s.deleter.deleted)
	assert.Equal(t, []string{userID}, s.objects.deletedUser)

	_, err := s.store.GetProfile(context.Background(), userID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestAdmin_DeleteUserAuthFailureKeepsProfile(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)
	userID, _ := s.user(5, "")
	s.deleter.err = errors.New("auth service down")

	rec := s.do(http.MethodDelete, "/api/admin/users/"+userID, adminToken, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	_, err := s.store.GetProfile(context.Background(), userID)
	assert.NoError(t, err)
}

func TestAdmin_PublishAndDeleteProject(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)
	userID, _ := s.user(1, "")
	project := s.project(userID, "<!DOCTYPE html><p>shared</p>")

	rec := s.do(http.MethodPatch, "/api/admin/projects/"+project.ID+"/publish", adminToken, map[string]bool{"is_public": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeJSON[database.Project](t, rec).IsPublic)
	assert.Equal(t, []string{"<!DOCTYPE html><p>shared</p>"}, s.scanner.scanned)

	rec = s.do(http.MethodPatch, "/api/admin/projects/"+project.ID+"/publish", adminToken, map[string]bool{"is_public": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.scanner.scanned, 1, "unpublishing is not scanned")

	rec = s.do(http.MethodDelete, "/api/admin/projects/"+project.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, "/api/admin/projects/"+project.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_MalformedIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.user(0, database.RoleAdmin)

	cases := []struct {
		method  string
		path    string
		body    any
		message string
	}{
		{http.MethodPatch, "/api/admin/users/abc/credits", map[string]int{"credits": 1}, "User not found"},
		{http.MethodPatch, "/api/admin/users/abc/ban", map[string]bool{"ban": true}, "User not found"},
		{http.MethodDelete, "/api/admin/users/abc", nil, "User not found"},
		{http.MethodPatch, "/api/admin/projects/abc/publish", map[string]bool{"is_public": false}, "Project not found"},
		{http.MethodDelete, "/api/admin/projects/abc", nil, "Project not found"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, adminToken, tc.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, tc.message, errorBody(t, rec))
		})
	}
	assert.Empty(t, s.deleter.deleted)
}
