package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sitegen/internal/auth"
	"sitegen/internal/config"
	"sitegen/internal/database"
	"sitegen/internal/generation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (v *fakeVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id, ok := v.tokens[token]; ok {
		return auth.Identity{UserID: id}, nil
	}
	return auth.Identity{}, auth.ErrUnauthenticated
}

type fakeEnhancer struct{ out string }

func (f *fakeEnhancer) Complete(context.Context, string, string) (string, error) { return f.out, nil }
func (f *fakeEnhancer) Model() string                                             { return "fake-enhancer" }

type fakeStreamer struct {
	deltas []string
	err    error
}

func (f *fakeStreamer) Stream(_ context.Context, _, _ string, onDelta func(string) error) error {
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeStreamer) Model() string { return "deepseek-chat" }

type fakeObjects struct {
	mu          sync.Mutex
	deleted     []string
	deletedUser []string
}

func (o *fakeObjects) PresignedURL(_ context.Context, key string) (string, error) {
	return "https://cdn.example.test/" + key + "?sig=1", nil
}

func (o *fakeObjects) DeleteObject(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleted = append(o.deleted, key)
	return nil
}

func (o *fakeObjects) DeleteUserThumbnails(_ context.Context, userID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deletedUser = append(o.deletedUser, userID)
	return nil
}

type fakeScanner struct {
	err     error
	scanned []string
}

func (s *fakeScanner) Scan(_ context.Context, html string) error {
	s.scanned = append(s.scanned, html)
	return s.err
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (d *fakeDeleter) DeleteUser(_ context.Context, userID string) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, userID)
	return nil
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	db       *gorm.DB
	store    *database.Store
	verifier *fakeVerifier
	enhancer *fakeEnhancer
	streamer *fakeStreamer
	redis    *miniredis.Miniredis
	objects  *fakeObjects
	scanner  *fakeScanner
	deleter  *fakeDeleter
}

type serverOption func(*Deps)

func withRateLimit(n int) serverOption {
	return func(d *Deps) { d.RateLimit = n }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.AllModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &testServer{
		t:        t,
		db:       db,
		store:    database.NewStore(db),
		verifier: &fakeVerifier{tokens: map[string]string{}},
		enhancer: &fakeEnhancer{out: "A detailed brief for a bakery site."},
		streamer: &fakeStreamer{deltas: []string{"```html\n", "<!DOCTYPE html><html>", "<body>Bakery</body></html>", "\n```"}},
		redis:    mr,
		objects:  &fakeObjects{},
		scanner:  &fakeScanner{},
		deleter:  &fakeDeleter{},
	}

	deps := Deps{
		Store:          s.store,
		Pipeline:       generation.NewPipeline(s.store, s.enhancer, s.streamer, generation.WithLogger(log)),
		Verifier:       s.verifier,
		UserDeleter:    s.deleter,
		Redis:          rdb,
		Objects:        s.objects,
		Scanner:        s.scanner,
		Logger:         log,
		DefaultCredits: 10,
		RateLimit:      100,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	s.router = NewRouter(&config.Config{}, log)
	RegisterRoutes(s.router, deps)
	return s
}

// user creates a profile and returns its id and a bearer token for it.
func (s *testServer) user(credits int, role string) (string, string) {
	s.t.Helper()
	id := uuid.NewString()
	_, err := s.store.UpsertProfile(context.Background(), id, "User "+id[:4], "", credits)
	require.NoError(s.t, err)
	if role != "" && role != database.RoleUser {
		_, err = s.store.SetRole(context.Background(), id, role)
		require.NoError(s.t, err)
	}
	return id, s.token(id)
}

func (s *testServer) token(userID string) string {
	token := "tok-" + userID
	s.verifier.mu.Lock()
	s.verifier.tokens[token] = userID
	s.verifier.mu.Unlock()
	return token
}

func (s *testServer) project(userID, html string) *database.Project {
	s.t.Helper()
	ctx := context.Background()
	p, err := s.store.CreateProject(ctx, userID, "a bakery site", "Bakery")
	require.NoError(s.t, err)
	if html != "" {
		require.NoError(s.t, s.store.UpdateProjectContent(ctx, p.ID, userID, html))
		p.HTMLContent = html
	}
	return p
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) aiLogCount() int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.db.Model(&database.AiLog{}).Count(&n).Error)
	return n
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeJSON[map[string]string](t, rec)["error"]
}
