package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"titanhub/internal/apperror"
	"titanhub/internal/models"
	"titanhub/internal/session"
	"titanhub/internal/store/memstore"
	"titanhub/internal/utils"
)

type testEnv struct {
	store    *memstore.Store
	sessions *session.MemoryStore
	events   *RecordingPublisher
	stats    *StatsService
	auth     *AuthService
	content  *ContentService
}

func newTestEnv(t *testing.T, opts ...func(*ContentOptions)) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memstore.New(),
		sessions: session.NewMemoryStore(),
		events:   &RecordingPublisher{},
	}
	d := env.deps()
	env.stats = NewStatsService(d, models.DefaultGithubStars)

	var err error
	env.auth, err = NewAuthService(d, env.stats, time.Hour)
	require.NoError(t, err)

	var co ContentOptions
	for _, o := range opts {
		o(&co)
	}
	env.content = NewContentService(d, env.stats, co)
	return env
}

func (e *testEnv) deps() Deps {
	return Deps{
		Store:    e.store,
		Sessions: e.sessions,
		Hasher:   utils.NewPasswordHasherForTest(),
		Events:   e.events,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func withCache(t *testing.T) func(*ContentOptions) {
	return func(o *ContentOptions) {
		c, err := utils.NewTTLCache(64)
		require.NoError(t, err)
		o.Cache = c
		o.CacheTTL = time.Minute
	}
}

func (e *testEnv) register(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u, sid, err := e.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u, sid
}

func (e *testEnv) admin(t *testing.T) *models.User {
	t.Helper()
	u, _ := e.register(t, "moderator")
	e.store.SetAdmin(u.ID, true)
	u.IsAdmin = true
	return u
}

func (e *testEnv) project(t *testing.T, owner *models.User, title string) *models.Project {
	t.Helper()
	p, err := e.content.CreateProject(context.Background(), owner, ProjectInput{
		Title:       title,
		Description: "about " + title,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) discussion(t *testing.T, owner *models.User, title string) *DiscussionView {
	t.Helper()
	d, err := e.content.CreateDiscussion(context.Background(), owner, DiscussionInput{
		Title:       title,
		Description: "about " + title,
		Tag:         "general",
	})
	require.NoError(t, err)
	return d
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperror.Code(err), "error: %v", err)
}
