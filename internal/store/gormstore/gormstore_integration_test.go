//go:build integration

package gormstore_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"titanhub/internal/db"
	"titanhub/internal/models"
	"titanhub/internal/session"
	"titanhub/internal/store"
	"titanhub/internal/store/gormstore"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("titanhub_test"),
		postgres.WithUsername("titanhub"),
		postgres.WithPassword("titanhub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	conn, err := db.Open(ctx, db.Options{DSN: dsn}, log)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to open database: " + err.Error())
	}
	if err := db.Migrate(conn); err != nil {
		_ = container.Terminate(ctx)
		panic("failed to migrate: " + err.Error())
	}
	testDB = conn

	code := m.Run()
	_ = db.Close(conn)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func reset(t *testing.T) *gormstore.Store {
	t.Helper()
	require.NoError(t, testDB.Exec("TRUNCATE users, projects, discussions, comments, stats, sessions RESTART IDENTITY CASCADE").Error)
	return gormstore.New(testDB)
}

func newUser(t *testing.T, s *gormstore.Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "k.s"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestUsernameUniqueIndexIsCaseInsensitive(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	newUser(t, s, "bob")

	err := s.CreateUser(ctx, &models.User{Username: "BOB", Email: "x@example.com", Password: "k.s"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	u, err := s.GetUserByUsername(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	// email is deliberately not unique
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "bob2", Email: "bob@example.com", Password: "k.s"}))
}

func TestConcurrentUpvotesOnPostgres(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	u := newUser(t, s, "alice")
	d := &models.Discussion{UserID: u.ID, Title: "Hello", Description: "x", Tag: "general"}
	require.NoError(t, s.CreateDiscussion(ctx, d))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpvoteDiscussion(ctx, d.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.Upvotes)

	up, err := s.UpvoteDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, n+1, up.Upvotes)
	assert.Equal(t, "Hello", up.Title, "RETURNING fills the whole row")

	_, err = s.UpvoteProject(ctx, 4242)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTopOrderingOnPostgres(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	u := newUser(t, s, "alice")

	for i, votes := range []int{2, 5, 5, 0} {
		p := &models.Project{UserID: u.ID, Title: string(rune('a' + i)), Description: "x", TechStack: models.NormalizeTechStack("go, pg")}
		require.NoError(t, s.CreateProject(ctx, p))
		for j := 0; j < votes; j++ {
			_, err := s.UpvoteProject(ctx, p.ID)
			require.NoError(t, err)
		}
	}

	top, err := s.TopProjects(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{top[0].Title, top[1].Title, top[2].Title})
	assert.Equal(t, models.TechStack{"go", "pg"}, top[0].TechStack)
}

func TestCommentCountTransaction(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	u := newUser(t, s, "alice")
	d := &models.Discussion{UserID: u.ID, Title: "d", Description: "x", Tag: "t"}
	require.NoError(t, s.CreateDiscussion(ctx, d))

	require.NoError(t, s.CreateComment(ctx, &models.Comment{DiscussionID: d.ID, UserID: u.ID, Content: "one"}))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{DiscussionID: d.ID, UserID: u.ID, Content: "two"}))

	err := s.CreateComment(ctx, &models.Comment{DiscussionID: 9999, UserID: u.ID, Content: "orphan"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	var total int64
	require.NoError(t, testDB.Model(&models.Comment{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)

	got, _ := s.GetDiscussion(ctx, d.ID)
	assert.Equal(t, 2, got.CommentCount)

	require.NoError(t, testDB.Model(&models.Discussion{}).Where("id = ?", d.ID).UpdateColumn("comment_count", 40).Error)
	require.NoError(t, s.RecountComments(ctx, []uint{d.ID}))
	got, _ = s.GetDiscussion(ctx, d.ID)
	assert.Equal(t, 2, got.CommentCount)
}

func TestRecountRacingCommentsKeepsCount(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	u := newUser(t, s, "alice")
	d := &models.Discussion{UserID: u.ID, Title: "d", Description: "x", Tag: "t"}
	require.NoError(t, s.CreateDiscussion(ctx, d))

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				assert.NoError(t, s.CreateComment(ctx, &models.Comment{DiscussionID: d.ID, UserID: u.ID, Content: "c"}))
			}
		}()
	}
	stop := make(chan struct{})
	recounted := make(chan struct{})
	go func() {
		defer close(recounted)
		for {
			select {
			case <-stop:
				return
			default:
				assert.NoError(t, s.RecountComments(ctx, []uint{d.ID}))
			}
		}
	}()
	wg.Wait()
	close(stop)
	<-recounted

	got, err := s.GetDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, got.CommentCount)
}

func TestStatusAndProfileUpdates(t *testing.T) {
	s := reset(t)
	ctx := context.Background()
	u := newUser(t, s, "alice")
	d := &models.Discussion{UserID: u.ID, Title: "d", Description: "x", Tag: "t"}
	require.NoError(t, s.CreateDiscussion(ctx, d))
	assert.Equal(t, models.StatusActive, d.Status)

	got, err := s.SetDiscussionStatus(ctx, d.ID, models.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)

	_, err = s.SetDiscussionStatus(ctx, 777, models.StatusDone)
	assert.ErrorIs(t, err, store.ErrNotFound)

	bio := "gopher"
	updated, err := s.UpdateUser(ctx, u.ID, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "gopher", updated.Bio)
	assert.Equal(t, "alice@example.com", updated.Email)
}

func TestStatsUpsert(t *testing.T) {
	s := reset(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementStat(ctx, models.StatDiscussions, models.DefaultGithubStars)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := s.GetStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, st.CommunityPosts)
	assert.Equal(t, 0, st.ActiveUsers)
	assert.Equal(t, models.DefaultGithubStars, st.GithubStars)

	var rows int64
	require.NoError(t, testDB.Model(&models.Stats{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestForeignKeyMapsToNotFound(t *testing.T) {
	s := reset(t)
	err := s.CreateProject(context.Background(), &models.Project{UserID: 31337, Title: "x", Description: "y"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGormSessionStore(t *testing.T) {
	reset(t)
	ctx := context.Background()
	s := session.NewGormStore(testDB)

	require.NoError(t, s.Set(ctx, "sid", 5, time.Hour))
	require.NoError(t, s.Set(ctx, "sid", 6, time.Hour), "set overwrites")
	id, ok, err := s.Get(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint(6), id)

	require.NoError(t, s.Set(ctx, "gone", 5, -time.Minute))
	_, ok, err = s.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Destroy(ctx, "sid"))
	require.NoError(t, s.Destroy(ctx, "sid"))
	_, ok, _ = s.Get(ctx, "sid")
	assert.False(t, ok)
}
