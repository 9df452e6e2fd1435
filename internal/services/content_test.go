package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titanhub/internal/apperror"
	"titanhub/internal/models"
)

func TestCreateProjectNormalizesTechStack(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.register(t, "builder")

	p, err := env.content.CreateProject(context.Background(), owner, ProjectInput{
		Title:       " Rocket ",
		Description: "launches things",
		TechStack:   models.TechStack{"Go", " postgres", "go", "", "Redis "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Rocket", p.Title)
	assert.Equal(t, models.TechStack{"Go", "postgres", "Redis"}, p.TechStack)
	assert.Zero(t, p.Upvotes)
	assert.Equal(t, owner.ID, p.UserID)
}

func TestCreateContentRequiresPrincipalAndFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.content.CreateProject(ctx, nil, ProjectInput{Title: "x", Description: "y"})
	requireCode(t, err, apperror.CodeUnauthenticated)
	_, err = env.content.CreateDiscussion(ctx, nil, DiscussionInput{Title: "x", Description: "y", Tag: "z"})
	requireCode(t, err, apperror.CodeUnauthenticated)

	owner, _ := env.register(t, "author")
	_, err = env.content.CreateProject(ctx, owner, ProjectInput{Title: "  ", Description: "y"})
	requireCode(t, err, apperror.CodeInvalidArgument)
	_, err = env.content.CreateDiscussion(ctx, owner, DiscussionInput{Title: "x", Description: "y"})
	requireCode(t, err, apperror.CodeInvalidArgument)
	assert.Contains(t, apperror.PublicMessage(err), "Tag is required")
}

func TestCreationBumpsStatsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, _ := env.register(t, "counter")

	env.project(t, owner, "one")
	env.project(t, owner, "two")
	env.discussion(t, owner, "three")

	stats, err := env.stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{
		ID:              models.StatsID,
		ActiveUsers:     1,
		ProjectsCreated: 2,
		CommunityPosts:  1,
		GithubStars:     models.DefaultGithubStars,
	}, *stats)

	assert.Equal(t, []string{EventUserRegistered, EventProjectCreated, EventProjectCreated, EventDiscussionCreated},
		env.events.Types())
}

func TestStatsLazilySeeded(t *testing.T) {
	env := newTestEnv(t)
	stats, err := env.stats.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGithubStars, stats.GithubStars)
	assert.Zero(t, stats.ActiveUsers)

	require.Error(t, env.stats.RecordCreation(context.Background(), models.StatKind("bogus")))
}

func TestConcurrentUpvotesAreNotLost(t *testing.T) {
	env := newTestEnv(t, withCache(t))
	owner, _ := env.register(t, "voter")
	p := env.project(t, owner, "popular")
	d := env.discussion(t, owner, "hot topic")

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := env.content.UpvoteProject(context.Background(), p.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := env.content.UpvoteDiscussion(context.Background(), d.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	gotP, err := env.content.GetProject(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, n, gotP.Upvotes)
	gotD, err := env.content.GetDiscussion(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, n, gotD.Upvotes)
}

func TestUpvoteUnknownIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.content.UpvoteProject(context.Background(), 42)
	requireCode(t, err, apperror.CodeNotFound)
	assert.Equal(t, "Project not found", apperror.PublicMessage(err))

	_, err = env.content.UpvoteDiscussion(context.Background(), 42)
	requireCode(t, err, apperror.CodeNotFound)
}

func upvote(t *testing.T, env *testEnv, id uint, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		_, err := env.content.UpvoteProject(context.Background(), id)
		require.NoError(t, err)
	}
}

func TestTopProjectsOrderingAndLimit(t *testing.T) {
	for _, cached := range []bool{false, true} {
		name := "uncached"
		var opts []func(*ContentOptions)
		if cached {
			name = "cached"
			opts = append(opts, withCache(t))
		}
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, opts...)
			ctx := context.Background()

			empty, err := env.content.TopProjects(ctx, DefaultTopLimit)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			owner, _ := env.register(t, "ranker")
			a := env.project(t, owner, "a")
			b := env.project(t, owner, "b")
			c := env.project(t, owner, "c")
			e := env.project(t, owner, "e")
			upvote(t, env, b.ID, 5)
			upvote(t, env, c.ID, 2)
			upvote(t, env, e.ID, 2)

			top, err := env.content.TopProjects(ctx, DefaultTopLimit)
			require.NoError(t, err)
			assert.Equal(t, []uint{b.ID, c.ID, e.ID}, projectIDs(top))

			// an upvote is visible on the very next read
			upvote(t, env, a.ID, 6)
			top, err = env.content.TopProjects(ctx, DefaultTopLimit)
			require.NoError(t, err)
			assert.Equal(t, []uint{a.ID, b.ID, c.ID}, projectIDs(top))

			one, err := env.content.TopProjects(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, one, 1)

			all, err := env.content.TopProjects(ctx, 10_000)
			require.NoError(t, err)
			assert.Len(t, all, 4)
		})
	}
}

func projectIDs(ps []models.Project) []uint {
	out := make([]uint, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestTopDiscussionsSeeNewContent(t *testing.T) {
	env := newTestEnv(t, withCache(t))
	ctx := context.Background()
	owner, _ := env.register(t, "poster")

	first := env.discussion(t, owner, "first")
	top, err := env.content.TopDiscussions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 1)

	second := env.discussion(t, owner, "second")
	_, err = env.content.UpvoteDiscussion(ctx, second.ID)
	require.NoError(t, err)

	top, err = env.content.TopDiscussions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, second.ID, top[0].ID)
	assert.Equal(t, first.ID, top[1].ID)

	// callers cannot corrupt the cached list
	top[0].Title = "mutated"
	again, err := env.content.TopDiscussions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "second", again[0].Title)
}

func TestClampTopLimit(t *testing.T) {
	assert.Equal(t, 1, ClampTopLimit(-5))
	assert.Equal(t, 1, ClampTopLimit(0))
	assert.Equal(t, 3, ClampTopLimit(3))
	assert.Equal(t, MaxTopLimit, ClampTopLimit(MaxTopLimit+1))
}

func TestAddCommentKeepsCountInStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, _ := env.register(t, "chatty")
	d := env.discussion(t, owner, "thread")

	c, err := env.content.AddComment(ctx, owner, d.ID, CommentInput{Content: "  hello world  "})
	require.NoError(t, err)
	assert.Equal(t, "hello world", c.Content)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.content.AddComment(context.Background(), owner, d.ID, CommentInput{Content: "me too"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := env.content.GetDiscussion(ctx, d.ID)
	require.NoError(t, err)
	comments, err := env.content.ListComments(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, comments, n+1)
	assert.Equal(t, len(comments), got.CommentCount)
	assert.Equal(t, c.ID, comments[0].ID, "oldest first")
}

func TestAddCommentKeepsTextAsWritten(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, _ := env.register(t, "gopher")
	d := env.discussion(t, owner, "generics")

	for _, text := range []string{
		"use vector<int> or map<string, int>",
		"func F[T any]() <T>",
		"<b></b>",
		"a < b && c > d",
	} {
		c, err := env.content.AddComment(ctx, owner, d.ID, CommentInput{Content: "  " + text + "\n"})
		require.NoError(t, err, text)
		assert.Equal(t, text, c.Content)
	}

	comments, err := env.content.ListComments(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, comments, 4)
	assert.Equal(t, "use vector<int> or map<string, int>", comments[0].Content)
}

func TestAddCommentFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner, _ := env.register(t, "critic")
	d := env.discussion(t, owner, "thread")

	_, err := env.content.AddComment(ctx, nil, d.ID, CommentInput{Content: "hi"})
	requireCode(t, err, apperror.CodeUnauthenticated)

	_, err = env.content.AddComment(ctx, owner, d.ID, CommentInput{Content: "   "})
	requireCode(t, err, apperror.CodeInvalidArgument)

	_, err = env.content.AddComment(ctx, owner, 999, CommentInput{Content: "into the void"})
	requireCode(t, err, apperror.CodeNotFound)
	orphans, err := env.content.ListComments(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	got, _ := env.content.GetDiscussion(ctx, d.ID)
	assert.Zero(t, got.CommentCount)
}

func TestSetDiscussionStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member, _ := env.register(t, "member")
	admin := env.admin(t)
	d := env.discussion(t, member, "feature request")
	assert.Equal(t, models.StatusActive, d.Status)

	_, err := env.content.SetDiscussionStatus(ctx, nil, d.ID, "done")
	requireCode(t, err, apperror.CodeUnauthenticated)

	_, err = env.content.SetDiscussionStatus(ctx, member, d.ID, "done")
	requireCode(t, err, apperror.CodeForbidden)
	assert.Equal(t, "Admin privileges required", apperror.PublicMessage(err))

	_, err = env.content.SetDiscussionStatus(ctx, admin, d.ID, "archived")
	requireCode(t, err, apperror.CodeInvalidArgument)

	_, err = env.content.SetDiscussionStatus(ctx, admin, 999, "done")
	requireCode(t, err, apperror.CodeNotFound)

	got, err := env.content.GetDiscussion(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status, "failed attempts change nothing")

	updated, err := env.content.SetDiscussionStatus(ctx, admin, d.ID, "rejected")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
}

func TestDiscussionViewRendersSafeHTML(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.register(t, "writer")
	d, err := env.content.CreateDiscussion(context.Background(), owner, DiscussionInput{
		Title:       "markdown",
		Description: "**bold** <script>alert(1)</script>",
		Tag:         "docs",
	})
	require.NoError(t, err)

	assert.Contains(t, d.DescriptionHTML, "<strong>bold</strong>")
	assert.NotContains(t, d.DescriptionHTML, "<script>")
	assert.Contains(t, d.Description, "<script>", "the source text is stored as written")
}

func TestEventFailureDoesNotFailWrite(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.register(t, "offline")
	env.events.Err = assert.AnError

	p, err := env.content.CreateProject(context.Background(), owner, ProjectInput{Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
}
