package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"titanhub/internal/apperror"
	"titanhub/internal/metrics"
	"titanhub/internal/models"
	"titanhub/internal/session"
	"titanhub/internal/store"
	"titanhub/internal/utils"
)

type RegisterInput struct {
	Username   string `json:"username" validate:"required,min=3,max=50,handle"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=200"`
	Bio        string `json:"bio" validate:"max=2000"`
	AvatarURL  string `json:"avatarUrl" validate:"max=2048"`
	Profession string `json:"profession" validate:"max=100"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	in.Profession = strings.TrimSpace(in.Profession)
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial profile update; absent fields stay as they are.
type ProfileInput struct {
	Email      *string `json:"email" validate:"omitnil,email,max=255"`
	Bio        *string `json:"bio" validate:"omitnil,max=2000"`
	AvatarURL  *string `json:"avatarUrl" validate:"omitnil,max=2048"`
	Profession *string `json:"profession" validate:"omitnil,max=100"`
}

func (in *ProfileInput) update() models.ProfileUpdate {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	in.Email, in.Bio, in.AvatarURL, in.Profession = trim(in.Email), trim(in.Bio), trim(in.AvatarURL), trim(in.Profession)
	return models.ProfileUpdate{Email: in.Email, Bio: in.Bio, AvatarURL: in.AvatarURL, Profession: in.Profession}
}

// AuthService registers principals, checks credentials and maps session
// ids to principals.
type AuthService struct {
	users    store.UserStore
	sessions session.Store
	hasher   *utils.PasswordHasher
	stats    *StatsService
	events   Publisher
	metrics  *metrics.Metrics
	log      *slog.Logger
	ttl      time.Duration

	// dummyHash is verified against when the username is unknown, so a
	// failed login costs the same whether or not the account exists.
	dummyHash string
}

func NewAuthService(d Deps, stats *StatsService, ttl time.Duration) (*AuthService, error) {
	d = d.withDefaults()
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	dummy, err := d.Hasher.Hash("titanhub-timing-equalizer")
	if err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").Wrap(err)
	}
	return &AuthService{
		users:     d.Store,
		sessions:  d.Sessions,
		hasher:    d.Hasher,
		stats:     stats,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Logger,
		ttl:       ttl,
		dummyHash: dummy,
	}, nil
}

// Register creates a non-admin principal and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.normalize()
	if err := checkInput(&in); err != nil {
		return nil, "", err
	}

	switch _, err := s.users.GetUserByUsername(ctx, in.Username); {
	case err == nil:
		s.metrics.Auth("register", false)
		return nil, "", apperror.UsernameTaken(in.Username)
	case !errors.Is(err, store.ErrNotFound):
		return nil, "", oops.With("operation", "username pre-check").Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", oops.With("operation", "hash password").Wrap(err)
	}

	u := &models.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hash,
		Bio:        in.Bio,
		AvatarURL:  in.AvatarURL,
		Profession: in.Profession,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// lost a race with a concurrent registration of the same name
			s.metrics.Auth("register", false)
			return nil, "", apperror.UsernameTaken(in.Username)
		}
		return nil, "", oops.With("operation", "create user").Wrap(err)
	}

	s.stats.record(ctx, models.StatUsers)
	s.metrics.Auth("register", true)
	emit(ctx, s.events, s.metrics, s.log, newEvent(EventUserRegistered, "user", u.ID, u.ID,
		map[string]any{"username": u.Username}))

	sid, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u.Sanitized(), sid, nil
}

// Login checks credentials and opens a new session. Unknown usernames and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := checkInput(&in); err != nil {
		return nil, "", err
	}

	u, err := s.users.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, "", oops.With("operation", "get user by username").Wrap(err)
		}
		s.hasher.Verify(in.Password, s.dummyHash)
		s.metrics.Auth("login", false)
		return nil, "", apperror.InvalidCredentials()
	}
	if !s.hasher.Verify(in.Password, u.Password) {
		s.metrics.Auth("login", false)
		return nil, "", apperror.InvalidCredentials()
	}

	sid, err := s.startSession(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	s.metrics.Auth("login", true)
	return u.Sanitized(), sid, nil
}

func (s *AuthService) startSession(ctx context.Context, principalID uint) (string, error) {
	sid, err := session.NewID()
	if err != nil {
		return "", err
	}
	if err := s.sessions.Set(ctx, sid, principalID, s.ttl); err != nil {
		return "", oops.Code("AUTH_SESSION_CREATE_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return sid, nil
}

// Logout ends the session. Unknown or empty ids are fine.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").Wrap(err)
	}
	return nil
}

// ResolvePrincipal returns the user behind sessionID. It never fails: any
// problem resolves to anonymous.
func (s *AuthService) ResolvePrincipal(ctx context.Context, sessionID string) (*models.User, bool) {
	u, err := s.LookupPrincipal(ctx, sessionID)
	return u, err == nil
}

// LookupPrincipal is ResolvePrincipal with the reason for a miss. It returns
// session.ErrNotFound only when the session is definitely gone (a session
// whose user was deleted is destroyed on the way); any other error means the
// stores could not be asked and the session may well still be valid.
func (s *AuthService) LookupPrincipal(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, session.ErrNotFound
	}
	principalID, ok, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.log.WarnContext(ctx, "session lookup failed", "error", err)
		return nil, oops.Code("AUTH_SESSION_LOOKUP_FAILED").Wrap(err)
	}
	if !ok {
		return nil, session.ErrNotFound
	}

	u, err := s.users.GetUser(ctx, principalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if derr := s.sessions.Destroy(ctx, sessionID); derr != nil {
				s.log.WarnContext(ctx, "stale session cleanup failed", "error", derr)
			}
			return nil, session.ErrNotFound
		}
		s.log.WarnContext(ctx, "principal lookup failed", "principal_id", principalID, "error", err)
		return nil, oops.Code("AUTH_PRINCIPAL_LOOKUP_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return u.Sanitized(), nil
}
