package services

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"titanhub/internal/models"
	"titanhub/internal/store"
)

// AdminAccount describes the administrator created on first start.
type AdminAccount struct {
	Username string
	Password string
	Email    string
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// name already exists. It is safe to run on every start and from several
// replicas at once. The returned bool reports whether a user was created.
func EnsureAdmin(ctx context.Context, d Deps, acct AdminAccount) (bool, error) {
	d = d.withDefaults()
	log := d.Logger.With("username", acct.Username)

	switch _, err := d.Store.GetUserByUsername(ctx, acct.Username); {
	case err == nil:
		log.DebugContext(ctx, "admin user already present")
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, oops.Code("BOOTSTRAP_FAILED").With("operation", "look up admin").Wrap(err)
	}

	hash, err := d.Hasher.Hash(acct.Password)
	if err != nil {
		return false, oops.Code("BOOTSTRAP_FAILED").With("operation", "hash admin password").Wrap(err)
	}
	admin := &models.User{
		Username:   acct.Username,
		Email:      acct.Email,
		Password:   hash,
		Bio:        "Platform administrator account",
		Profession: "Platform Administrator",
		IsAdmin:    true,
	}
	if err := d.Store.CreateUser(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// 其他实例抢先创建了
			return false, nil
		}
		return false, oops.Code("BOOTSTRAP_FAILED").With("operation", "create admin").Wrap(err)
	}
	log.InfoContext(ctx, "admin user created", "id", admin.ID)
	return true, nil
}
