package authcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ UserStore = (*users)(nil)

// NewUsersRepository creates the bun-backed user store.
func NewUsersRepository(db *bun.DB) UserStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{repo: repo, db: db}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}

	// Email is the unique, case-sensitive key.
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return record, nil
}

// GetByClientID enforces global client id uniqueness: zero owners map to
// not-found, more than one is reported as corruption via
// ErrAmbiguousClientID. Grants live in a serialized column, so candidates
// are narrowed with a substring match and confirmed in Go.
func (a *users) GetByClientID(ctx context.Context, clientID string) (*User, error) {
	var candidates []*User

	pattern := fmt.Sprintf(`%%"client_id":"%s"%%`, clientID)
	err := a.db.NewSelect().
		Model(&candidates).
		Where("?TableAlias.api_keys LIKE ?", pattern).
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var owners []*User
	for _, candidate := range candidates {
		if _, ok := candidate.APIKey(clientID); ok {
			owners = append(owners, candidate)
		}
	}

	switch len(owners) {
	case 0:
		return nil, ErrIdentityNotFound
	case 1:
		return owners[0], nil
	default:
		return nil, ErrAmbiguousClientID
	}
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.repo.CreateTx(ctx, a.db, user)
}

func (a *users) Save(ctx context.Context, user *User) error {
	_, err := a.repo.UpdateTx(ctx, a.db, user, repository.UpdateByID(user.ID.String()))
	return err
}

func (a *users) RecordLogin(ctx context.Context, user *User, event LoginEvent) error {
	user.LogLogin(event)

	_, err := a.db.NewUpdate().
		Model(user).
		Column("last_login").
		WherePK().
		Exec(ctx)

	return err
}

func (a *users) FindByRoleRef(ctx context.Context, roleID uuid.UUID) ([]*User, error) {
	var candidates []*User

	pattern := fmt.Sprintf("%%%s%%", roleID.String())
	err := a.db.NewSelect().
		Model(&candidates).
		Where("?TableAlias.role_refs LIKE ?", pattern).
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var holders []*User
	for _, candidate := range candidates {
		if candidate.HasRoleRef(roleID) {
			holders = append(holders, candidate)
		}
	}

	return holders, nil
}
