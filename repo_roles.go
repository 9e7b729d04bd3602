package authcore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type roles struct {
	repo repository.Repository[*Role]
	db   *bun.DB
}

var _ RoleStore = (*roles)(nil)

// NewRolesRepository creates the bun-backed role store.
func NewRolesRepository(db *bun.DB) RoleStore {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{repo: repo, db: db}
}

func (a *roles) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	record := &Role{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	record := &Role{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}

// GetByIDs resolves role refs in bulk. Refs pointing at deleted roles are
// simply absent from the result.
func (a *roles) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []*Role
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return records, nil
}

func (a *roles) Create(ctx context.Context, role *Role) (*Role, error) {
	return a.repo.CreateTx(ctx, a.db, role)
}

func (a *roles) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewDelete().
		Model((*Role)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	return err
}
