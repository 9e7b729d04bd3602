package authcore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type magicLinks struct {
	repo repository.Repository[*MagicLink]
	db   *bun.DB
}

var _ MagicLinkStore = (*magicLinks)(nil)

// NewMagicLinksRepository creates the bun-backed magic link store.
func NewMagicLinksRepository(db *bun.DB) MagicLinkStore {
	repo := repository.NewRepository[*MagicLink](db, repository.ModelHandlers[*MagicLink]{
		NewRecord: func() *MagicLink { return &MagicLink{} },
		GetID: func(l *MagicLink) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.Nonce
		},
		SetID: func(l *MagicLink, id uuid.UUID) {
			if l != nil {
				l.Nonce = id
			}
		},
		GetIdentifier: func() string {
			return "identifier"
		},
	})

	return &magicLinks{repo: repo, db: db}
}

func (a *magicLinks) Create(ctx context.Context, link *MagicLink) error {
	_, err := a.repo.CreateTx(ctx, a.db, link)
	return err
}

// Consume flips the consumed flag with a conditional update so that two
// concurrent consumptions of one nonce produce exactly one success. The
// losing writer matches zero rows and is classified by a follow-up read.
func (a *magicLinks) Consume(ctx context.Context, nonce uuid.UUID) (*MagicLink, error) {
	now := time.Now().UTC()

	res, err := a.db.NewUpdate().
		Model((*MagicLink)(nil)).
		Set("consumed = ?", true).
		Set("consumed_at = ?", now).
		Where("?TableAlias.nonce = ?", nonce).
		Where("?TableAlias.consumed = ?", false).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	record := &MagicLink{}
	findErr := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.nonce = ?", nonce).
		Limit(1).
		Scan(ctx)

	if affected == 0 {
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, ErrMagicLinkNotFound
			}
			return nil, findErr
		}
		return nil, ErrAlreadyConsumed
	}

	if findErr != nil {
		return nil, findErr
	}

	return record, nil
}
