package sqlite

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"movierental/model"
)

const tableUsers = "users"

type userRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    int64     `db:"created_at"`
}

var userCols = []any{"id", "name", "email", "password_hash", "is_admin", "created_at"}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	ds := s.dialect.Insert(tableUsers).Rows(goqu.Record{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"is_admin":      u.IsAdmin,
		"created_at":    u.CreatedAt.UnixMilli(),
	}).Prepared(true)
	_, err := exec(ctx, s.db, ds)
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	ds := s.dialect.From(tableUsers).Select(userCols...).
		Where(goqu.L("email = ? COLLATE NOCASE", email)).
		Prepared(true)
	if err := getOne(ctx, s.db, &row, ds); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var row userRow
	ds := s.dialect.From(tableUsers).Select(userCols...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := getOne(ctx, s.db, &row, ds); err != nil {
		return nil, err
	}
	return row.toModel(), nil
}
