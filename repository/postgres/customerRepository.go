package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"movierental/model"
	"movierental/repository"
)

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.IsGold); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	const q = `
		SELECT id, name, phone, is_gold
		FROM customers
		ORDER BY name`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return scanCustomer(s.pool.QueryRow(ctx, `SELECT id, name, phone, is_gold FROM customers WHERE id = $1`, id))
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	const q = `INSERT INTO customers (id, name, phone, is_gold) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, q, c.ID, c.Name, c.Phone, c.IsGold)
	return mapErr(err)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	const q = `
		UPDATE customers
		SET name = $2, phone = $3, is_gold = $4
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, c.ID, c.Name, c.Phone, c.IsGold)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	const q = `DELETE FROM customers WHERE id = $1 RETURNING id, name, phone, is_gold`
	return scanCustomer(s.pool.QueryRow(ctx, q, id))
}
