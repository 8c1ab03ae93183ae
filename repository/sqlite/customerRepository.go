package sqlite

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"movierental/model"
)

const tableCustomers = "customers"

type customerRow struct {
	ID     uuid.UUID `db:"id"`
	Name   string    `db:"name"`
	Phone  string    `db:"phone"`
	IsGold bool      `db:"is_gold"`
}

var customerCols = []any{"id", "name", "phone", "is_gold"}

func (r customerRow) toModel() model.Customer {
	return model.Customer{ID: r.ID, Name: r.Name, Phone: r.Phone, IsGold: r.IsGold}
}

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var rows []customerRow
	ds := s.dialect.From(tableCustomers).Select(customerCols...).Order(goqu.C("name").Asc()).Prepared(true)
	if err := getAll(ctx, s.db, &rows, ds); err != nil {
		return nil, err
	}
	out := make([]model.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) findCustomer(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error) {
	var row customerRow
	ds := s.dialect.From(tableCustomers).Select(customerCols...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := getOne(ctx, q, &row, ds); err != nil {
		return nil, err
	}
	c := row.toModel()
	return &c, nil
}

func (s *Store) FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return s.findCustomer(ctx, s.db, id)
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	ds := s.dialect.Insert(tableCustomers).Rows(goqu.Record{
		"id":      c.ID,
		"name":    c.Name,
		"phone":   c.Phone,
		"is_gold": c.IsGold,
	}).Prepared(true)
	_, err := exec(ctx, s.db, ds)
	return err
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	ds := s.dialect.Update(tableCustomers).Set(goqu.Record{
		"name":    c.Name,
		"phone":   c.Phone,
		"is_gold": c.IsGold,
	}).Where(goqu.C("id").Eq(c.ID)).Prepared(true)
	return execOne(ctx, s.db, ds)
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var out *model.Customer
	err := s.inTx(ctx, func(tx sqlx.ExtContext) error {
		c, err := s.findCustomer(ctx, tx, id)
		if err != nil {
			return err
		}
		out = c
		return execOne(ctx, tx, s.dialect.Delete(tableCustomers).Where(goqu.C("id").Eq(id)).Prepared(true))
	})
	return out, err
}
