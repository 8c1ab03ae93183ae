package customersvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"movierental/model"
	"movierental/repository"
)

var ErrNotFound = errors.New("customer not found")

type Service interface {
	List(ctx context.Context) ([]model.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	Create(ctx context.Context, req model.CustomerReq) (*model.Customer, error)
	Update(ctx context.Context, id uuid.UUID, req model.CustomerReq) (*model.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) (*model.Customer, error)
}

var _ Service = (*Registry)(nil)

type Registry struct {
	r     repository.CustomerStore
	newID func() uuid.UUID
}

func New(r repository.CustomerStore) *Registry { return &Registry{r: r, newID: uuid.New} }

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Registry) List(ctx context.Context) ([]model.Customer, error) { return s.r.ListCustomers(ctx) }

func (s *Registry) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, err := s.r.FindCustomer(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (s *Registry) Create(ctx context.Context, req model.CustomerReq) (*model.Customer, error) {
	c := &model.Customer{ID: s.newID(), Name: req.Name, Phone: req.Phone, IsGold: req.IsGold}
	if err := s.r.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *Registry) Update(ctx context.Context, id uuid.UUID, req model.CustomerReq) (*model.Customer, error) {
	c := &model.Customer{ID: id, Name: req.Name, Phone: req.Phone, IsGold: req.IsGold}
	if err := s.r.UpdateCustomer(ctx, c); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

func (s *Registry) Delete(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, err := s.r.DeleteCustomer(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}
