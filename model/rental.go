// model/rental.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// CustomerSnapshot is the customer as it was when the rental was created.
type CustomerSnapshot struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

// MovieSnapshot is the movie as it was when the rental was created.
type MovieSnapshot struct {
	ID              uuid.UUID `json:"_id"`
	Title           string    `json:"title"`
	DailyRentalRate float64   `json:"dailyRentalRate"`
}

type Rental struct {
	ID           uuid.UUID        `json:"_id"`
	Customer     CustomerSnapshot `json:"customer"`
	Movie        MovieSnapshot    `json:"movie"`
	DateOut      time.Time        `json:"dateOut"`
	DateReturned *time.Time       `json:"dateReturned,omitempty"`
	RentalFee    *float64         `json:"rentalFee,omitempty"`
}

// NewRental copies the customer and movie fields into an open rental.
func NewRental(id uuid.UUID, c Customer, m Movie, dateOut time.Time) *Rental {
	return &Rental{
		ID: id,
		Customer: CustomerSnapshot{
			ID:    c.ID,
			Name:  c.Name,
			Phone: c.Phone,
		},
		Movie: MovieSnapshot{
			ID:              m.ID,
			Title:           m.Title,
			DailyRentalRate: m.DailyRentalRate,
		},
		DateOut: dateOut,
	}
}

// IsOpen reports whether the rental has not been returned yet.
func (r *Rental) IsOpen() bool { return r.DateReturned == nil }

// Clone returns a deep copy; the nullable fields do not share storage.
func (r Rental) Clone() Rental {
	out := r
	if r.DateReturned != nil {
		t := *r.DateReturned
		out.DateReturned = &t
	}
	if r.RentalFee != nil {
		f := *r.RentalFee
		out.RentalFee = &f
	}
	return out
}

// RentalReq is the payload of both checkout and return.
type RentalReq struct {
	CustomerID string `json:"customerId" validate:"required,uuid"`
	MovieID    string `json:"movieId" validate:"required,uuid"`
}
