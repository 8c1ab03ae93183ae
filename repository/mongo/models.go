package mongo

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"movierental/model"
)

// ==================== Catalog models ====================

type genreModel struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
}

type movieModel struct {
	ID              string     `bson:"_id"`
	Title           string     `bson:"title"`
	Genre           genreModel `bson:"genre"`
	NumberInStock   int        `bson:"numberInStock"`
	DailyRentalRate float64    `bson:"dailyRentalRate"`
	Rev             int64      `bson:"rev"`
}

func toGenreModel(g *model.Genre) genreModel {
	return genreModel{ID: g.ID.String(), Name: g.Name}
}

func fromGenreModel(m *genreModel) (*model.Genre, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &model.Genre{ID: id, Name: m.Name}, nil
}

func toMovieModel(m *model.Movie) movieModel {
	return movieModel{
		ID:              m.ID.String(),
		Title:           m.Title,
		Genre:           genreModel{ID: m.Genre.ID.String(), Name: m.Genre.Name},
		NumberInStock:   m.NumberInStock,
		DailyRentalRate: m.DailyRentalRate,
	}
}

func fromMovieModel(m *movieModel) (*model.Movie, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	gid, err := uuid.Parse(m.Genre.ID)
	if err != nil {
		return nil, err
	}
	return &model.Movie{
		ID:              id,
		Title:           m.Title,
		Genre:           model.GenreRef{ID: gid, Name: m.Genre.Name},
		NumberInStock:   m.NumberInStock,
		DailyRentalRate: m.DailyRentalRate,
	}, nil
}

// ==================== Customer models ====================

type customerModel struct {
	ID     string `bson:"_id"`
	Name   string `bson:"name"`
	Phone  string `bson:"phone"`
	IsGold bool   `bson:"isGold"`
}

func toCustomerModel(c *model.Customer) customerModel {
	return customerModel{ID: c.ID.String(), Name: c.Name, Phone: c.Phone, IsGold: c.IsGold}
}

func fromCustomerModel(m *customerModel) (*model.Customer, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &model.Customer{ID: id, Name: m.Name, Phone: m.Phone, IsGold: m.IsGold}, nil
}

// ==================== User models ====================

type userModel struct {
	ID       string    `bson:"_id"`
	Name     string    `bson:"name"`
	Email    string    `bson:"email"`
	EmailKey string    `bson:"emailKey"`
	Password string    `bson:"password"`
	IsAdmin  bool      `bson:"isAdmin"`
	Created  time.Time `bson:"createdAt"`
}

func toUserModel(u *model.User) userModel {
	return userModel{
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		EmailKey: strings.ToLower(u.Email),
		Password: u.PasswordHash,
		IsAdmin:  u.IsAdmin,
		Created:  u.CreatedAt,
	}
}

func fromUserModel(m *userModel) (*model.User, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:           id,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.Password,
		IsAdmin:      m.IsAdmin,
		CreatedAt:    m.Created.UTC(),
	}, nil
}

// ==================== Rental models ====================

type customerSnapshotModel struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
}

type movieSnapshotModel struct {
	ID              string  `bson:"_id"`
	Title           string  `bson:"title"`
	DailyRentalRate float64 `bson:"dailyRentalRate"`
}

type rentalModel struct {
	ID           string                `bson:"_id"`
	Customer     customerSnapshotModel `bson:"customer"`
	Movie        movieSnapshotModel    `bson:"movie"`
	DateOut      time.Time             `bson:"dateOut"`
	DateReturned *time.Time            `bson:"dateReturned,omitempty"`
	RentalFee    *float64              `bson:"rentalFee,omitempty"`
}

func toRentalModel(r *model.Rental) rentalModel {
	return rentalModel{
		ID:           r.ID.String(),
		Customer:     customerSnapshotModel{ID: r.Customer.ID.String(), Name: r.Customer.Name, Phone: r.Customer.Phone},
		Movie:        movieSnapshotModel{ID: r.Movie.ID.String(), Title: r.Movie.Title, DailyRentalRate: r.Movie.DailyRentalRate},
		DateOut:      r.DateOut,
		DateReturned: r.DateReturned,
		RentalFee:    r.RentalFee,
	}
}

func fromRentalModel(m *rentalModel) (*model.Rental, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	cid, err := uuid.Parse(m.Customer.ID)
	if err != nil {
		return nil, err
	}
	mid, err := uuid.Parse(m.Movie.ID)
	if err != nil {
		return nil, err
	}
	r := &model.Rental{
		ID:        id,
		Customer:  model.CustomerSnapshot{ID: cid, Name: m.Customer.Name, Phone: m.Customer.Phone},
		Movie:     model.MovieSnapshot{ID: mid, Title: m.Movie.Title, DailyRentalRate: m.Movie.DailyRentalRate},
		DateOut:   m.DateOut.UTC(),
		RentalFee: m.RentalFee,
	}
	if m.DateReturned != nil {
		t := m.DateReturned.UTC()
		r.DateReturned = &t
	}
	return r, nil
}
