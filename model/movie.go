package model

import "github.com/google/uuid"

// GenreRef is the genre copy embedded in a movie.
type GenreRef struct {
	ID   uuid.UUID `json:"_id"`
	Name string    `json:"name"`
}

type Movie struct {
	ID              uuid.UUID `json:"_id"`
	Title           string    `json:"title"`
	Genre           GenreRef  `json:"genre"`
	NumberInStock   int       `json:"numberInStock"`
	DailyRentalRate float64   `json:"dailyRentalRate"`
}

// MovieReq is the create/update payload for a movie. Numeric fields are
// pointers so that an explicit zero passes the required check.
type MovieReq struct {
	Title           string   `json:"title" validate:"required,min=5,max=255"`
	GenreID         string   `json:"genreId" validate:"required,uuid"`
	NumberInStock   *int     `json:"numberInStock" validate:"required,gte=0,lte=255"`
	DailyRentalRate *float64 `json:"dailyRentalRate" validate:"required,gte=0,lte=255"`
}
