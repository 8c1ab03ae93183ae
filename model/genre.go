package model

import "github.com/google/uuid"

type Genre struct {
	ID   uuid.UUID `json:"_id"`
	Name string    `json:"name"`
}

// GenreReq is the create/update payload for a genre.
type GenreReq struct {
	Name string `json:"name" validate:"required,min=5,max=50"`
}
