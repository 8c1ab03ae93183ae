package model

import "github.com/google/uuid"

type Customer struct {
	ID     uuid.UUID `json:"_id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	IsGold bool      `json:"isGold"`
}

type CustomerReq struct {
	Name   string `json:"name" validate:"required,min=5,max=50"`
	Phone  string `json:"phone" validate:"required,min=5,max=50"`
	IsGold bool   `json:"isGold"`
}
