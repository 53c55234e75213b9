package model

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func NewUserID() UserID {
	id, _ := uuid.NewRandom()
	return UserID(base58.Encode(id[:]))
}
