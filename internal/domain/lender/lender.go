package lender

import (
	"context"
	"time"
)

// Lender is the initiating party of an interview, identified by chat phone.
type Lender struct {
	ID        int64
	Phone     string
	Name      string
	CreatedAt time.Time
}

type Repository interface {
	FindByPhone(ctx context.Context, phone string) (*Lender, error)
	FindByID(ctx context.Context, lenderID int64) (*Lender, error)
	// Save inserts the lender, or returns the existing row when the phone
	// is already registered. ID and CreatedAt are filled in.
	Save(ctx context.Context, l *Lender) error
}
