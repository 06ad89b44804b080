package repository

import (
	"context"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// CustomerRepository lectura de la contraparte de un documento.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
