package repository

import (
	"context"

	"github.com/jhoicas/buku-api/internal/domain/entity"
)

// BusinessProfileRepository lectura del perfil del emisor de una empresa.
type BusinessProfileRepository interface {
	GetByCompany(ctx context.Context, companyID string) (*entity.BusinessProfile, error)
}
