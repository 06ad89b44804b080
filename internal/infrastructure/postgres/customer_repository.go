package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	const query = `
		SELECT id, company_id, name,
		       COALESCE(tin, ''), COALESCE(id_type, ''), COALESCE(id_value, ''), COALESCE(sst_number, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address_line1, ''), COALESCE(address_line2, ''), COALESCE(city, ''),
		       COALESCE(postal_code, ''), COALESCE(state_code, ''), COALESCE(country_code, ''),
		       created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name,
		&c.TIN, &c.IDType, &c.IDValue, &c.SSTNumber,
		&c.Email, &c.Phone,
		&c.AddressLine1, &c.AddressLine2, &c.City,
		&c.PostalCode, &c.StateCode, &c.CountryCode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}
