package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/buku-api/internal/domain/entity"
	"github.com/jhoicas/buku-api/internal/domain/repository"
)

// Asegura que BusinessProfileRepo implementa repository.BusinessProfileRepository.
var _ repository.BusinessProfileRepository = (*BusinessProfileRepo)(nil)

// BusinessProfileRepo implementación del puerto BusinessProfileRepository sobre PostgreSQL.
type BusinessProfileRepo struct {
	q Querier
}

// NewBusinessProfileRepository construye el adaptador de persistencia para el perfil del emisor.
func NewBusinessProfileRepository(q Querier) *BusinessProfileRepo {
	return &BusinessProfileRepo{q: q}
}

// GetByCompany obtiene el perfil de la empresa; nil, nil si no existe.
func (r *BusinessProfileRepo) GetByCompany(ctx context.Context, companyID string) (*entity.BusinessProfile, error) {
	const query = `
		SELECT id, company_id, legal_name, tin,
		       COALESCE(id_type, ''), COALESCE(id_value, ''), COALESCE(sst_number, ''),
		       COALESCE(msic_code, ''), COALESCE(business_activity, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address_line1, ''), COALESCE(address_line2, ''), COALESCE(city, ''),
		       COALESCE(postal_code, ''), COALESCE(state_code, ''), COALESCE(country_code, ''),
		       COALESCE(bank_account_number, ''), COALESCE(tax_type_code, ''),
		       created_at, updated_at
		FROM business_profiles WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	var p entity.BusinessProfile
	err := r.q.QueryRow(ctx, query, companyID).Scan(
		&p.ID, &p.CompanyID, &p.LegalName, &p.TIN,
		&p.IDType, &p.IDValue, &p.SSTNumber,
		&p.MSICCode, &p.BusinessActivity,
		&p.Email, &p.Phone,
		&p.AddressLine1, &p.AddressLine2, &p.City,
		&p.PostalCode, &p.StateCode, &p.CountryCode,
		&p.BankAccountNumber, &p.TaxTypeCode,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business_profile: %w", err)
	}
	return &p, nil
}
