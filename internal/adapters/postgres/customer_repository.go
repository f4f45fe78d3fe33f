package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
)

// CustomerRepository implements the read-only customer store port
type CustomerRepository struct {
	db dports.DBPort
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db dports.DBPort) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetCustomer returns the customer profile
func (r *CustomerRepository) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer

	err := r.db.GetDB().QueryRow(ctx, `
		SELECT id, first_name, last_name, email
		FROM customers WHERE id = $1`, id,
	).Scan(&customer.ID, &customer.FirstName, &customer.LastName, &customer.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeCustomerNotFound, "customer not found")
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get customer", err)
	}

	return &customer, nil
}

// GetBillingAddress returns the stored billing address; customers without
// one get a zero address so every outbound request carries a full block
func (r *CustomerRepository) GetBillingAddress(ctx context.Context, id string) (models.Address, error) {
	address, _, err := r.getAddress(ctx, id, "billing")
	return address, err
}

// GetShippingAddress returns the stored shipping address and whether one
// exists
func (r *CustomerRepository) GetShippingAddress(ctx context.Context, id string) (models.Address, bool, error) {
	return r.getAddress(ctx, id, "shipping")
}

func (r *CustomerRepository) getAddress(ctx context.Context, id, kind string) (models.Address, bool, error) {
	var address models.Address

	err := r.db.GetDB().QueryRow(ctx, `
		SELECT first_name, last_name, company_name, address1, address2,
		       city, state, zip, country, phone
		FROM addresses WHERE customer_id = $1 AND kind = $2`, id, kind,
	).Scan(
		&address.FirstName, &address.LastName, &address.CompanyName,
		&address.Address1, &address.Address2, &address.City, &address.State,
		&address.Zip, &address.Country, &address.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Address{}, false, nil
		}
		return models.Address{}, false, domain.WrapError(domain.ErrorCodeDatabaseError, "get address", err)
	}

	return address, true, nil
}
