// Package database provides database access for the Edumate platform.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"edumate-api/internal/catalog"
	"edumate-api/internal/discovery"
	"edumate-api/internal/models"
)

// ProductRepository handles loan product catalog queries.
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id, lender_id, lender_name,
	interest_rate_min, interest_rate_max,
	max_loan_amount_secured, max_loan_amount_unsecured, processing_fee_percent,
	max_period_months, moratorium_months, prepayment_allowed,
	eligibility_criteria, collateral_security, special_features,
	satisfaction_rating, approval_time_days,
	created_at, updated_at, is_active`

// List returns one page of active products matching the descriptor, with
// pagination totals filled in. favoriteIDs restricts the result when the
// descriptor asks for favorites only; an empty favorites list then yields
// an empty page, which the UI treats as a normal empty state.
func (r *ProductRepository) List(ctx context.Context, d catalog.Descriptor, favoriteIDs []string) (*discovery.Result, error) {
	d.Pagination.Normalize()

	where, args := buildProductWhere(d, favoriteIDs)

	countQuery := "SELECT COUNT(*) FROM loan_products " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count loan products: %w", err)
	}

	orderBy := "created_at DESC"
	if col := d.Sort.Column(); col != "" {
		orderBy = col + " " + d.Sort.Direction() + ", id"
	}

	args = append(args, d.Pagination.Size, d.Pagination.Offset())
	query := fmt.Sprintf("SELECT %s FROM loan_products %s ORDER BY %s LIMIT $%d OFFSET $%d",
		productColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loan products: %w", err)
	}
	defer rows.Close()

	var products []*models.LoanProduct
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan product: %w", err)
		}
		products = append(products, product)
	}

	pagination := d.Pagination
	pagination.SetTotal(total)

	return &discovery.Result{Products: products, Pagination: pagination}, nil
}

// buildProductWhere translates the descriptor into a WHERE clause. The
// snake_case filter keys come straight from catalog.ApplyFilters, so a
// filter the user left unset never reaches the query.
func buildProductWhere(d catalog.Descriptor, favoriteIDs []string) (string, []interface{}) {
	clauses := []string{"is_active = true"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if d.Search != "" {
		p := arg("%" + d.Search + "%")
		clauses = append(clauses, "lender_name ILIKE "+p)
	}

	params := catalog.ApplyFilters(d.Filters)

	if v, ok := params["study_level"]; ok {
		p := arg(v)
		clauses = append(clauses, "(cardinality(study_levels) = 0 OR "+p+" = ANY(study_levels))")
	}
	if v, ok := params["school_name"]; ok {
		p := arg("%" + v + "%")
		clauses = append(clauses, "(cardinality(supported_schools) = 0 OR EXISTS (SELECT 1 FROM unnest(supported_schools) sc WHERE sc ILIKE "+p+"))")
	}
	if v, ok := params["program_name"]; ok {
		p := arg("%" + v + "%")
		clauses = append(clauses, "(cardinality(supported_programs) = 0 OR EXISTS (SELECT 1 FROM unnest(supported_programs) pr WHERE pr ILIKE "+p+"))")
	}
	if v, ok := params["intake_month"]; ok {
		p := arg(v)
		clauses = append(clauses, "(cardinality(intake_months) = 0 OR "+p+" = ANY(intake_months))")
	}
	if v, ok := params["intake_year"]; ok {
		// intake_years is a TEXT[] column, so the year binds as a string.
		p := arg(v)
		clauses = append(clauses, "(cardinality(intake_years) = 0 OR "+p+" = ANY(intake_years))")
	}

	// Amount-style filters all require the product to cover the figure.
	for _, amount := range []float64{
		d.Filters.LoanAmountMin,
		d.Filters.LoanAmountMax,
		d.Filters.TotalTuitionFee,
		d.Filters.CostOfLiving,
	} {
		if amount != 0 {
			p := arg(amount)
			clauses = append(clauses, "GREATEST(max_loan_amount_secured, max_loan_amount_unsecured) >= "+p)
		}
	}

	if d.ShowFavoritesOnly {
		p := arg(favoriteIDs)
		clauses = append(clauses, "id = ANY("+p+")")
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// GetByID retrieves a loan product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.LoanProduct, error) {
	query := "SELECT " + productColumns + " FROM loan_products WHERE id = $1"

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan product: %w", err)
	}

	return product, nil
}

// Deactivate marks a loan product as inactive.
func (r *ProductRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE loan_products SET is_active = false, updated_at = now() WHERE id = $1", id)
	return err
}

// scanProduct scans a row into an API-shaped LoanProduct.
func scanProduct(row pgx.Row) (*models.LoanProduct, error) {
	var product models.LoanProduct
	var ft models.FinancialTerms
	var rt models.RepaymentTerms
	var pm models.PerformanceMetrics

	err := row.Scan(
		&product.ID,
		&product.LenderID,
		&product.LenderName,
		&ft.InterestRateMin,
		&ft.InterestRateMax,
		&ft.MaxAmountSecured,
		&ft.MaxAmountUnsecured,
		&ft.ProcessingFeePercent,
		&rt.MaxPeriodMonths,
		&rt.MoratoriumMonths,
		&rt.PrepaymentAllowed,
		&product.EligibilityCriteria,
		&product.CollateralSecurity,
		&product.SpecialFeatures,
		&pm.SatisfactionRating,
		&pm.ApprovalTimeDays,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.IsActive,
	)
	if err != nil {
		return nil, err
	}

	product.FinancialTerms = &ft
	product.RepaymentTerms = &rt
	product.PerformanceMetrics = &pm
	return &product, nil
}
