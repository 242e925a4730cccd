package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/models"
)

// Taxonomy tables are flat id/name lookups seeded by admins; the storefront
// only ever lists them.

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Taxon, error) {
	return listTaxons(ctx, db, "categories")
}

func ListAgeGroups(ctx context.Context, db *sql.DB) ([]models.Taxon, error) {
	return listTaxons(ctx, db, "age_groups")
}

func ListGenders(ctx context.Context, db *sql.DB) ([]models.Taxon, error) {
	return listTaxons(ctx, db, "genders")
}

func ListColors(ctx context.Context, db *sql.DB) ([]models.Taxon, error) {
	return listTaxons(ctx, db, "colors")
}

func ListMaterials(ctx context.Context, db *sql.DB) ([]models.Taxon, error) {
	return listTaxons(ctx, db, "materials")
}

// ListSubCategories optionally filters by parent category; categoryID 0 means
// all.
func ListSubCategories(ctx context.Context, db *sql.DB, categoryID int64) ([]models.SubCategory, error) {
	query := `SELECT id, category_id, name FROM sub_categories ORDER BY name`
	args := []interface{}{}
	if categoryID != 0 {
		query = `SELECT id, category_id, name FROM sub_categories WHERE category_id = $1 ORDER BY name`
		args = append(args, categoryID)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sub categories: %w", err)
	}
	defer rows.Close()

	var subs []models.SubCategory
	for rows.Next() {
		var sub models.SubCategory
		if err := rows.Scan(&sub.ID, &sub.CategoryID, &sub.Name); err != nil {
			return nil, fmt.Errorf("scan sub category: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return subs, nil
}

// table is always one of the fixed names above, never caller input.
func listTaxons(ctx context.Context, db *sql.DB, table string) ([]models.Taxon, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var taxons []models.Taxon
	for rows.Next() {
		var taxon models.Taxon
		if err := rows.Scan(&taxon.ID, &taxon.Name); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		taxons = append(taxons, taxon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return taxons, nil
}
