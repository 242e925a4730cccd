package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SellerID      int64
	Title         string
	Description   string
	Price         decimal.Decimal
	Condition     string
	Status        string
	CategoryID    int64
	SubCategoryID *int64
	AgeGroupID    int64
	GenderID      int64
	ColorID       int64
	MaterialID    *int64
	ImageURLs     []string
}

// CreateProduct inserts the listing and its images in one transaction. The
// first image is marked primary.
func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if !models.ValidCondition(req.Condition) {
		return nil, fmt.Errorf("condition %q: %w", req.Condition, database.ErrInvalidCondition)
	}
	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}
	if !models.ValidProductStatus(status) || status == models.ProductStatusSold {
		return nil, fmt.Errorf("status %q: %w", status, database.ErrInvalidProductStatus)
	}

	product := &models.Product{
		SellerID:      req.SellerID,
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		Condition:     req.Condition,
		Status:        status,
		CategoryID:    req.CategoryID,
		SubCategoryID: req.SubCategoryID,
		AgeGroupID:    req.AgeGroupID,
		GenderID:      req.GenderID,
		ColorID:       req.ColorID,
		MaterialID:    req.MaterialID,
	}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO products (seller_id, title, description, price, condition, status,
			                       category_id, sub_category_id, age_group_id, gender_id, color_id, material_id,
			                       created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			 RETURNING id, created_at, updated_at`,
			req.SellerID, req.Title, req.Description, req.Price, req.Condition, status,
			req.CategoryID, req.SubCategoryID, req.AgeGroupID, req.GenderID, req.ColorID, req.MaterialID).Scan(
			&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		for i, url := range req.ImageURLs {
			img := models.ProductImage{
				ProductID: product.ID,
				ImageURL:  url,
				IsPrimary: i == 0,
			}
			err := tx.QueryRowContext(ctx,
				`INSERT INTO product_images (product_id, image_url, is_primary)
				 VALUES ($1, $2, $3)
				 RETURNING id`,
				product.ID, url, img.IsPrimary).Scan(&img.ID)
			if err != nil {
				return fmt.Errorf("create product image: %w", err)
			}
			product.Images = append(product.Images, img)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{Seller: &models.UserSummary{}}

	var sellerName, sellerMobile sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT p.id, p.seller_id, p.title, p.description, p.price, p.condition, p.status,
		        p.category_id, p.sub_category_id, p.age_group_id, p.gender_id, p.color_id, p.material_id,
		        p.created_at, p.updated_at,
		        c.name, u.name, u.mobile
		 FROM products p
		 JOIN categories c ON c.id = p.category_id
		 JOIN users u ON u.id = p.seller_id
		 WHERE p.id = $1`,
		id).Scan(
		&product.ID,
		&product.SellerID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Condition,
		&product.Status,
		&product.CategoryID,
		&product.SubCategoryID,
		&product.AgeGroupID,
		&product.GenderID,
		&product.ColorID,
		&product.MaterialID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.CategoryName,
		&sellerName,
		&sellerMobile,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	product.Seller.ID = product.SellerID
	product.Seller.Name = sellerName.String
	product.Seller.Mobile = sellerMobile.String

	images, err := productImages(ctx, db, product.ID)
	if err != nil {
		return nil, err
	}
	product.Images = images

	return product, nil
}

// ListActiveProducts is the public storefront listing, newest-first.
func ListActiveProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE status = $1`,
		models.ProductStatusActive).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT p.id, p.seller_id, p.title, p.description, p.price, p.condition, p.status,
		        p.category_id, p.sub_category_id, p.age_group_id, p.gender_id, p.color_id, p.material_id,
		        p.created_at, p.updated_at, c.name
		 FROM products p
		 JOIN categories c ON c.id = p.category_id
		 WHERE p.status = $1
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT $2 OFFSET $3`,
		models.ProductStatusActive, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.SellerID,
			&product.Title,
			&product.Description,
			&product.Price,
			&product.Condition,
			&product.Status,
			&product.CategoryID,
			&product.SubCategoryID,
			&product.AgeGroupID,
			&product.GenderID,
			&product.ColorID,
			&product.MaterialID,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range products {
		images, err := productImages(ctx, db, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Images = images
	}

	return NewOffsetPage(products, total, page, pageSize), nil
}

// SetProductStatus is the admin approve/reject operation. Sold is reserved
// for checkout and cannot be set here.
func SetProductStatus(ctx context.Context, db *sql.DB, productID int64, status string) error {
	if !models.ValidProductStatus(status) || status == models.ProductStatusSold {
		return fmt.Errorf("status %q: %w", status, database.ErrInvalidProductStatus)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, productID)
	if err != nil {
		return fmt.Errorf("set product status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// UpdateProductPrice reprices an owner's listing. It takes the same row lock
// as checkout, so a reprice cannot slip between checkout's validation and
// commit; sold products are immutable.
func UpdateProductPrice(ctx context.Context, db *sql.DB, productID, sellerID int64, price decimal.Decimal) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		status, err := lockProduct(ctx, tx, productID, sellerID)
		if err != nil {
			return err
		}
		if status == models.ProductStatusSold {
			return database.ErrProductSold
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET price = $1, updated_at = NOW() WHERE id = $2`,
			price, productID); err != nil {
			return fmt.Errorf("update price: %w", err)
		}

		return nil
	})
}

// DeleteProduct removes an owner's listing while it is still pending or
// active. Image rows and stale cart references are deleted explicitly in the
// same transaction; there is no database-level cascade.
func DeleteProduct(ctx context.Context, db *sql.DB, productID, sellerID int64) error {
	return database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		status, err := lockProduct(ctx, tx, productID, sellerID)
		if err != nil {
			return err
		}
		if status == models.ProductStatusSold {
			return database.ErrProductSold
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM product_images WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("delete product images: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("delete cart references: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM products WHERE id = $1`, productID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}

		return nil
	})
}

// lockProduct takes the product row lock used by checkout and verifies
// ownership. Blocks until any in-flight checkout holding the row commits.
func lockProduct(ctx context.Context, tx *sql.Tx, productID, sellerID int64) (string, error) {
	var ownerID int64
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT seller_id, status FROM products WHERE id = $1 FOR UPDATE`,
		productID).Scan(&ownerID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", database.ErrProductNotFound
		}
		return "", fmt.Errorf("lock product: %w", err)
	}
	if ownerID != sellerID {
		return "", database.ErrNotProductOwner
	}
	return status, nil
}

func productImages(ctx context.Context, db *sql.DB, productID int64) ([]models.ProductImage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, image_url, is_primary
		 FROM product_images
		 WHERE product_id = $1
		 ORDER BY is_primary DESC, id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("get product images: %w", err)
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return images, nil
}
