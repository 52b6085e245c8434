package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// Product statuses.  Inactive products stay owned and orderable history
// intact but drop out of the public catalog.
const (
    ProductActive   = "active"
    ProductInactive = "inactive"
)

// Product mirrors the 'products' table.  Stock is the only field with a
// hard invariant: it never goes negative, enforced by the conditional
// reserve statement rather than by application-level reads.
type Product struct {
    ID          uint64          `json:"id"`
    Name        string          `json:"name"`
    Description string          `json:"description"`
    Price       decimal.Decimal `json:"price"`
    Stock       uint32          `json:"stock"`
    Unit        string          `json:"unit"`
    Image       string          `json:"image"`
    FarmerID    uint64          `json:"farmer_id"`
    Status      string          `json:"status"`
    CreatedAt   time.Time       `json:"created_at"`
    UpdatedAt   time.Time       `json:"updated_at"`
}

// CatalogItem is a product joined with its farmer's public identity, the
// shape served by the public catalog listing.
type CatalogItem struct {
    Product
    FarmerName  string `json:"farmer_name"`
    FarmerEmail string `json:"farmer_email"`
}

// ProductUpdate carries an optional-field patch for a product.  Nil fields
// are left untouched; the update is a merge, not a replace.
type ProductUpdate struct {
    Price  *decimal.Decimal `json:"price"`
    Stock  *uint32          `json:"stock"`
    Status *string          `json:"status"`
}

type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productCols = "id,name,description,price,stock,unit,image,farmer_id,status,created_at,updated_at"

// Create inserts a product for a farmer and returns the stored row.
func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
    if p.Unit == "" {
        p.Unit = "kg"
    }
    if p.Status == "" {
        p.Status = ProductActive
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO products (name, description, price, stock, unit, image, farmer_id, status) VALUES (?,?,?,?,?,?,?,?)",
        p.Name, p.Description, p.Price, p.Stock, p.Unit, p.Image, p.FarmerID, p.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    // Read the row back so timestamps come from the database, not the app.
    return r.DB.QueryRowContext(ctx,
        "SELECT "+productCols+" FROM products WHERE id=?", p.ID).
        Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Unit, &p.Image,
            &p.FarmerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID fetches a product regardless of owner.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (Product, error) {
    var p Product
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+productCols+" FROM products WHERE id=? LIMIT 1", id).
        Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Unit, &p.Image,
            &p.FarmerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
    if err == sql.ErrNoRows {
        return p, ErrProductNotFound
    }
    return p, err
}

// GetByIDForFarmer fetches a product only when the given farmer owns it.
// Rows owned by someone else surface as ErrProductNotFound.
func (r *ProductRepo) GetByIDForFarmer(ctx context.Context, id, farmerID uint64) (Product, error) {
    var p Product
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+productCols+" FROM products WHERE id=? AND farmer_id=? LIMIT 1", id, farmerID).
        Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Unit, &p.Image,
            &p.FarmerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
    if err == sql.ErrNoRows {
        return p, ErrProductNotFound
    }
    return p, err
}

// ListActive returns all active products, newest first, with the owning
// farmer's public identity joined in for the catalog.
func (r *ProductRepo) ListActive(ctx context.Context) ([]CatalogItem, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT p.id,p.name,p.description,p.price,p.stock,p.unit,p.image,p.farmer_id,p.status,p.created_at,p.updated_at,
                u.name,u.email
         FROM products p
         JOIN users u ON u.id = p.farmer_id
         WHERE p.status = ?
         ORDER BY p.created_at DESC`, ProductActive)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    items := make([]CatalogItem, 0)
    for rows.Next() {
        var it CatalogItem
        if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Stock, &it.Unit,
            &it.Image, &it.FarmerID, &it.Status, &it.CreatedAt, &it.UpdatedAt,
            &it.FarmerName, &it.FarmerEmail); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    return items, rows.Err()
}

// ListByFarmer returns every product owned by the farmer, newest first.
func (r *ProductRepo) ListByFarmer(ctx context.Context, farmerID uint64) ([]Product, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+productCols+" FROM products WHERE farmer_id=? ORDER BY created_at DESC", farmerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    items := make([]Product, 0)
    for rows.Next() {
        var p Product
        if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Unit, &p.Image,
            &p.FarmerID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
            return nil, err
        }
        items = append(items, p)
    }
    return items, rows.Err()
}

// UpdateFields applies a partial update to a product, scoped to its owning
// farmer.  Only the supplied fields are written.  Returns the updated row,
// or ErrProductNotFound when the product does not exist or is not owned by
// the farmer.
func (r *ProductRepo) UpdateFields(ctx context.Context, id, farmerID uint64, upd ProductUpdate) (Product, error) {
    sets := make([]string, 0, 3)
    args := make([]interface{}, 0, 5)
    if upd.Price != nil {
        sets = append(sets, "price=?")
        args = append(args, *upd.Price)
    }
    if upd.Stock != nil {
        sets = append(sets, "stock=?")
        args = append(args, *upd.Stock)
    }
    if upd.Status != nil {
        sets = append(sets, "status=?")
        args = append(args, *upd.Status)
    }
    if len(sets) > 0 {
        // Ownership lives in the WHERE clause so the statement itself is the
        // authorization check.
        args = append(args, id, farmerID)
        if _, err := r.DB.ExecContext(ctx,
            "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id=? AND farmer_id=?",
            args...); err != nil {
            return Product{}, err
        }
    }
    return r.GetByIDForFarmer(ctx, id, farmerID)
}

// Delete removes a product owned by the farmer.  ErrProductNotFound covers
// both a missing row and one owned by someone else.
func (r *ProductRepo) Delete(ctx context.Context, id, farmerID uint64) error {
    res, err := r.DB.ExecContext(ctx,
        "DELETE FROM products WHERE id=? AND farmer_id=?", id, farmerID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrProductNotFound
    }
    return nil
}

// ReserveTx decrements stock by qty inside an existing transaction using a
// single conditional update, so two concurrent reservations can never both
// observe sufficient stock and oversell.  When the condition fails, a
// follow-up read decides between a missing product and insufficient stock.
func (r *ProductRepo) ReserveTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        "UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
        qty, productID, qty)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    var available uint32
    err = tx.QueryRowContext(ctx, "SELECT stock FROM products WHERE id=? LIMIT 1", productID).
        Scan(&available)
    if err == sql.ErrNoRows {
        return ErrProductNotFound
    }
    if err != nil {
        return err
    }
    return &InsufficientStockError{Available: available}
}

// GetPriceTx reads the product's current price inside an existing
// transaction, used to snapshot the price onto a new order when the buyer
// did not supply one.
func (r *ProductRepo) GetPriceTx(ctx context.Context, tx *sql.Tx, productID uint64) (decimal.Decimal, error) {
    var price decimal.Decimal
    err := tx.QueryRowContext(ctx, "SELECT price FROM products WHERE id=? LIMIT 1", productID).
        Scan(&price)
    if err == sql.ErrNoRows {
        return price, ErrProductNotFound
    }
    return price, err
}

// ReleaseTx returns qty units to the product's stock inside an existing
// transaction.  It must run exactly once per cancelled order; the caller's
// status-conditioned delete guarantees that.
func (r *ProductRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, productID uint64, qty uint32) error {
    res, err := tx.ExecContext(ctx,
        "UPDATE products SET stock = stock + ? WHERE id = ?", qty, productID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrProductNotFound
    }
    return nil
}
