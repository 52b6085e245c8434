package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/shopspring/decimal"
)

// Order statuses.  Orders are born pending; delivered and cancelled are
// terminal.  The farmer update path accepts any of the four as a target,
// buyer cancellation only applies to pending orders.
const (
    StatusPending   = "pending"
    StatusAccepted  = "accepted"
    StatusDelivered = "delivered"
    StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is one of the four order states.
func ValidStatus(s string) bool {
    switch s {
    case StatusPending, StatusAccepted, StatusDelivered, StatusCancelled:
        return true
    }
    return false
}

// Order mirrors the 'orders' table.  Price is a snapshot taken at creation
// time; later product price edits do not touch existing orders.
type Order struct {
    ID        uint64          `json:"id"`
    ProductID uint64          `json:"product_id"`
    Quantity  uint32          `json:"quantity"`
    Price     decimal.Decimal `json:"price"`
    Status    string          `json:"status"`
    BuyerID   uint64          `json:"buyer_id"`
    FarmerID  uint64          `json:"farmer_id"`
    CreatedAt time.Time       `json:"created_at"`
    UpdatedAt time.Time       `json:"updated_at"`
}

// OrderDetail is an order joined with counterparty and product summaries,
// the read-side projection served by the listing endpoints.  Farmers see
// the buyer's identity, buyers see the farmer's; the unused pair is left
// empty rather than modelled as separate types.
type OrderDetail struct {
    Order
    BuyerName    string `json:"buyer_name,omitempty"`
    BuyerEmail   string `json:"buyer_email,omitempty"`
    FarmerName   string `json:"farmer_name,omitempty"`
    FarmerEmail  string `json:"farmer_email,omitempty"`
    ProductName  string `json:"product_name"`
    ProductImage string `json:"product_image"`
    ProductUnit  string `json:"product_unit"`
}

type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// CreateTx inserts a new pending order within the scope of an existing
// transaction and reads the row back to populate ID and timestamps.  The
// caller must have reserved stock in the same transaction and must commit
// or roll back; a rollback undoes both the order and the reservation.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *Order) error {
    res, err := tx.ExecContext(ctx,
        "INSERT INTO orders (product_id, quantity, price, status, buyer_id, farmer_id) VALUES (?,?,?,?,?,?)",
        o.ProductID, o.Quantity, o.Price, StatusPending, o.BuyerID, o.FarmerID)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)
    return tx.QueryRowContext(ctx,
        "SELECT id,product_id,quantity,price,status,buyer_id,farmer_id,created_at,updated_at FROM orders WHERE id=?",
        o.ID).Scan(&o.ID, &o.ProductID, &o.Quantity, &o.Price, &o.Status,
        &o.BuyerID, &o.FarmerID, &o.CreatedAt, &o.UpdatedAt)
}

// GetForCancelTx loads the fields cancellation needs (product, quantity,
// status) for an order owned by the buyer, locking the row for the rest of
// the transaction.  Orders that exist but belong to another buyer surface
// as ErrOrderNotFound.
func (r *OrderRepo) GetForCancelTx(ctx context.Context, tx *sql.Tx, id, buyerID uint64) (productID uint64, qty uint32, status string, err error) {
    err = tx.QueryRowContext(ctx,
        "SELECT product_id, quantity, status FROM orders WHERE id=? AND buyer_id=? FOR UPDATE",
        id, buyerID).Scan(&productID, &qty, &status)
    if err == sql.ErrNoRows {
        return 0, 0, "", ErrOrderNotFound
    }
    return productID, qty, status, err
}

// DeletePendingTx removes the order only while it is still pending and
// owned by the buyer.  The status condition in the statement is what makes
// a double cancellation impossible: the second attempt matches no row.
func (r *OrderRepo) DeletePendingTx(ctx context.Context, tx *sql.Tx, id, buyerID uint64) error {
    res, err := tx.ExecContext(ctx,
        "DELETE FROM orders WHERE id=? AND buyer_id=? AND status=?",
        id, buyerID, StatusPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrOrderNotPending
    }
    return nil
}

// UpdateStatus sets a new status on an order, scoped to its assigned
// farmer.  The WHERE clause carries the ownership check; an order assigned
// to another farmer comes back as ErrOrderNotFound.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id, farmerID uint64, status string) (OrderDetail, error) {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE orders SET status=? WHERE id=? AND farmer_id=?",
        status, id, farmerID)
    if err != nil {
        return OrderDetail{}, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return OrderDetail{}, err
    }
    if n == 0 {
        // Either no such order, not this farmer's, or the status already had
        // the requested value.  Probe to tell no-op apart from not-found.
        var exists bool
        probeErr := r.DB.QueryRowContext(ctx,
            "SELECT EXISTS(SELECT 1 FROM orders WHERE id=? AND farmer_id=?)", id, farmerID).
            Scan(&exists)
        if probeErr != nil {
            return OrderDetail{}, probeErr
        }
        if !exists {
            return OrderDetail{}, ErrOrderNotFound
        }
    }
    return r.getDetailForFarmer(ctx, id, farmerID)
}

func (r *OrderRepo) getDetailForFarmer(ctx context.Context, id, farmerID uint64) (OrderDetail, error) {
    var d OrderDetail
    err := r.DB.QueryRowContext(ctx,
        `SELECT o.id,o.product_id,o.quantity,o.price,o.status,o.buyer_id,o.farmer_id,o.created_at,o.updated_at,
                b.name,b.email,p.name,p.image,p.unit
         FROM orders o
         JOIN users b ON b.id = o.buyer_id
         JOIN products p ON p.id = o.product_id
         WHERE o.id=? AND o.farmer_id=?`, id, farmerID).
        Scan(&d.ID, &d.ProductID, &d.Quantity, &d.Price, &d.Status, &d.BuyerID, &d.FarmerID,
            &d.CreatedAt, &d.UpdatedAt, &d.BuyerName, &d.BuyerEmail,
            &d.ProductName, &d.ProductImage, &d.ProductUnit)
    if err == sql.ErrNoRows {
        return d, ErrOrderNotFound
    }
    return d, err
}

// ListByFarmer returns the farmer's incoming orders, newest first, with the
// buyer and product summaries joined in.
func (r *OrderRepo) ListByFarmer(ctx context.Context, farmerID uint64) ([]OrderDetail, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT o.id,o.product_id,o.quantity,o.price,o.status,o.buyer_id,o.farmer_id,o.created_at,o.updated_at,
                b.name,b.email,p.name,p.image,p.unit
         FROM orders o
         JOIN users b ON b.id = o.buyer_id
         JOIN products p ON p.id = o.product_id
         WHERE o.farmer_id=?
         ORDER BY o.created_at DESC`, farmerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    items := make([]OrderDetail, 0)
    for rows.Next() {
        var d OrderDetail
        if err := rows.Scan(&d.ID, &d.ProductID, &d.Quantity, &d.Price, &d.Status, &d.BuyerID,
            &d.FarmerID, &d.CreatedAt, &d.UpdatedAt, &d.BuyerName, &d.BuyerEmail,
            &d.ProductName, &d.ProductImage, &d.ProductUnit); err != nil {
            return nil, err
        }
        items = append(items, d)
    }
    return items, rows.Err()
}

// ListByBuyer returns the buyer's own orders, newest first, with the farmer
// and product summaries joined in.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uint64) ([]OrderDetail, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT o.id,o.product_id,o.quantity,o.price,o.status,o.buyer_id,o.farmer_id,o.created_at,o.updated_at,
                f.name,f.email,p.name,p.image,p.unit
         FROM orders o
         JOIN users f ON f.id = o.farmer_id
         JOIN products p ON p.id = o.product_id
         WHERE o.buyer_id=?
         ORDER BY o.created_at DESC`, buyerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    items := make([]OrderDetail, 0)
    for rows.Next() {
        var d OrderDetail
        if err := rows.Scan(&d.ID, &d.ProductID, &d.Quantity, &d.Price, &d.Status, &d.BuyerID,
            &d.FarmerID, &d.CreatedAt, &d.UpdatedAt, &d.FarmerName, &d.FarmerEmail,
            &d.ProductName, &d.ProductImage, &d.ProductUnit); err != nil {
            return nil, err
        }
        items = append(items, d)
    }
    return items, rows.Err()
}
