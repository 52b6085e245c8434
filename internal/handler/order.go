package handler

import (
    "errors"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/agrilink/farm-market-api/internal/queue"
    "github.com/agrilink/farm-market-api/internal/repository"
    "github.com/agrilink/farm-market-api/internal/service"
)

// OrderHandler implements the order lifecycle: creation with stock
// reservation, listing for both sides, farmer status updates and buyer
// cancellation.  Creation and cancellation run inside a transaction so the
// stock movement and the order row always change together; a failure after
// the reservation rolls the reservation back with it.
type OrderHandler struct {
    Orders   *repository.OrderRepo
    Products *repository.ProductRepo
}

func NewOrderHandler(orders *repository.OrderRepo, products *repository.ProductRepo) *OrderHandler {
    if orders == nil || products == nil {
        panic("nil repository passed to NewOrderHandler")
    }
    return &OrderHandler{Orders: orders, Products: products}
}

type createOrderReq struct {
    ProductID uint64           `json:"productId"`
    Quantity  uint32           `json:"quantity"`
    FarmerID  uint64           `json:"farmerId"`
    Price     *decimal.Decimal `json:"price"`
}

// Create handles POST /api/orders for buyers.
func (h *OrderHandler) Create(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    var req createOrderReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    if req.ProductID == 0 || req.Quantity == 0 || req.FarmerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "product, quantity and farmer are required"})
    }
    if req.Price != nil && req.Price.IsNegative() {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "price must not be negative"})
    }

    ctx := c.Request().Context()
    tx, err := h.Orders.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Reserve first: the conditional decrement is the only stock check.  If
    // anything after this fails the rollback releases the reservation.
    if err := h.Products.ReserveTx(ctx, tx, req.ProductID, req.Quantity); err != nil {
        var stockErr *repository.InsufficientStockError
        switch {
        case errors.Is(err, repository.ErrProductNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
        case errors.As(err, &stockErr):
            return c.JSON(http.StatusBadRequest, echo.Map{
                "message":   "insufficient stock",
                "available": stockErr.Available,
            })
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"message": "reserve stock failed"})
        }
    }

    price := decimal.Decimal{}
    if req.Price != nil {
        price = *req.Price
    } else {
        // Snapshot the product's current price onto the order.
        price, err = h.Products.GetPriceTx(ctx, tx, req.ProductID)
        if err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"message": "load product failed"})
        }
    }

    order := repository.Order{
        ProductID: req.ProductID,
        Quantity:  req.Quantity,
        Price:     price,
        BuyerID:   buyerID,
        FarmerID:  req.FarmerID,
    }
    if err := h.Orders.CreateTx(ctx, tx, &order); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "create order failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to commit transaction"})
    }
    committed = true

    // Best effort: the order stands whether or not the event goes out.
    if err := service.PublishOrderPlaced(ctx, queue.NewOrderPlacedEvent(&order)); err != nil {
        log.Printf("order %d: publish order.placed failed: %v", order.ID, err)
    }

    return c.JSON(http.StatusCreated, echo.Map{"message": "order created", "order": order})
}

// Incoming handles GET /api/orders/incoming for farmers.
func (h *OrderHandler) Incoming(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    items, err := h.Orders.ListByFarmer(c.Request().Context(), farmerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list orders failed"})
    }
    return c.JSON(http.StatusOK, items)
}

// Mine handles GET /api/orders/my for buyers.
func (h *OrderHandler) Mine(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    items, err := h.Orders.ListByBuyer(c.Request().Context(), buyerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list orders failed"})
    }
    return c.JSON(http.StatusOK, items)
}

// UpdateStatus handles PATCH /api/orders/:id for the order's assigned
// farmer.  Any of the four states is a valid target; which transitions make
// business sense is left to the farmer.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid order id"})
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    if !repository.ValidStatus(body.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
    }

    detail, err := h.Orders.UpdateStatus(c.Request().Context(), id, farmerID, body.Status)
    if err != nil {
        if err == repository.ErrOrderNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "update order failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "order": detail})
}

// Cancel handles DELETE /api/orders/:id for buyers.  Only pending orders
// can be cancelled; the delete statement is conditioned on the pending
// status so the stock release below runs at most once per order.
func (h *OrderHandler) Cancel(c echo.Context) error {
    buyerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid order id"})
    }

    ctx := c.Request().Context()
    tx, err := h.Orders.DB.BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    productID, qty, status, err := h.Orders.GetForCancelTx(ctx, tx, id, buyerID)
    if err != nil {
        if err == repository.ErrOrderNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "load order failed"})
    }
    if status != repository.StatusPending {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "only pending orders can be cancelled"})
    }
    if err := h.Orders.DeletePendingTx(ctx, tx, id, buyerID); err != nil {
        if err == repository.ErrOrderNotPending {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "only pending orders can be cancelled"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "cancel order failed"})
    }
    if err := h.Products.ReleaseTx(ctx, tx, productID, qty); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "restore stock failed"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "failed to commit transaction"})
    }
    committed = true

    if err := service.PublishOrderCancelled(ctx, queue.NewOrderCancelledEvent(id, productID, qty, buyerID)); err != nil {
        log.Printf("order %d: publish order.cancelled failed: %v", id, err)
    }

    return c.JSON(http.StatusOK, echo.Map{"message": "order cancelled and stock restored"})
}
