// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/agrilink/farm-market-api/internal/repository"
)

// Queue names used on the broker.
const (
    OrderPlacedQueue    = "order.placed"
    OrderCancelledQueue = "order.cancelled"
)

// OrderPlacedEvent is published after an order has been created and its
// stock reserved.  It carries enough for downstream consumers to log or
// notify without querying the primary database.
type OrderPlacedEvent struct {
    EventID   string `json:"event_id"`
    OrderID   uint64 `json:"order_id"`
    ProductID uint64 `json:"product_id"`
    Quantity  uint32 `json:"quantity"`
    Price     string `json:"price"`
    BuyerID   uint64 `json:"buyer_id"`
    FarmerID  uint64 `json:"farmer_id"`
    PlacedAt  string `json:"placed_at"`
}

// NewOrderPlacedEvent builds the event for a freshly committed order.
func NewOrderPlacedEvent(o *repository.Order) OrderPlacedEvent {
    return OrderPlacedEvent{
        EventID:   uuid.NewString(),
        OrderID:   o.ID,
        ProductID: o.ProductID,
        Quantity:  o.Quantity,
        Price:     o.Price.String(),
        BuyerID:   o.BuyerID,
        FarmerID:  o.FarmerID,
        PlacedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// OrderCancelledEvent is published after a pending order was cancelled and
// its quantity returned to the product's stock.
type OrderCancelledEvent struct {
    EventID     string `json:"event_id"`
    OrderID     uint64 `json:"order_id"`
    ProductID   uint64 `json:"product_id"`
    Quantity    uint32 `json:"quantity"`
    BuyerID     uint64 `json:"buyer_id"`
    CancelledAt string `json:"cancelled_at"`
}

// NewOrderCancelledEvent builds the event for a completed cancellation.
func NewOrderCancelledEvent(orderID, productID uint64, qty uint32, buyerID uint64) OrderCancelledEvent {
    return OrderCancelledEvent{
        EventID:     uuid.NewString(),
        OrderID:     orderID,
        ProductID:   productID,
        Quantity:    qty,
        BuyerID:     buyerID,
        CancelledAt: time.Now().UTC().Format(time.RFC3339),
    }
}
