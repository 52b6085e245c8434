package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/agrilink/farm-market-api/internal/repository"
)

// ProductHandler serves the catalog and the farmer-side product CRUD.
// Role checks are applied by middleware at route registration; handlers
// only enforce ownership.
type ProductHandler struct {
    Products *repository.ProductRepo
}

func NewProductHandler(products *repository.ProductRepo) *ProductHandler {
    if products == nil {
        panic("nil repository passed to NewProductHandler")
    }
    return &ProductHandler{Products: products}
}

type createProductReq struct {
    Name        string           `json:"name"`
    Description string           `json:"description"`
    Price       *decimal.Decimal `json:"price"`
    Stock       *uint32          `json:"stock"`
    Unit        string           `json:"unit"`
    Image       string           `json:"image"`
}

// Create handles POST /api/products.  Name, price and stock are mandatory;
// price and stock arrive as pointers so an explicit zero is distinguishable
// from an omitted field.
func (h *ProductHandler) Create(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    var req createProductReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" || req.Price == nil || req.Stock == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "name, price and stock are required"})
    }
    if req.Price.IsNegative() {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "price must not be negative"})
    }

    p := repository.Product{
        Name:        req.Name,
        Description: req.Description,
        Price:       *req.Price,
        Stock:       *req.Stock,
        Unit:        req.Unit,
        Image:       req.Image,
        FarmerID:    farmerID,
    }
    if err := h.Products.Create(c.Request().Context(), &p); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "create product failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": "product published", "product": p})
}

// Catalog handles GET /api/products.  Public: every active product with the
// farmer's public identity, newest first.
func (h *ProductHandler) Catalog(c echo.Context) error {
    items, err := h.Products.ListActive(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list products failed"})
    }
    return c.JSON(http.StatusOK, items)
}

// ListMine handles GET /api/products/my for farmers.
func (h *ProductHandler) ListMine(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    items, err := h.Products.ListByFarmer(c.Request().Context(), farmerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "list products failed"})
    }
    return c.JSON(http.StatusOK, items)
}

// Update handles PATCH /api/products/:id.  Partial update: only supplied
// fields are applied, and only by the owning farmer.
func (h *ProductHandler) Update(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid product id"})
    }
    var upd repository.ProductUpdate
    if err := c.Bind(&upd); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    if upd.Price != nil && upd.Price.IsNegative() {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "price must not be negative"})
    }
    if upd.Status != nil && *upd.Status != repository.ProductActive && *upd.Status != repository.ProductInactive {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status"})
    }

    p, err := h.Products.UpdateFields(c.Request().Context(), id, farmerID, upd)
    if err != nil {
        if err == repository.ErrProductNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "update product failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "product updated", "product": p})
}

// Delete handles DELETE /api/products/:id, scoped to the owning farmer.
func (h *ProductHandler) Delete(c echo.Context) error {
    farmerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid product id"})
    }
    if err := h.Products.Delete(c.Request().Context(), id, farmerID); err != nil {
        if err == repository.ErrProductNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "delete product failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}
