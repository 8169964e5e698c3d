package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"gerai-be/internal/cart"
	"gerai-be/internal/inventory"
	"gerai-be/internal/logger"
	"gerai-be/internal/middleware"
	"gerai-be/internal/order"
	"gerai-be/internal/product"
	"gerai-be/internal/promotion"
	"gerai-be/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	orders     order.Service
	carts      cart.Service
	products   product.Service
	promotions promotion.Service
	db         *sql.DB
}

func NewHandler(
	orders order.Service,
	carts cart.Service,
	products product.Service,
	promotions promotion.Service,
	db *sql.DB,
) *Handler {
	return &Handler{
		orders:     orders,
		carts:      carts,
		products:   products,
		promotions: promotions,
		db:         db,
	}
}

// RegisterRoutes wires all endpoints onto the engine. Everything under
// /api/v1 requires authentication except the product catalogue and the
// promotion preview.
func (h *Handler) RegisterRoutes(r *gin.Engine, secretKey string) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/promotions/validate", h.validatePromotion)

	auth := v1.Group("", middleware.Auth(secretKey))
	{
		auth.GET("/cart", h.getCart)
		auth.POST("/cart", h.addToCart)
		auth.PATCH("/cart", h.updateCartQuantity)
		auth.DELETE("/cart/:productId", h.removeFromCart)
		auth.DELETE("/cart", h.clearCart)

		auth.POST("/checkout", h.checkout)
		auth.GET("/orders", h.listOrders)
		auth.GET("/orders/:id", h.getOrder)
		auth.POST("/orders/:id/cancel", h.cancelOrder)
	}

	admin := v1.Group("/admin", middleware.Auth(secretKey), middleware.RequireAdmin())
	{
		admin.GET("/orders", h.adminListOrders)
		admin.PATCH("/orders/:id/status", h.updateOrderStatus)
		admin.PATCH("/orders/:id/payment", h.updatePaymentStatus)
		admin.DELETE("/orders/:id", h.deleteOrder)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// ---------- products ----------

func (h *Handler) listProducts(c *gin.Context) {
	opts := product.ListOptions{
		SortField: c.Query("sort"),
		SortDesc:  c.Query("order") == "desc",
	}

	if search := c.Query("search"); search != "" {
		opts.Search = &search
	}
	if status := c.Query("status"); status != "" {
		s := product.Status(status)
		opts.Status = &s
	}
	if limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 32); err == nil {
		opts.Limit = int32(limit)
	}
	if page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 32); err == nil {
		opts.Page = int32(page)
	}

	products, err := h.products.GetList(c.Request.Context(), opts)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	p, err := h.products.GetProductByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": p})
}

// ---------- promotions ----------

func (h *Handler) validatePromotion(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil || amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a non-negative integer"})
		return
	}

	quote, err := h.promotions.Validate(c.Request.Context(), code, amount)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// ---------- cart ----------

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

func (h *Handler) addToCart(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.carts.AddToCart(c.Request.Context(), cart.AddToCartParams{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (h *Handler) getCart(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var filter cart.ListFilter
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}

	rows, err := h.carts.GetCart(c.Request.Context(), userID, &filter, nil, nil, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

type updateCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

func (h *Handler) updateCartQuantity(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.carts.UpdateQuantity(c.Request.Context(), cart.UpdateQuantityParams{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *Handler) removeFromCart(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	productID, err := utils.ToInt64(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	err = h.carts.RemoveFromCart(c.Request.Context(), cart.RemoveFromCartParams{
		UserID:    userID,
		ProductID: productID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) clearCart(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.carts.ClearCart(c.Request.Context(), userID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ---------- checkout & orders ----------

type checkoutRequest struct {
	RecipientName string  `json:"recipient_name" binding:"required"`
	Phone         string  `json:"phone" binding:"required"`
	AddressLine   string  `json:"address_line" binding:"required"`
	City          string  `json:"city" binding:"required"`
	PostalCode    string  `json:"postal_code" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	PromoCode     *string `json:"promo_code"`
}

func (h *Handler) checkout(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	placed, err := h.orders.PlaceOrder(c.Request.Context(), order.PlaceOrderParams{
		UserID: userID,
		ShippingAddress: order.ShippingAddress{
			RecipientName: req.RecipientName,
			Phone:         req.Phone,
			AddressLine:   req.AddressLine,
			City:          req.City,
			PostalCode:    req.PostalCode,
		},
		PaymentMethod: req.PaymentMethod,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": placed})
}

func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	filter := order.ListFilter{UserID: &userID}
	if status := c.Query("status"); status != "" {
		s := order.Status(status)
		filter.Status = &s
	}

	orders, err := h.orders.GetOrders(c.Request.Context(), &filter, nil, nil, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	orderID, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	isAdmin := utils.GetUserRoleFromContext(c.Request.Context()) == utils.RoleAdmin

	detail, err := h.orders.GetOrderDetail(c.Request.Context(), orderID, userID, isAdmin)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	orderID, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	cancelled, err := h.orders.CancelOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cancelled})
}

// ---------- admin ----------

func (h *Handler) adminListOrders(c *gin.Context) {
	var filter order.ListFilter
	if status := c.Query("status"); status != "" {
		s := order.Status(status)
		filter.Status = &s
	}
	if userParam := c.Query("user_id"); userParam != "" {
		userID, err := utils.ToInt64(userParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		filter.UserID = &userID
	}

	orders, err := h.orders.GetOrders(c.Request.Context(), &filter, nil, nil, nil)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

type updateStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}

type updatePaymentRequest struct {
	PaymentStatus order.PaymentStatus `json:"payment_status" binding:"required"`
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	orderID, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.UpdatePaymentStatus(c.Request.Context(), orderID, req.PaymentStatus); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, err := utils.ToInt64(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.orders.DeleteOrder(c.Request.Context(), orderID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// writeError maps domain errors onto HTTP statuses. Unknown errors are
// logged and surfaced as an opaque 500 so infrastructure detail never leaks.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidAddress),
		errors.Is(err, order.ErrInvalidPayment),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, promotion.ErrBelowMinimumOrder):
		status = http.StatusBadRequest

	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, promotion.ErrPromotionNotFound):
		status = http.StatusNotFound

	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, promotion.ErrPromotionNotUsable),
		errors.Is(err, order.ErrInvalidTransition):
		status = http.StatusConflict

	case errors.Is(err, order.ErrUnauthorized):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		logger.FromCtx(c.Request.Context()).Error("request failed", zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
