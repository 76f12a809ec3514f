package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"august/internal/domain"
	"august/internal/metrics"
	"august/internal/provider"
	"august/internal/repository"
	"august/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	orders   *service.OrderService
	checkout *service.CheckoutService
	machine  *service.StatusMachine
	rates    *service.RateEngine
	labels   *service.LabelService
}

func NewServer(
	products *service.ProductService,
	orders *service.OrderService,
	checkout *service.CheckoutService,
	machine *service.StatusMachine,
	rates *service.RateEngine,
	labels *service.LabelService,
	m *metrics.ServerMetrics,
) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
	}
	s := &Server{
		engine:   r,
		products: products,
		orders:   orders,
		checkout: checkout,
		machine:  machine,
		rates:    rates,
		labels:   labels,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)

		orders := v1.Group("/orders")
		orders.GET(":number", s.getOrder)
		orders.GET(":number/history", s.getOrderHistory)
		orders.PUT(":number/status", s.changeOrderStatus)
		orders.POST("sweep", s.sweepReservations)
		orders.POST("archive", s.archiveOrders)

		// guest view lives outside /orders: the router does not allow a
		// static child next to the :number wildcard
		v1.GET("/public/orders/:number/:token", s.getOrderByToken)

		shipping := v1.Group("/shipping")
		shipping.POST("rates", s.quoteShipping)
		shipping.POST("label", s.issueLabel)
		shipping.GET("labels/:file", s.getLabel)

		payment := v1.Group("/payment")
		payment.POST("initiate", s.initiatePayment)
		payment.POST("capture", s.capturePayment)
	}
}

// actor identity comes from the excluded auth layer via a trusted header
func actor(c *gin.Context) string {
	if a := c.GetHeader("X-Actor"); a != "" {
		return a
	}
	return "anonymous"
}

// Product handlers
type productReq struct {
	Name          string            `json:"name"`
	SKU           string            `json:"sku"`
	Price         float64           `json:"price"`
	StockQuantity int64             `json:"stock_quantity"`
	Weight        float64           `json:"weight"`
	Dimensions    domain.Dimensions `json:"dimensions"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, domain.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Weight:        req.Weight,
		Dimensions:    req.Dimensions,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c, domain.Product{
		ID:         id,
		Name:       req.Name,
		SKU:        req.SKU,
		Price:      req.Price,
		Weight:     req.Weight,
		Dimensions: req.Dimensions,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Order handlers

// @Summary Get order by number
// @Tags orders
// @Produce json
// @Param number path string true "Order number"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{number} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c, c.Param("number"))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Order status history
// @Tags orders
// @Produce json
// @Param number path string true "Order number"
// @Success 200 {array} domain.StatusLog
// @Failure 404 {object} map[string]string
// @Router /orders/{number}/history [get]
func (s *Server) getOrderHistory(c *gin.Context) {
	history, err := s.orders.History(c, c.Param("number"))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, history)
}

// @Summary Guest order view by token
// @Tags orders
// @Produce json
// @Param number path string true "Order number"
// @Param token path string true "View token"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /public/orders/{number}/{token} [get]
func (s *Server) getOrderByToken(c *gin.Context) {
	o, err := s.orders.GetOrderByToken(c, c.Param("number"), c.Param("token"))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

type changeStatusReq struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// @Summary Change order status
// @Tags orders
// @Accept json
// @Produce json
// @Param number path string true "Order number"
// @Param input body changeStatusReq true "Target status"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{number}/status [put]
func (s *Server) changeOrderStatus(c *gin.Context) {
	var req changeStatusReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.machine.ChangeStatus(c, c.Param("number"), domain.OrderStatus(req.Status), actor(c), req.Comment)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel expired payment reservations
// @Tags orders
// @Produce json
// @Success 200 {object} map[string]int
// @Router /orders/sweep [post]
func (s *Server) sweepReservations(c *gin.Context) {
	n, err := s.orders.SweepExpiredReservations(c, actor(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n})
}

// @Summary Archive old terminal orders
// @Tags orders
// @Produce json
// @Success 200 {object} map[string]int
// @Router /orders/archive [post]
func (s *Server) archiveOrders(c *gin.Context) {
	n, err := s.orders.ArchiveOldOrders(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": n})
}

// Shipping handlers
type quoteReq struct {
	Address domain.Address     `json:"address"`
	Items   []service.CartItem `json:"items"`
}

// @Summary Quote shipping rates
// @Tags shipping
// @Accept json
// @Produce json
// @Param input body quoteReq true "Destination and cart"
// @Success 200 {object} service.Quote
// @Failure 400 {object} map[string]string
// @Router /shipping/rates [post]
func (s *Server) quoteShipping(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	quote, err := s.rates.Quote(c, req.Address, req.Items)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}

type issueLabelReq struct {
	OrderNumber string `json:"order_number"`
	RateID      string `json:"rate_id"`
}

// @Summary Issue a shipping label
// @Tags shipping
// @Accept json
// @Produce json
// @Param input body issueLabelReq true "Order and rate"
// @Success 200 {object} service.LabelIssue
// @Failure 404 {object} map[string]string
// @Failure 501 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /shipping/label [post]
func (s *Server) issueLabel(c *gin.Context) {
	var req issueLabelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	issue, err := s.labels.IssueLabel(c, req.OrderNumber, req.RateID, actor(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, issue)
}

// @Summary Download a stored label
// @Tags shipping
// @Produce application/pdf
// @Param file path string true "Label filename"
// @Success 200 {file} binary
// @Failure 404 {object} map[string]string
// @Router /shipping/labels/{file} [get]
func (s *Server) getLabel(c *gin.Context) {
	data, err := s.labels.GetLabel(c.Param("file"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "label not found"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", data)
}

// Payment handlers
type initiatePaymentReq struct {
	Method string             `json:"method"`
	Draft  service.OrderDraft `json:"draft"`
}

// @Summary Initiate payment
// @Tags payment
// @Accept json
// @Produce json
// @Param input body initiatePaymentReq true "Method and order draft"
// @Success 200 {object} service.PaymentOutcome
// @Failure 400 {object} map[string]string
// @Router /payment/initiate [post]
func (s *Server) initiatePayment(c *gin.Context) {
	var req initiatePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := s.checkout.InitiatePayment(c, req.Method, req.Draft, actor(c))
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type capturePaymentReq struct {
	Method        string             `json:"method"`
	TransactionID string             `json:"transaction_id"`
	Draft         service.OrderDraft `json:"draft"`
}

// @Summary Capture an online payment
// @Tags payment
// @Accept json
// @Produce json
// @Param input body capturePaymentReq true "Method, transaction and draft"
// @Success 200 {object} service.PaymentOutcome
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /payment/capture [post]
func (s *Server) capturePayment(c *gin.Context) {
	var req capturePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := s.checkout.CapturePayment(c, req.Method, req.TransactionID, req.Draft, actor(c))
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// respondPaymentError дефицит склада отдаётся с размером нехватки
func respondPaymentError(c *gin.Context, err error) {
	var short *service.InsufficientStockError
	if errors.As(err, &short) {
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"product_id": short.ProductID,
			"requested":  short.Requested,
			"available":  short.Available,
		})
		return
	}
	c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	var invalid *service.InvalidTransitionError
	var short *service.InsufficientStockError
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEmptyOrder):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPaymentRejected):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.Is(err, repository.ErrStaleStatus):
		return http.StatusConflict
	case errors.As(err, &short):
		return http.StatusConflict
	case errors.Is(err, provider.ErrLabelingNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
