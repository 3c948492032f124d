package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	purchaseorderdomain "github.com/smallbiznis/purchasing/internal/purchaseorder/domain"
)

type createOrderLineRequest struct {
	Description string `json:"description"`
	ProductType string `json:"product_type"`
	ProductQty  string `json:"product_qty"`
}

type createOrderRequest struct {
	Name                 string                   `json:"name"`
	VendorID             string                   `json:"vendor_id"`
	State                string                   `json:"state"`
	Currency             string                   `json:"currency"`
	AmountTotal          string                   `json:"amount_total"`
	RequestingDepartment string                   `json:"requesting_department"`
	SupplyMonth          string                   `json:"supply_month"`
	Observations         string                   `json:"observations"`
	ReceivedBy           string                   `json:"received_by"`
	OrderedAt            string                   `json:"ordered_at"`
	Lines                []createOrderLineRequest `json:"lines"`
}

type receiveLinesRequest struct {
	Lines []struct {
		LineID      string `json:"line_id"`
		QtyReceived string `json:"qty_received"`
	} `json:"lines"`
}

type treasuryApprovalRequest struct {
	Approver string `json:"approver"`
}

type paymentDateRequest struct {
	Date string `json:"date"`
}

type orderResponse struct {
	purchaseorderdomain.Order
	FormattedDate string `json:"formatted_date"`
}

func newOrderResponse(order purchaseorderdomain.Order) orderResponse {
	return orderResponse{Order: order, FormattedDate: order.FormattedDate()}
}

// CreateOrder records the caller from X-User-Name as the author.
func (s *Server) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	orderedAt, err := parseOptionalTime(req.OrderedAt)
	if err != nil {
		AbortWithError(c, newValidationError("ordered_at", "invalid_ordered_at", "invalid ordered_at"))
		return
	}

	lines := make([]purchaseorderdomain.CreateLineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, purchaseorderdomain.CreateLineRequest{
			Description: line.Description,
			ProductType: line.ProductType,
			ProductQty:  line.ProductQty,
		})
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), purchaseorderdomain.CreateOrderRequest{
		Name:                 req.Name,
		VendorID:             req.VendorID,
		State:                req.State,
		Currency:             req.Currency,
		AmountTotal:          req.AmountTotal,
		RequestingDepartment: req.RequestingDepartment,
		SupplyMonth:          req.SupplyMonth,
		Observations:         req.Observations,
		ElaboratedBy:         userName(c),
		ReceivedBy:           req.ReceivedBy,
		OrderedAt:            orderedAt,
		Lines:                lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "purchase_order.created", "purchase_order", resp.ID.String(), map[string]any{
		"name":         resp.Name,
		"amount_total": resp.AmountTotal.String(),
	})
	c.JSON(http.StatusCreated, gin.H{"data": newOrderResponse(resp)})
}

func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newOrderResponse(resp)})
}

func (s *Server) PreviewNextOrderName(c *gin.Context) {
	name, err := s.orderSvc.PreviewNextName(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"name": name}})
}

func (s *Server) ConfirmOrder(c *gin.Context) {
	resp, err := s.orderSvc.Confirm(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "purchase_order.confirmed", "purchase_order", resp.ID.String(), map[string]any{
		"state": string(resp.State),
	})

	c.JSON(http.StatusOK, gin.H{"data": newOrderResponse(resp)})
}

func (s *Server) ReceiveOrderLines(c *gin.Context) {
	var req receiveLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lines := make([]purchaseorderdomain.ReceiveLineRequest, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, purchaseorderdomain.ReceiveLineRequest{
			LineID:      line.LineID,
			QtyReceived: line.QtyReceived,
		})
	}

	resp, err := s.orderSvc.ReceiveLines(c.Request.Context(), strings.TrimSpace(c.Param("id")), lines)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newOrderResponse(resp)})
}

// RecomputeOrderPaymentStatus runs the reconciliation on demand and returns
// the breakdown alongside the persisted summary.
func (s *Server) RecomputeOrderPaymentStatus(c *gin.Context) {
	result, err := s.reconciliationSvc.ForceRecompute(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "purchase_order.payment_status_recomputed", "purchase_order", result.OrderID.String(), map[string]any{
		"status":     string(result.Status),
		"total_paid": result.TotalPaid.String(),
	})

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ApproveOrderByTreasury(c *gin.Context) {
	var req treasuryApprovalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	approver := userName(c)
	if approver == "" {
		approver = strings.TrimSpace(req.Approver)
	}

	resp, err := s.orderSvc.ApproveByTreasury(c.Request.Context(), strings.TrimSpace(c.Param("id")), approver)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "purchase_order.treasury_approved", "purchase_order", resp.ID.String(), map[string]any{
		"approved_by": resp.TreasuryApprovedBy,
	})

	c.JSON(http.StatusOK, gin.H{"data": newOrderResponse(resp)})
}

// RegisterOrderPaymentDate appends the given date, or today, to the order's
// cancellation dates.
func (s *Server) RegisterOrderPaymentDate(c *gin.Context) {
	var req paymentDateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	date, err := parseOptionalTime(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "invalid date"))
		return
	}

	resp, err := s.orderSvc.RegisterPaymentDate(c.Request.Context(), strings.TrimSpace(c.Param("id")), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "purchase_order.payment_date_registered", "purchase_order", resp.ID.String(), map[string]any{
		"cancellation_dates": resp.CancellationDates,
	})

	c.JSON(http.StatusOK, gin.H{"data": newOrderResponse(resp)})
}

func (s *Server) GetOrderSupplierBank(c *gin.Context) {
	resp, err := s.orderSvc.SupplierBankInfo(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrderPurchaseContact(c *gin.Context) {
	resp, err := s.orderSvc.PurchaseContact(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
