package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/purchasing/internal/payment/domain"
)

type createPaymentRequest struct {
	VendorID             string   `json:"vendor_id"`
	PurchaseOrderID      string   `json:"purchase_order_id"`
	MoveID               string   `json:"move_id"`
	Direction            string   `json:"direction"`
	State                string   `json:"state"`
	Amount               string   `json:"amount"`
	Currency             string   `json:"currency"`
	Memo                 *string  `json:"memo"`
	PaymentReference     *string  `json:"payment_reference"`
	PaymentDate          string   `json:"payment_date"`
	ReconciledInvoiceIDs []string `json:"reconciled_invoice_ids"`
}

// updatePaymentRequest leaves absent fields untouched. An empty
// purchase_order_id unlinks the payment.
type updatePaymentRequest struct {
	VendorID             *string   `json:"vendor_id"`
	PurchaseOrderID      *string   `json:"purchase_order_id"`
	State                *string   `json:"state"`
	Amount               *string   `json:"amount"`
	Memo                 *string   `json:"memo"`
	PaymentReference     *string   `json:"payment_reference"`
	PaymentDate          *string   `json:"payment_date"`
	ReconciledInvoiceIDs *[]string `json:"reconciled_invoice_ids"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paymentDate, err := parseOptionalTime(req.PaymentDate)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
		return
	}

	resp, err := s.paymentSvc.Create(c.Request.Context(), paymentdomain.CreatePaymentRequest{
		VendorID:             req.VendorID,
		PurchaseOrderID:      req.PurchaseOrderID,
		MoveID:               req.MoveID,
		Direction:            req.Direction,
		State:                req.State,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Memo:                 req.Memo,
		PaymentReference:     req.PaymentReference,
		PaymentDate:          paymentDate,
		ReconciledInvoiceIDs: req.ReconciledInvoiceIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "payment.created", "payment", resp.ID.String(), paymentAuditMetadata(resp))
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetPayment(c *gin.Context) {
	resp, err := s.paymentSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePayment(c *gin.Context) {
	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := paymentdomain.UpdatePaymentRequest{
		VendorID:             req.VendorID,
		PurchaseOrderID:      req.PurchaseOrderID,
		State:                req.State,
		Amount:               req.Amount,
		Memo:                 req.Memo,
		PaymentReference:     req.PaymentReference,
		ReconciledInvoiceIDs: req.ReconciledInvoiceIDs,
	}
	if req.PaymentDate != nil {
		paymentDate, err := parseOptionalTime(*req.PaymentDate)
		if err != nil || paymentDate == nil {
			AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "invalid payment_date"))
			return
		}
		update.PaymentDate = paymentDate
	}

	resp, err := s.paymentSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "payment.updated", "payment", resp.ID.String(), paymentAuditMetadata(resp))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeletePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.paymentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "payment.deleted", "payment", id, nil)

	c.Status(http.StatusNoContent)
}
