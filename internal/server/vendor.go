package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/purchasing/internal/audit/masking"
	vendordomain "github.com/smallbiznis/purchasing/internal/supplier/domain"
)

type createVendorRequest struct {
	Name           string `json:"name"`
	TaxID          string `json:"tax_id"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Mobile         string `json:"mobile"`
	IsMainSupplier bool   `json:"is_main_supplier"`
	DeliveryDays   *int   `json:"delivery_days"`
	Notes          string `json:"notes"`
	Status         string `json:"status"`
}

type addContactRequest struct {
	Name        string `json:"name"`
	JobFunction string `json:"job_function"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Mobile      string `json:"mobile"`
}

type addBankAccountRequest struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	CCINumber     string `json:"cci_number"`
	AccountType   string `json:"account_type"`
	IsMain        bool   `json:"is_main"`
}

func (s *Server) CreateVendor(c *gin.Context) {
	var req createVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.Create(c.Request.Context(), vendordomain.CreateVendorRequest{
		Name:           req.Name,
		TaxID:          req.TaxID,
		Email:          req.Email,
		Phone:          req.Phone,
		Mobile:         req.Mobile,
		IsMainSupplier: req.IsMainSupplier,
		DeliveryDays:   req.DeliveryDays,
		Notes:          req.Notes,
		Status:         req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetVendor(c *gin.Context) {
	resp, err := s.vendorSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SearchVendors matches the query against vendor names and tax IDs.
func (s *Server) SearchVendors(c *gin.Context) {
	var query struct {
		Q     string `form:"q"`
		Limit int    `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.Search(c.Request.Context(), vendordomain.SearchRequest{
		Query: query.Q,
		Limit: query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddVendorContact(c *gin.Context) {
	var req addContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.AddContact(c.Request.Context(), vendordomain.AddContactRequest{
		VendorID:    strings.TrimSpace(c.Param("id")),
		Name:        req.Name,
		JobFunction: req.JobFunction,
		Email:       req.Email,
		Phone:       req.Phone,
		Mobile:      req.Mobile,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) AddVendorBankAccount(c *gin.Context) {
	var req addBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.AddBankAccount(c.Request.Context(), vendordomain.AddBankAccountRequest{
		VendorID:      strings.TrimSpace(c.Param("id")),
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		CCINumber:     req.CCINumber,
		AccountType:   req.AccountType,
		IsMain:        req.IsMain,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "vendor.bank_account_added", "vendor", resp.VendorID.String(), masking.MaskFields(map[string]any{
		"bank_account_id": resp.ID.String(),
		"bank_name":       resp.BankName,
		"account_number":  resp.AccountNumber,
		"cci_number":      resp.CCINumber,
		"is_main":         resp.IsMain,
	}, "account_number", "cci_number"))

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetVendorMainBankAccount(c *gin.Context) {
	resp, err := s.vendorSvc.MainBankAccount(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVendorBankAccountNames(c *gin.Context) {
	resp, err := s.vendorSvc.BankAccountDisplayNames(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVendorPurchaseContact(c *gin.Context) {
	resp, err := s.vendorSvc.PurchaseContact(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
