package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/export"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type paymentStatusRequest struct {
	PaymentStatus model.PaymentStatus `json:"payment_status" binding:"required,oneof=unpaid partial paid"`
	AmountPaid    *float64            `json:"amount_paid" binding:"omitempty,gte=0"`
	Method        string              `json:"method" binding:"max=32"`
	Notes         string              `json:"notes" binding:"max=1000"`
}

type paymentRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method" binding:"max=32"`
	Reference string  `json:"reference" binding:"max=64"`
	Notes     string  `json:"notes" binding:"max=1000"`
	PaidAt    string  `json:"paid_at"`
}

// recorder returns the caller's id for payment history.
func recorder(c *gin.Context) *int64 {
	id := auth.UserID(c)
	if id == 0 {
		return nil
	}
	return &id
}

// ListPaymentAccounts handles GET /api/cashier/students.
func (h *Handler) ListPaymentAccounts(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var q studentQuery
	if !h.bindQuery(c, &q) {
		return
	}
	accounts, err := h.store.ListPaymentAccounts(c.Request.Context(), scope, q.filter(scope))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// SetPaymentStatus handles PUT /api/cashier/students/:id/payment.
func (h *Handler) SetPaymentStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req paymentStatusRequest
	if !h.bind(c, &req) {
		return
	}

	acc, err := h.store.SetPaymentStatus(c.Request.Context(), auth.Scope(c), id, store.PaymentUpdate{
		Status:     req.PaymentStatus,
		AmountPaid: req.AmountPaid,
		Method:     req.Method,
		Notes:      req.Notes,
		RecordedBy: recorder(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// RecordPayment handles POST /api/cashier/students/:id/payments.
func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req paymentRequest
	if !h.bind(c, &req) {
		return
	}
	paidAt, ok := parseDate(req.PaidAt)
	if !ok {
		invalidDate(c, "paid_at")
		return
	}

	acc, err := h.store.RecordPayment(c.Request.Context(), auth.Scope(c), id, store.PaymentEntry{
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  req.Reference,
		Notes:      req.Notes,
		RecordedBy: recorder(c),
		PaidAt:     paidAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

// ListStudentPayments handles GET /api/cashier/students/:id/payments.
func (h *Handler) ListStudentPayments(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	scope := auth.Scope(c)
	if _, err := h.store.GetPaymentAccount(ctx, scope, id); err != nil {
		h.respondError(c, err)
		return
	}
	records, err := h.store.ListPayments(ctx, scope, &id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ExportPayments handles GET /api/cashier/payments/export.
func (h *Handler) ExportPayments(c *gin.Context) {
	scope, err := scopeFor(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	records, err := h.store.ListPayments(c.Request.Context(), scope, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	buf, err := export.PaymentsXLSX(records)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("payments-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
