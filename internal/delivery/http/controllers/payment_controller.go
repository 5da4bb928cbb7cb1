package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"clubledger/internal/audit"
	"clubledger/internal/delivery/http/helpers"
	"clubledger/internal/delivery/http/middleware"
	"clubledger/internal/domain"
)

type PaymentController struct {
	Logger  *slog.Logger
	Service domain.BillingService
	Audit   *audit.Worker
}

// NewPaymentController creates a PaymentController. auditWorker may be nil;
// status changes are then not recorded in the audit trail.
func NewPaymentController(logger *slog.Logger, svc domain.BillingService, auditWorker *audit.Worker) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
		Audit:   auditWorker,
	}
}

// monthFromQuery parses the required month query parameter. On failure it
// writes a 400 and returns false.
func monthFromQuery(w http.ResponseWriter, r *http.Request) (domain.MonthKey, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "month query parameter is required")
		return domain.MonthKey{}, false
	}
	month, err := domain.ParseMonthKey(raw)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return domain.MonthKey{}, false
	}
	return month, true
}

// MonthlySummaryResponse is the response body for GET /payments/monthly.
type MonthlySummaryResponse struct {
	Month    string                      `json:"month"`
	Payments []*domain.UserMonthlyCharge `json:"payments"`
}

// GetMonthlySummary godoc
// @Summary Monthly payment summary for all users
// @Description Computes, for every user with at least one participation in an event ending in the given month, the summed event prices merged with the payment ledger. Users without a ledger row are reported as Unpaid.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param month query string true "Billing month (YYYY-MM)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/monthly [get]
func (c *PaymentController) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	month, ok := monthFromQuery(w, r)
	if !ok {
		return
	}

	charges, err := c.Service.MonthlySummary(r.Context(), month)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MonthlySummaryResponse{
		Month:    month.String(),
		Payments: charges,
	})
}

// GetMyPaymentHistory godoc
// @Summary Payment history for the authenticated user
// @Description Returns one reconciled charge per month of the user's participations, most recent month first.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/me [get]
func (c *PaymentController) GetMyPaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	history, err := c.Service.PaymentHistory(r.Context(), userID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, history)
}

// GetMyMonthlyStatement godoc
// @Summary Monthly statement for the authenticated user
// @Description Returns the user's total, reconciled status, and contributing events for one month. A month with no events yields a zero total and Unpaid.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param month query string true "Billing month (YYYY-MM)"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/me/monthly [get]
func (c *PaymentController) GetMyMonthlyStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	month, ok := monthFromQuery(w, r)
	if !ok {
		return
	}

	statement, err := c.Service.MonthlyStatement(r.Context(), userID, month)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, statement)
}

// UpdatePaymentStatusRequest is the request body for PUT /payments/monthly/status.
type UpdatePaymentStatusRequest struct {
	UserID        string `json:"userId"`
	Month         string `json:"month"`
	PaymentStatus string `json:"paymentStatus"`
}

// Validate implements helpers.Validator.
func (u *UpdatePaymentStatusRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.UserID) == "" {
		errs = append(errs, "userId is required")
	}
	if strings.TrimSpace(u.Month) == "" {
		errs = append(errs, "month is required")
	}
	if strings.TrimSpace(u.PaymentStatus) == "" {
		errs = append(errs, "paymentStatus is required")
	}
	return errs
}

// UpdatePaymentStatus godoc
// @Summary Set a user's payment status for a month
// @Description Upserts the payment ledger row for (user, month). Idempotent; the stored total amount is left untouched on update.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.UpdatePaymentStatusRequest true "Status update"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/monthly/status [put]
func (c *PaymentController) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	month, err := domain.ParseMonthKey(req.Month)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	status, err := domain.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	rec, err := c.Service.SetPaymentStatus(r.Context(), req.UserID, month, status)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "user not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}

	if c.Audit != nil {
		actorID, _ := middleware.UserIDFromContext(r.Context())
		c.Audit.Record(audit.NewEntry(
			audit.WithType(audit.TypePaymentStatusUpdated),
			audit.WithData(map[string]string{
				"userId": rec.UserID,
				"month":  rec.Month,
				"status": string(rec.Status),
			}),
			audit.WithMetadata(map[string]string{"actor": actorID}),
		))
	}

	helpers.WriteJSONSuccess(w, http.StatusOK, rec)
}

// SendRemindersRequest is the request body for POST /payments/monthly/reminders.
type SendRemindersRequest struct {
	Month string `json:"month"`
}

// Validate implements helpers.Validator.
func (s *SendRemindersRequest) Validate() []string {
	if strings.TrimSpace(s.Month) == "" {
		return []string{"month is required"}
	}
	return nil
}

// SendRemindersResponse reports how many reminder emails went out.
type SendRemindersResponse struct {
	Month string `json:"month"`
	Sent  int    `json:"sent"`
}

// SendReminders godoc
// @Summary Email payment reminders to unpaid users
// @Description Sends a reminder email to every user whose reconciled status for the month is Unpaid.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body controllers.SendRemindersRequest true "Billing month"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/monthly/reminders [post]
func (c *PaymentController) SendReminders(w http.ResponseWriter, r *http.Request) {
	var req SendRemindersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	month, err := domain.ParseMonthKey(req.Month)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}

	sent, err := c.Service.SendPaymentReminders(r.Context(), month)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SendRemindersResponse{Month: month.String(), Sent: sent})
}
