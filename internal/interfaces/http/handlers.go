package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/service"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/approval"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/report"
)

// maxReceiptSize caps receipt uploads at 10 MiB.
const maxReceiptSize = 10 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService service.ExpenseService
	policyService  service.PolicyService
	userService    service.UserService
	receiptService service.ReceiptService
	exporter       *report.Exporter
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	policyService service.PolicyService,
	userService service.UserService,
	receiptService service.ReceiptService,
	exporter *report.Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		policyService:  policyService,
		userService:    userService,
		receiptService: receiptService,
		exporter:       exporter,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitExpenseRequest is the body of POST /api/v1/expenses
type SubmitExpenseRequest struct {
	CompanyID   int64  `json:"company_id" binding:"required"`
	SubmitterID int64  `json:"submitter_id" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Currency    string `json:"currency"`
	ExpenseDate string `json:"expense_date"`
}

// DecisionRequest is the body of POST /api/v1/approvals/:id/decision
type DecisionRequest struct {
	ApproverID int64  `json:"approver_id" binding:"required"`
	Decision   string `json:"decision" binding:"required"`
	Comment    string `json:"comment"`
}

// CancelRequest is the body of POST /api/v1/expenses/:id/cancel
type CancelRequest struct {
	RequesterID int64 `json:"requester_id" binding:"required"`
}

// CreateUserRequest is the body of POST /api/v1/users
type CreateUserRequest struct {
	CompanyID int64  `json:"company_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Role      string `json:"role"`
	ManagerID *int64 `json:"manager_id"`
	LarkID    string `json:"lark_id"`
}

// CreateSequenceRequest is the body of POST /api/v1/policies/sequences
type CreateSequenceRequest struct {
	CompanyID int64                 `json:"company_id" binding:"required"`
	Name      string                `json:"name" binding:"required"`
	Steps     []entity.SequenceStep `json:"steps" binding:"required"`
}

// CreateRuleRequest is the body of POST /api/v1/policies/rules
type CreateRuleRequest struct {
	CompanyID  int64   `json:"company_id" binding:"required"`
	Kind       string  `json:"kind" binding:"required"`
	Threshold  float64 `json:"threshold"`
	ApproverID int64   `json:"approver_id"`
	Role       string  `json:"role"`
}

// ExpenseDetailResponse pairs an expense with its approval steps
type ExpenseDetailResponse struct {
	Expense *entity.Expense        `json:"expense"`
	Steps   []*entity.ApprovalStep `json:"steps"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitExpense handles POST /api/v1/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	expense := &entity.Expense{
		CompanyID:   req.CompanyID,
		SubmitterID: req.SubmitterID,
		Description: req.Description,
		Category:    req.Category,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
	}
	if req.ExpenseDate != "" {
		date, err := time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			h.badRequest(c, "expense_date must be YYYY-MM-DD")
			return
		}
		expense.ExpenseDate = date
	}

	steps, err := h.expenseService.SubmitExpense(c.Request.Context(), expense)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    ExpenseDetailResponse{Expense: expense, Steps: steps},
	})
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	expense, steps, err := h.expenseService.GetExpense(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ExpenseDetailResponse{Expense: expense, Steps: steps},
	})
}

// ListExpenses handles GET /api/v1/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	companyID, ok := h.queryCompanyID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), companyID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ListStuckExpenses handles GET /api/v1/expenses/stuck
func (h *Handlers) ListStuckExpenses(c *gin.Context) {
	companyID, ok := h.queryCompanyID(c)
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListStuckExpenses(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// CancelExpense handles POST /api/v1/expenses/:id/cancel
func (h *Handlers) CancelExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	if err := h.expenseService.CancelExpense(c.Request.Context(), id, req.RequesterID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// RecordDecision handles POST /api/v1/approvals/:id/decision
func (h *Handlers) RecordDecision(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	decision := entity.StepStatus(req.Decision)
	if decision != entity.StepApproved && decision != entity.StepRejected {
		h.badRequest(c, "decision must be APPROVED or REJECTED")
		return
	}

	result, err := h.expenseService.RecordDecision(c.Request.Context(), id, req.ApproverID, decision, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListPendingApprovals handles GET /api/v1/approvals
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	approverID, err := strconv.ParseInt(c.Query("approver_id"), 10, 64)
	if err != nil || approverID <= 0 {
		h.badRequest(c, "approver_id is required")
		return
	}

	steps, err := h.expenseService.ListPendingApprovals(c.Request.Context(), approverID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: steps})
}

// AttachReceipt handles POST /api/v1/expenses/:id/receipt
func (h *Handlers) AttachReceipt(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxReceiptSize {
		h.badRequest(c, "file exceeds maximum size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	receipt, err := h.receiptService.AttachReceipt(
		c.Request.Context(), id, fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: receipt})
}

// ListReceipts handles GET /api/v1/expenses/:id/receipts
func (h *Handlers) ListReceipts(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	receipts, err := h.receiptService.ListReceipts(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: receipts})
}

// DownloadReceipt handles GET /api/v1/receipts/:id/download
func (h *Handlers) DownloadReceipt(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	receipt, content, err := h.receiptService.DownloadReceipt(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	mimeType := receipt.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", receipt.FileName))
	c.Data(http.StatusOK, mimeType, content)
}

// DeleteReceipt handles DELETE /api/v1/receipts/:id
func (h *Handlers) DeleteReceipt(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.receiptService.RemoveReceipt(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	user := &entity.User{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		ManagerID: req.ManagerID,
		LarkID:    req.LarkID,
	}
	if err := h.userService.CreateUser(c.Request.Context(), user); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// GetUser handles GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// CreateSequence handles POST /api/v1/policies/sequences
func (h *Handlers) CreateSequence(c *gin.Context) {
	var req CreateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	sequence := &entity.ApprovalSequence{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Steps:     req.Steps,
	}
	if err := h.policyService.CreateSequence(c.Request.Context(), sequence); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: sequence})
}

// ActivateSequence handles POST /api/v1/policies/sequences/:id/activate
func (h *Handlers) ActivateSequence(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	companyID, ok := h.queryCompanyID(c)
	if !ok {
		return
	}

	if err := h.policyService.ActivateSequence(c.Request.Context(), companyID, id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CreateRule handles POST /api/v1/policies/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	rule := &entity.ApprovalRule{
		CompanyID:  req.CompanyID,
		Kind:       entity.RuleKind(req.Kind),
		Threshold:  req.Threshold,
		ApproverID: req.ApproverID,
		Role:       req.Role,
	}
	if err := h.policyService.CreateRule(c.Request.Context(), rule); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: rule})
}

// ListRules handles GET /api/v1/policies/rules
func (h *Handlers) ListRules(c *gin.Context) {
	companyID, ok := h.queryCompanyID(c)
	if !ok {
		return
	}

	rules, err := h.policyService.ListRules(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: rules})
}

// ExportExpenses handles GET /api/v1/reports/expenses.xlsx
func (h *Handlers) ExportExpenses(c *gin.Context) {
	companyID, ok := h.queryCompanyID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "1000"))
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)

	if err := h.exporter.ExportExpenses(c.Request.Context(), companyID, limit, c.Writer); err != nil {
		h.logger.Error("Failed to export expenses", "company_id", companyID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
}

// pathID parses the :id path parameter
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// queryCompanyID parses the required company_id query parameter
func (h *Handlers) queryCompanyID(c *gin.Context) (int64, bool) {
	companyID, err := strconv.ParseInt(c.Query("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		h.badRequest(c, "company_id is required")
		return 0, false
	}
	return companyID, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// respondError maps domain errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
	case errors.Is(err, approval.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "step already decided"})
	case errors.Is(err, approval.ErrExpenseFinalized):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "expense already finalized"})
	case errors.Is(err, approval.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "approver resolution unavailable"})
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	}
}
