package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"garage-backend/internal/cache"
	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/pdf"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type InvoiceHandler struct {
	Service *services.BillingService
	Online  *services.OnlinePaymentService
}

func NewInvoiceHandler(s *services.BillingService, online *services.OnlinePaymentService) *InvoiceHandler {
	return &InvoiceHandler{Service: s, Online: online}
}

func (h *InvoiceHandler) pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	return id, err == nil
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Service.CreateInvoice(r.Context(), companyID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) GenerateFromJobCard(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	var req models.GenerateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Service.GenerateFromJobCard(r.Context(), companyID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.Service.GetInvoice(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	status := r.URL.Query().Get("status")

	key := cache.InvoiceListKey(companyID, status)
	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	invoices, err := h.Service.ListInvoices(r.Context(), companyID, status)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	if data, err := json.Marshal(invoices); err == nil {
		cache.SetCached(r.Context(), key, data, 1*time.Minute)
	}
	utils.JSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	invoiceID, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req models.AddInvoiceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Service.AddItem(r.Context(), companyID, invoiceID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	invoiceID, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req models.UpdateInvoiceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Service.UpdateItem(r.Context(), companyID, invoiceID, itemID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	invoiceID, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	inv, err := h.Service.RemoveItem(r.Context(), companyID, invoiceID, itemID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) MarkAsSent(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.Service.MarkAsSent(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) MarkAsPaid(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.Service.MarkAsPaid(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Void(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.Service.Void(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req models.AddPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Service.AddPayment(r.Context(), companyID, id, middleware.UserID(r.Context()), req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := retryOnce(func() (*models.Invoice, error) {
		return h.Service.Recalculate(r.Context(), companyID, id)
	})
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}

// DownloadPDF streams the printable invoice.
func (h *InvoiceHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.Service.GetInvoice(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	doc, err := pdf.RenderInvoice(inv)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", inv.InvoiceNumber))
	w.Write(doc)
}

func (h *InvoiceHandler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	order, err := h.Online.CreateOrder(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}

func (h *InvoiceHandler) VerifyOnlinePayment(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	var req services.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.Online.VerifyPayment(r.Context(), companyID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateInvoiceCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, inv)
}
