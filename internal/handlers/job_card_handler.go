package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"garage-backend/internal/cache"
	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type JobCardHandler struct {
	Service *services.JobCardService
	Time    *services.TimeTrackingService
}

func NewJobCardHandler(s *services.JobCardService, t *services.TimeTrackingService) *JobCardHandler {
	return &JobCardHandler{Service: s, Time: t}
}

func (h *JobCardHandler) pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	return id, err == nil
}

func (h *JobCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	var req models.CreateJobCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jc, err := h.Service.Create(r.Context(), companyID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, jc)
}

func (h *JobCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	jc, err := h.Service.Get(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) GetBySession(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	sessionID, ok := h.pathID(r, "session_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	jc, err := h.Service.GetBySession(r.Context(), companyID, sessionID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) Approve(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}
	userID := middleware.UserID(r.Context())
	if userID == nil {
		utils.JSONError(w, http.StatusUnauthorized, "approval requires a user")
		return
	}

	var req models.ApproveJobCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jc, err := h.Service.Approve(r.Context(), companyID, id, *userID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	var req models.AuthorizeJobCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jc, err := h.Service.Authorize(r.Context(), companyID, id, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) StartWork(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	jc, err := h.Service.StartWork(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	var req models.UpdateJobCardStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jc, err := retryOnce(func() (*models.JobCard, error) {
		return h.Service.UpdateStatus(r.Context(), companyID, id, req)
	})
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) Complete(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	jc, err := h.Service.CompleteWork(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	jc, err := h.Service.Cancel(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, jc)
}

func (h *JobCardHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	jobCardID, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}

	var req models.AddJobCardItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.AddItem(r.Context(), companyID, jobCardID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, item)
}

// AddItemFromSource raises a task from an intake record; the source kind
// comes from the path.
func (h *JobCardHandler) AddItemFromSource(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	jobCardID, ok := h.pathID(r, "id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid job card ID")
		return
	}
	source := mux.Vars(r)["source"]

	var req models.CreateItemFromSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var item *models.JobCardItem
	var err error
	switch source {
	case models.ItemSourceCustomerRequest:
		item, err = h.Service.AddItemFromCustomerRequest(r.Context(), companyID, jobCardID, req)
	case models.ItemSourceInspection:
		item, err = h.Service.AddItemFromInspectionFinding(r.Context(), companyID, jobCardID, req)
	case models.ItemSourceTestDrive:
		item, err = h.Service.AddItemFromTestDrive(r.Context(), companyID, jobCardID, req)
	default:
		utils.JSONError(w, http.StatusBadRequest, "Unknown source: "+source)
		return
	}
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, item)
}

func (h *JobCardHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req models.UpdateJobCardItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.UpdateItem(r.Context(), companyID, itemID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, item)
}

func (h *JobCardHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req struct {
		Status models.ItemStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.UpdateItemStatus(r.Context(), companyID, itemID, req.Status)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, item)
}

func (h *JobCardHandler) MarkItemQualityChecked(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := h.Service.MarkItemQualityChecked(r.Context(), companyID, itemID); err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, map[string]string{"status": "quality_checked"})
}

func (h *JobCardHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := h.Service.RemoveItem(r.Context(), companyID, itemID); err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusNoContent, nil)
}

func (h *JobCardHandler) AddPart(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req models.AddJobCardPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	part, err := h.Service.AddPart(r.Context(), companyID, itemID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, part)
}

func (h *JobCardHandler) ListParts(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	parts, err := h.Service.ListParts(r.Context(), companyID, itemID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, parts)
}

func (h *JobCardHandler) UpdatePartStatus(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	partID, ok := h.pathID(r, "part_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid part ID")
		return
	}

	var req models.UpdatePartStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	part, err := h.Service.UpdatePartStatus(r.Context(), companyID, partID, req.Status)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, part)
}

func (h *JobCardHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req models.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Time.ClockIn(r.Context(), companyID, itemID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, entry)
}

func (h *JobCardHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	entryID, ok := h.pathID(r, "entry_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid time entry ID")
		return
	}

	var req models.ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Time.ClockOut(r.Context(), companyID, entryID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateJobCardCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, entry)
}

func (h *JobCardHandler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	itemID, ok := h.pathID(r, "item_id")
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	entries, err := h.Time.ListByItem(r.Context(), companyID, itemID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, entries)
}
