package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"garage-backend/internal/cache"
	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type SessionHandler struct {
	Service *services.SessionService
}

func NewSessionHandler(s *services.SessionService) *SessionHandler {
	return &SessionHandler{Service: s}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Service.CreateSession(r.Context(), companyID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateSessionCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	session, err := h.Service.GetSession(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	status := r.URL.Query().Get("status")

	key := cache.SessionListKey(companyID, status)
	if data, ok := cache.GetCached(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	sessions, err := h.Service.ListSessions(r.Context(), companyID, status)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	if data, err := json.Marshal(sessions); err == nil {
		cache.SetCached(r.Context(), key, data, 1*time.Minute)
	}
	utils.JSON(w, http.StatusOK, sessions)
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.UpdateSessionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := retryOnce(func() (*models.GarageSession, error) {
		return h.Service.UpdateStatus(r.Context(), companyID, id, req)
	})
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateSessionCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Service.CheckOut(r.Context(), companyID, id, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateSessionCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.CancelSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Service.Cancel(r.Context(), companyID, id, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	cache.InvalidateSessionCaches(r.Context(), companyID)
	utils.JSON(w, http.StatusOK, session)
}

func (h *SessionHandler) CreateCustomerRequest(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.CreateCustomerRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cr, err := h.Service.CreateCustomerRequest(r.Context(), companyID, sessionID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, cr)
}

func (h *SessionHandler) CompleteCustomerRequest(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid customer request ID")
		return
	}

	if err := h.Service.CompleteCustomerRequest(r.Context(), companyID, id); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (h *SessionHandler) CreateInspection(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.CreateInspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.Service.CreateInspection(r.Context(), companyID, sessionID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, in)
}

func (h *SessionHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	in, err := h.Service.GetInspection(r.Context(), companyID, id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, in)
}

func (h *SessionHandler) AddInspectionFinding(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	inspectionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	var req models.AddInspectionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.Service.AddInspectionFinding(r.Context(), companyID, inspectionID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, item)
}

func (h *SessionHandler) CompleteInspection(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid inspection ID")
		return
	}

	if err := h.Service.CompleteInspection(r.Context(), companyID, id); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func (h *SessionHandler) CreateTestDrive(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	var req models.CreateTestDriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	td, err := h.Service.CreateTestDrive(r.Context(), companyID, sessionID, req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, td)
}

func (h *SessionHandler) CompleteTestDrive(w http.ResponseWriter, r *http.Request) {
	companyID := middleware.CompanyID(r.Context())
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid test drive ID")
		return
	}

	var req models.CompleteTestDriveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Service.CompleteTestDrive(r.Context(), companyID, id, req); err != nil {
		utils.ServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
