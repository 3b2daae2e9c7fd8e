package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garage-backend/internal/handlers"
	"garage-backend/internal/middleware"
)

func NewRouter(
	sessionHandler *handlers.SessionHandler,
	jobCardHandler *handlers.JobCardHandler,
	invoiceHandler *handlers.InvoiceHandler,
	healthHandler *handlers.HealthHandler,
) *mux.Router {
	r := mux.NewRouter()

	// Health endpoints (no tenant required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	// Everything under /api is tenant-scoped
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Tenant)

	// Sessions
	sessionsAPI := api.PathPrefix("/sessions").Subrouter()
	sessionsAPI.HandleFunc("", sessionHandler.CreateSession).Methods("POST")
	sessionsAPI.HandleFunc("", sessionHandler.ListSessions).Methods("GET")
	sessionsAPI.HandleFunc("/{id}", sessionHandler.GetSession).Methods("GET")
	sessionsAPI.HandleFunc("/{id}/status", sessionHandler.UpdateStatus).Methods("PUT")
	sessionsAPI.HandleFunc("/{id}/check-out", sessionHandler.CheckOut).Methods("POST")
	sessionsAPI.HandleFunc("/{id}/cancel", sessionHandler.Cancel).Methods("POST")
	sessionsAPI.HandleFunc("/{id}/customer-request", sessionHandler.CreateCustomerRequest).Methods("POST")
	sessionsAPI.HandleFunc("/{id}/inspection", sessionHandler.CreateInspection).Methods("POST")
	sessionsAPI.HandleFunc("/{id}/test-drive", sessionHandler.CreateTestDrive).Methods("POST")
	sessionsAPI.HandleFunc("/{session_id}/job-card", jobCardHandler.GetBySession).Methods("GET")

	// Intake records
	intakeAPI := api.PathPrefix("/intake").Subrouter()
	intakeAPI.HandleFunc("/customer-requests/{id}/complete", sessionHandler.CompleteCustomerRequest).Methods("POST")
	intakeAPI.HandleFunc("/inspections/{id}", sessionHandler.GetInspection).Methods("GET")
	intakeAPI.HandleFunc("/inspections/{id}/findings", sessionHandler.AddInspectionFinding).Methods("POST")
	intakeAPI.HandleFunc("/inspections/{id}/complete", sessionHandler.CompleteInspection).Methods("POST")
	intakeAPI.HandleFunc("/test-drives/{id}/complete", sessionHandler.CompleteTestDrive).Methods("POST")

	// Job cards
	jobCardsAPI := api.PathPrefix("/job-cards").Subrouter()
	jobCardsAPI.HandleFunc("", jobCardHandler.Create).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}", jobCardHandler.Get).Methods("GET")
	jobCardsAPI.HandleFunc("/{id}/approve", jobCardHandler.Approve).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/authorize", jobCardHandler.Authorize).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/start", jobCardHandler.StartWork).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/complete", jobCardHandler.Complete).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/cancel", jobCardHandler.Cancel).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/status", jobCardHandler.UpdateStatus).Methods("PUT")
	jobCardsAPI.HandleFunc("/{id}/items", jobCardHandler.AddItem).Methods("POST")
	jobCardsAPI.HandleFunc("/{id}/items/from/{source}", jobCardHandler.AddItemFromSource).Methods("POST")

	// Tasks and parts
	itemsAPI := api.PathPrefix("/items").Subrouter()
	itemsAPI.HandleFunc("/{item_id}", jobCardHandler.UpdateItem).Methods("PUT")
	itemsAPI.HandleFunc("/{item_id}", jobCardHandler.RemoveItem).Methods("DELETE")
	itemsAPI.HandleFunc("/{item_id}/status", jobCardHandler.UpdateItemStatus).Methods("PUT")
	itemsAPI.HandleFunc("/{item_id}/quality-check", jobCardHandler.MarkItemQualityChecked).Methods("POST")
	itemsAPI.HandleFunc("/{item_id}/parts", jobCardHandler.AddPart).Methods("POST")
	itemsAPI.HandleFunc("/{item_id}/parts", jobCardHandler.ListParts).Methods("GET")
	itemsAPI.HandleFunc("/{item_id}/time-entries", jobCardHandler.ClockIn).Methods("POST")
	itemsAPI.HandleFunc("/{item_id}/time-entries", jobCardHandler.ListTimeEntries).Methods("GET")

	api.HandleFunc("/parts/{part_id}/status", jobCardHandler.UpdatePartStatus).Methods("PUT")
	api.HandleFunc("/time-entries/{entry_id}/clock-out", jobCardHandler.ClockOut).Methods("POST")

	// Invoices and payments
	invoicesAPI := api.PathPrefix("/invoices").Subrouter()
	invoicesAPI.HandleFunc("", invoiceHandler.Create).Methods("POST")
	invoicesAPI.HandleFunc("", invoiceHandler.List).Methods("GET")
	invoicesAPI.HandleFunc("/generate", invoiceHandler.GenerateFromJobCard).Methods("POST")
	invoicesAPI.HandleFunc("/{id}", invoiceHandler.Get).Methods("GET")
	invoicesAPI.HandleFunc("/{id}/items", invoiceHandler.AddItem).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/items/{item_id}", invoiceHandler.UpdateItem).Methods("PUT")
	invoicesAPI.HandleFunc("/{id}/items/{item_id}", invoiceHandler.RemoveItem).Methods("DELETE")
	invoicesAPI.HandleFunc("/{id}/send", invoiceHandler.MarkAsSent).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/mark-paid", invoiceHandler.MarkAsPaid).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/void", invoiceHandler.Void).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/payments", invoiceHandler.AddPayment).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/recalculate", invoiceHandler.Recalculate).Methods("POST")
	invoicesAPI.HandleFunc("/{id}/pdf", invoiceHandler.DownloadPDF).Methods("GET")
	invoicesAPI.HandleFunc("/{id}/online-order", invoiceHandler.CreateOnlineOrder).Methods("POST")

	api.HandleFunc("/online-payments/verify", invoiceHandler.VerifyOnlinePayment).Methods("POST")

	return r
}
