package middleware

import (
	"context"
	"net/http"
	"strconv"

	"garage-backend/pkg/utils"
)

type contextKey string

const (
	companyIDKey contextKey = "company_id"
	userIDKey    contextKey = "user_id"
)

// Tenant extracts the company from the X-Company-ID header set by the
// authenticating gateway and puts it on the request context. Requests
// without a company are rejected before they reach any handler.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID, err := strconv.Atoi(r.Header.Get("X-Company-ID"))
		if err != nil || companyID <= 0 {
			utils.JSONError(w, http.StatusUnauthorized, "missing or invalid company")
			return
		}
		ctx := context.WithValue(r.Context(), companyIDKey, companyID)

		if userID, err := strconv.Atoi(r.Header.Get("X-User-ID")); err == nil && userID > 0 {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CompanyID returns the tenant set by the Tenant middleware.
func CompanyID(ctx context.Context) int {
	id, _ := ctx.Value(companyIDKey).(int)
	return id
}

// UserID returns the acting user, or nil when the gateway sent none.
func UserID(ctx context.Context) *int {
	id, ok := ctx.Value(userIDKey).(int)
	if !ok {
		return nil
	}
	return &id
}
