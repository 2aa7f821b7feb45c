package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"kasir/internal/core/apperror"
	appctx "kasir/internal/core/context"
)

func TestRequireStoreAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler()
	storeID := "2f0c8d6a-9b1e-7c4d-8e2f-000000000001"

	tests := []struct {
		name string
		user *appctx.UserContext
		want bool
	}{
		{"no user in context", nil, false},
		{"token scoped to the store", &appctx.UserContext{UserID: "u1", StoreIDs: []string{storeID}}, true},
		{"token scoped to another store", &appctx.UserContext{UserID: "u2", StoreIDs: []string{"2f0c8d6a-9b1e-7c4d-8e2f-000000000002"}}, false},
		{"admin bypasses store scope", &appctx.UserContext{UserID: "a1", IsAdmin: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = req.WithContext(appctx.WithUser(req.Context(), tt.user))
			}
			c.Request = req

			got := h.RequireStoreAccess(c, storeID)
			if got != tt.want {
				t.Fatalf("RequireStoreAccess = %v, want %v", got, tt.want)
			}
			if tt.want {
				return
			}
			if !c.IsAborted() {
				t.Error("denied request must be aborted")
			}
			last := c.Errors.Last()
			if last == nil {
				t.Fatal("denied request must register an error")
			}
			if !apperror.IsCode(last.Err, apperror.CodeForbidden) {
				t.Errorf("want FORBIDDEN, got %v", last.Err)
			}
		})
	}
}
