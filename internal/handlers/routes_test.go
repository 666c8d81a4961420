package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"vaultcore/internal/middleware"
)

func setupAPI() *gin.Engine {
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Auth:     NewAuthHandler(&mockAuthService{}, testSecret, time.Hour),
		Vault:    NewVaultHandler(&mockVaultService{}, feeDelay),
		Registry: NewRegistryHandler(&mockRegistryService{}),
		Price:    NewPriceHandler(&mockPriceService{}),
	}, testSecret, "ingest-key")
	return r
}

func TestRegisterRoutes(t *testing.T) {
	r := setupAPI()
	pair, err := middleware.IssueTokens(testSecret, alice, time.Hour)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}
	const prices = `{"prices":[{"asset":"0x00000000000000000000000000000000000000c1","source":"manual","value":"1","decimals":0}]}`

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "public_vault_list", method: http.MethodGet, path: "/api/v1/vaults", wantStatus: http.StatusOK},
		{name: "public_registry", method: http.MethodGet, path: "/api/v1/registry", wantStatus: http.StatusOK},
		{name: "deposit_requires_token", method: http.MethodPost, path: "/api/v1" + vaultPath + "/deposit",
			body: `{"asset":"0x00000000000000000000000000000000000000c1","amount":"1"}`, wantStatus: http.StatusUnauthorized},
		{name: "deposit_with_token", method: http.MethodPost, path: "/api/v1" + vaultPath + "/deposit",
			body:    `{"asset":"0x00000000000000000000000000000000000000c1","amount":"1"}`,
			headers: map[string]string{"Authorization": "Bearer " + pair.AccessToken}, wantStatus: http.StatusOK},
		{name: "registry_mutation_requires_token", method: http.MethodPut, path: "/api/v1/registry/paused",
			body: `{"paused":true}`, wantStatus: http.StatusUnauthorized},
		{name: "ingest_requires_key", method: http.MethodPost, path: "/api/v1/pipeline/prices",
			body: prices, wantStatus: http.StatusUnauthorized},
		{name: "ingest_with_key", method: http.MethodPost, path: "/api/v1/pipeline/prices",
			body: prices, headers: map[string]string{"X-API-Key": "ingest-key"}, wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
