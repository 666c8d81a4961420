package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/middleware"
)

const testSecret = "handler-test-secret"

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/challenge", handler.Challenge)
	r.POST("/auth/verify", handler.Verify)
	r.POST("/auth/refresh", handler.Refresh)
	return r
}

func TestAuthHandler_Challenge(t *testing.T) {
	r := setupAuthRouter(NewAuthHandler(&mockAuthService{}, testSecret, time.Hour))

	t.Run("returns the message to sign", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/auth/challenge", `{"address":"0x00000000000000000000000000000000000000a1"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		msg, _ := parseJSON(t, rec)["message"].(string)
		if !strings.Contains(msg, alice.Hex()) {
			t.Errorf("expected message to name %s, got %q", alice.Hex(), msg)
		}
	})

	t.Run("returns 400 on invalid address", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/auth/challenge", `{"address":"alice"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Verify(t *testing.T) {
	t.Run("issues tokens for a valid signature", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockAuthService{}, testSecret, time.Hour))
		rec := doRequest(r, http.MethodPost, "/auth/verify",
			`{"address":"0x00000000000000000000000000000000000000a1","signature":"0x01"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		tokens := parseJSON(t, rec)["tokens"].(map[string]interface{})
		refresh, _ := tokens["refresh_token"].(string)
		addr, err := middleware.ValidateRefreshToken(testSecret, refresh)
		if err != nil || addr != alice {
			t.Errorf("refresh token does not authenticate alice: %v", err)
		}
	})

	t.Run("returns 401 on a bad signature", func(t *testing.T) {
		svc := &mockAuthService{
			verifyFn: func(common.Address, []byte) error { return apperrors.ErrUnauthorized },
		}
		r := setupAuthRouter(NewAuthHandler(svc, testSecret, time.Hour))
		rec := doRequest(r, http.MethodPost, "/auth/verify",
			`{"address":"0x00000000000000000000000000000000000000a1","signature":"0x01"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})

	t.Run("returns 400 on non hex signature", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockAuthService{}, testSecret, time.Hour))
		rec := doRequest(r, http.MethodPost, "/auth/verify",
			`{"address":"0x00000000000000000000000000000000000000a1","signature":"signed"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	r := setupAuthRouter(NewAuthHandler(&mockAuthService{}, testSecret, time.Hour))
	pair, err := middleware.IssueTokens(testSecret, alice, time.Hour)
	if err != nil {
		t.Fatalf("IssueTokens: %v", err)
	}

	t.Run("exchanges a refresh token", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+pair.RefreshToken+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["address"] != alice.Hex() {
			t.Errorf("unexpected address")
		}
	})

	t.Run("rejects an access token", func(t *testing.T) {
		rec := doRequest(r, http.MethodPost, "/auth/refresh", `{"refresh_token":"`+pair.AccessToken+`"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
