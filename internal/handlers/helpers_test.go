package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"vaultcore/internal/validator"
	"vaultcore/internal/vault"
)

var (
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	manager   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	usdc      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000000d5")
)

const feeDelay = 28 * 24 * time.Hour

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func testVault() *vault.Vault {
	return &vault.Vault{
		Address:       vaultAddr,
		Name:          "Alpha",
		Manager:       manager,
		Members:       map[common.Address]bool{alice: true},
		Assets:        []vault.AssetConfig{{Asset: usdc, IsDeposit: true}},
		TotalSupply:   sdkmath.NewInt(1_000_000),
		HighWaterMark: sdkmath.NewIntWithDecimal(1, 18),
		Fees:          vault.Fees{Streaming: 100, Performance: 1000},
	}
}

func injectCaller(addr common.Address) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("caller", addr)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
