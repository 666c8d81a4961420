package handlers

import (
	"net/http"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/guard"
	"vaultcore/internal/models"
	"vaultcore/internal/store"
	"vaultcore/internal/vault"
)

func setupVaultRouter(handler *VaultHandler, caller common.Address) *gin.Engine {
	r := gin.New()
	r.GET("/vaults", handler.ListVaults)
	r.GET("/vaults/:address", handler.GetVault)
	r.GET("/vaults/:address/summary", handler.GetSummary)
	r.GET("/vaults/:address/positions/:holder", handler.GetPosition)
	r.GET("/vaults/:address/events", handler.ListEvents)
	r.POST("/vaults/:address/mint-fees", handler.MintManagerFee)

	auth := r.Group("", injectCaller(caller))
	auth.POST("/vaults", handler.CreateVault)
	auth.POST("/vaults/:address/deposit", handler.Deposit)
	auth.POST("/vaults/:address/withdraw", handler.Withdraw)
	auth.POST("/vaults/:address/execute", handler.Execute)
	auth.POST("/vaults/:address/fees/announce", handler.AnnounceFeeIncrease)
	auth.POST("/vaults/:address/assets", handler.ChangeAssets)
	auth.POST("/vaults/:address/members", handler.AddMembers)
	auth.PUT("/vaults/:address/paused", handler.SetPaused)
	return r
}

const vaultPath = "/vaults/0x00000000000000000000000000000000000000d5"

func TestVaultHandler_CreateVault(t *testing.T) {
	t.Run("returns 201 with the caller as manager", func(t *testing.T) {
		var got vault.CreateRequest
		svc := &mockVaultService{
			createVaultFn: func(req vault.CreateRequest) (*vault.Vault, error) {
				got = req
				v := testVault()
				v.Manager = req.Manager
				return v, nil
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)

		rec := doRequest(r, http.MethodPost, "/vaults", `{
			"name": "Alpha",
			"private": true,
			"assets": [{"asset": "0x00000000000000000000000000000000000000c1", "is_deposit": true}],
			"fees": {"streaming": 100, "performance": 1000},
			"members": ["0x00000000000000000000000000000000000000a1"]
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Manager != manager || !got.Private || len(got.Members) != 1 || got.Members[0] != alice {
			t.Errorf("unexpected create request: %+v", got)
		}
		if got.Fees.Performance != 1000 || len(got.Assets) != 1 || !got.Assets[0].IsDeposit {
			t.Errorf("unexpected fees or assets: %+v", got)
		}
		v := parseJSON(t, rec)["vault"].(map[string]interface{})
		if v["manager"] != manager.Hex() || v["total_supply"] != "1000000" {
			t.Errorf("unexpected vault body: %v", v)
		}
	})

	t.Run("returns 400 on fee above 10000 bps", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, "/vaults", `{
			"name": "Alpha",
			"assets": [{"asset": "0x00000000000000000000000000000000000000c1", "is_deposit": true}],
			"fees": {"entry": 20000}
		}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on missing assets", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, "/vaults", `{"name": "Alpha"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes through fee ceiling errors", func(t *testing.T) {
		svc := &mockVaultService{
			createVaultFn: func(vault.CreateRequest) (*vault.Vault, error) {
				return nil, apperrors.ErrFeeCeilingExceeded
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, "/vaults", `{
			"name": "Alpha",
			"assets": [{"asset": "0x00000000000000000000000000000000000000c1", "is_deposit": true}]
		}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FEE_CEILING_EXCEEDED")
	})
}

func TestVaultHandler_GetVault(t *testing.T) {
	t.Run("returns 400 on invalid address", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodGet, "/vaults/not-an-address", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 404 on unknown vault", func(t *testing.T) {
		svc := &mockVaultService{
			getVaultFn: func(common.Address) (*vault.Vault, error) { return nil, apperrors.ErrVaultNotFound },
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)
		rec := doRequest(r, http.MethodGet, vaultPath, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VAULT_NOT_FOUND")
	})

	t.Run("lists members sorted", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodGet, vaultPath, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		v := parseJSON(t, rec)["vault"].(map[string]interface{})
		members := v["members"].([]interface{})
		if len(members) != 1 || members[0] != alice.Hex() {
			t.Errorf("unexpected members %v", members)
		}
	})
}

func TestVaultHandler_GetSummary(t *testing.T) {
	svc := &mockVaultService{
		getSummaryFn: func(common.Address) (vault.Summary, error) {
			return vault.Summary{
				Vault:      testVault(),
				FundValue:  sdkmath.NewIntWithDecimal(1234, 18),
				TokenPrice: sdkmath.NewIntWithDecimal(1, 18),
				Assets: []vault.AssetSummary{{
					Asset: usdc, Symbol: "USDC", Decimals: 6, IsDeposit: true,
					Balance: sdkmath.NewInt(1_234_000_000), ValueUSD: sdkmath.NewIntWithDecimal(1234, 18),
				}},
			}, nil
		},
	}
	r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)

	rec := doRequest(r, http.MethodGet, vaultPath+"/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	s := parseJSON(t, rec)["summary"].(map[string]interface{})
	if s["fund_value_usd"] != "1234.00" {
		t.Errorf("expected fund_value_usd 1234.00, got %v", s["fund_value_usd"])
	}
	asset := s["assets"].([]interface{})[0].(map[string]interface{})
	if asset["formatted"] != "1234" || asset["symbol"] != "USDC" {
		t.Errorf("unexpected asset line %v", asset)
	}
}

func TestVaultHandler_Deposit(t *testing.T) {
	t.Run("returns 200 with minted shares", func(t *testing.T) {
		svc := &mockVaultService{
			depositFn: func(addr, caller, asset common.Address, amt sdkmath.Int) (vault.DepositResult, error) {
				if addr != vaultAddr || caller != alice || asset != usdc {
					t.Errorf("unexpected deposit args %s %s %s", addr.Hex(), caller.Hex(), asset.Hex())
				}
				return vault.DepositResult{Shares: amt.MulRaw(1_000_000_000_000), EntryFee: sdkmath.ZeroInt(), ValueUSD: sdkmath.ZeroInt()}, nil
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), alice)

		rec := doRequest(r, http.MethodPost, vaultPath+"/deposit",
			`{"asset":"0x00000000000000000000000000000000000000c1","amount":"1000000"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		d := parseJSON(t, rec)["deposit"].(map[string]interface{})
		if d["shares"] != "1000000000000000000" {
			t.Errorf("unexpected shares %v", d["shares"])
		}
	})

	t.Run("returns 400 on decimal amount", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), alice)
		rec := doRequest(r, http.MethodPost, vaultPath+"/deposit",
			`{"asset":"0x00000000000000000000000000000000000000c1","amount":"1.5"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 403 for non members", func(t *testing.T) {
		svc := &mockVaultService{
			depositFn: func(common.Address, common.Address, common.Address, sdkmath.Int) (vault.DepositResult, error) {
				return vault.DepositResult{}, apperrors.ErrNotMember
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), alice)
		rec := doRequest(r, http.MethodPost, vaultPath+"/deposit",
			`{"asset":"0x00000000000000000000000000000000000000c1","amount":"5"}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NOT_A_MEMBER")
	})
}

func TestVaultHandler_Withdraw(t *testing.T) {
	svc := &mockVaultService{
		withdrawFn: func(_, _ common.Address, shares sdkmath.Int) (vault.WithdrawResult, error) {
			return vault.WithdrawResult{
				Redeemed:  shares,
				ExitFee:   sdkmath.ZeroInt(),
				Transfers: []guard.Transfer{{Asset: usdc, Amount: sdkmath.NewInt(500)}},
			}, nil
		},
	}
	r := setupVaultRouter(NewVaultHandler(svc, feeDelay), alice)

	rec := doRequest(r, http.MethodPost, vaultPath+"/withdraw", `{"shares":"42"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	w := parseJSON(t, rec)["withdrawal"].(map[string]interface{})
	if w["redeemed"] != "42" {
		t.Errorf("unexpected redeemed %v", w["redeemed"])
	}
	transfers := w["transfers"].([]interface{})
	if len(transfers) != 1 || transfers[0].(map[string]interface{})["amount"] != "500" {
		t.Errorf("unexpected transfers %v", transfers)
	}
}

func TestVaultHandler_Execute(t *testing.T) {
	t.Run("decodes hex call data", func(t *testing.T) {
		var got []vault.Call
		svc := &mockVaultService{
			executeFn: func(_, _ common.Address, calls []vault.Call) error {
				got = calls
				return nil
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, vaultPath+"/execute",
			`{"calls":[{"target":"0x00000000000000000000000000000000000000c1","data":"0x095ea7b3"}]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 1 || got[0].Target != usdc || len(got[0].Data) != 4 || got[0].Data[0] != 0x09 {
			t.Errorf("unexpected calls %+v", got)
		}
	})

	t.Run("returns 400 on bad hex", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, vaultPath+"/execute",
			`{"calls":[{"target":"0x00000000000000000000000000000000000000c1","data":"zz"}]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on empty batch", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, vaultPath+"/execute", `{"calls":[]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps guard rejections", func(t *testing.T) {
		svc := &mockVaultService{
			executeFn: func(common.Address, common.Address, []vault.Call) error {
				return apperrors.ErrInvalidDestination
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, vaultPath+"/execute",
			`{"calls":[{"target":"0x00000000000000000000000000000000000000c1","data":"0x00"}]}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_DESTINATION")
	})
}

func TestVaultHandler_AnnounceFeeIncrease(t *testing.T) {
	svc := &mockVaultService{}
	svc.getVaultFn = func(common.Address) (*vault.Vault, error) {
		v := testVault()
		v.PendingFees = &vault.FeeChange{Fees: vault.Fees{Streaming: 200}}
		return v, nil
	}
	r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)

	rec := doRequest(r, http.MethodPost, vaultPath+"/fees/announce", `{"streaming":200,"performance":1000}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	pending := parseJSON(t, rec)["pending_fees"].(map[string]interface{})
	// AnnouncedAt is zero in the mock, so ready_at is the delay past year 1.
	if pending["ready_at"] != "0001-01-29T00:00:00Z" {
		t.Errorf("unexpected ready_at %v", pending["ready_at"])
	}
}

func TestVaultHandler_Members(t *testing.T) {
	var got []common.Address
	svc := &mockVaultService{
		addMembersFn: func(_, caller common.Address, members []common.Address) error {
			if caller != manager {
				return apperrors.ErrOnlyManager
			}
			got = members
			return nil
		},
	}

	t.Run("adds members", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)
		rec := doRequest(r, http.MethodPost, vaultPath+"/members",
			`{"members":["0x00000000000000000000000000000000000000a1"]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(got) != 1 || got[0] != alice {
			t.Errorf("unexpected members %v", got)
		}
	})

	t.Run("rejects non managers", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), alice)
		rec := doRequest(r, http.MethodPost, vaultPath+"/members",
			`{"members":["0x00000000000000000000000000000000000000a1"]}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ONLY_MANAGER")
	})
}

func TestVaultHandler_SetPaused(t *testing.T) {
	t.Run("requires the paused flag", func(t *testing.T) {
		r := setupVaultRouter(NewVaultHandler(&mockVaultService{}, feeDelay), owner)
		rec := doRequest(r, http.MethodPut, vaultPath+"/paused", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("forwards false", func(t *testing.T) {
		called := false
		svc := &mockVaultService{
			setPausedFn: func(_, _ common.Address, paused bool) error {
				called = true
				if paused {
					t.Error("expected paused=false")
				}
				return nil
			},
		}
		r := setupVaultRouter(NewVaultHandler(svc, feeDelay), owner)
		rec := doRequest(r, http.MethodPut, vaultPath+"/paused", `{"paused":false}`)
		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected 200 and a service call, got %d", rec.Code)
		}
	})
}

func TestVaultHandler_ListEvents(t *testing.T) {
	var gotKind string
	var gotPage store.Page
	svc := &mockVaultService{
		listEventsFn: func(_ common.Address, kind string, page store.Page) (*store.Paged[models.Event], error) {
			gotKind, gotPage = kind, page
			resp := store.NewPaged([]models.Event{{ID: "e1", Kind: kind}}, page, 3)
			return &resp, nil
		},
	}
	r := setupVaultRouter(NewVaultHandler(svc, feeDelay), manager)

	rec := doRequest(r, http.MethodGet, vaultPath+"/events?kind=deposit&page=2&page_size=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotKind != "deposit" || gotPage.Number != 2 || gotPage.Size != 1 {
		t.Errorf("unexpected filter %q %+v", gotKind, gotPage)
	}
	body := parseJSON(t, rec)
	if body["total_pages"].(float64) != 3 {
		t.Errorf("expected 3 pages, got %v", body["total_pages"])
	}

	t.Run("rejects oversized pages", func(t *testing.T) {
		rec := doRequest(r, http.MethodGet, vaultPath+"/events?page_size=1000", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestVaultHandler_Unauthenticated(t *testing.T) {
	r := gin.New()
	h := NewVaultHandler(&mockVaultService{}, feeDelay)
	r.POST("/vaults/:address/withdraw", h.Withdraw)

	rec := doRequest(r, http.MethodPost, vaultPath+"/withdraw", `{"shares":"1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
}
