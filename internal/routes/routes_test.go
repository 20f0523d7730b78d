package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vesta-dapp/vesta_ledger/internal/config"
	"github.com/vesta-dapp/vesta_ledger/internal/ledger"
	"github.com/vesta-dapp/vesta_ledger/internal/logging"
)

func testApp(t *testing.T, clock *ledger.ManualClock, mintAuthority string) *fiber.App {
	t.Helper()
	cfg := config.Config{
		AppName:       "vesta-test",
		AppEnv:        "test",
		JWTSecret:     "test-secret",
		MintAuthority: mintAuthority,
		TokenName:     "Vesta Dapp Token",
		TokenSymbol:   "VDT",
		TokenDecimals: 18,
	}
	app := fiber.New()
	err := Setup(app, Deps{
		Cfg:    cfg,
		Logger: logging.Discard(),
		Ledger: ledger.NewInMemoryWithClock(clock.Now),
	})
	if err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, address ledger.Address, pin string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/accounts", "", fiber.Map{
		"address": address.String(),
		"pin":     pin,
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body %v", status, body)
	}
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/sessions", "", fiber.Map{
		"address": address.String(),
		"pin":     pin,
	})
	if status != http.StatusOK {
		t.Fatalf("login status = %d, body %v", status, body)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("login returned no access token")
	}
	return token
}

func TestAPILifecycle(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	minter := ledger.TestAddress(0xA1)
	holder := ledger.TestAddress(0xB2)
	app := testApp(t, clock, minter.String())

	session := login(t, app, minter, "4321")

	// Mint 100 tokens to the authority's own account.
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/token/mint", session, fiber.Map{
		"to":     minter.String(),
		"amount": "100",
	})
	if status != http.StatusCreated {
		t.Fatalf("mint status = %d, body %v", status, body)
	}
	if got := body["total_supply"]; got != "100000000000000000000" {
		t.Fatalf("total_supply = %v", got)
	}

	// Transfer 40 away.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/transfers", session, fiber.Map{
		"to":     holder.String(),
		"amount": "40",
	})
	if status != http.StatusCreated {
		t.Fatalf("transfer status = %d, body %v", status, body)
	}
	if got := body["from_balance"]; got != "60000000000000000000" {
		t.Fatalf("from_balance = %v", got)
	}

	// Lock 25 of the remaining 60 for one hour.
	status, body = doJSON(t, app, http.MethodPost, "/api/v1/locks", session, fiber.Map{
		"amount":   "25",
		"duration": "3600",
	})
	if status != http.StatusCreated {
		t.Fatalf("lock status = %d, body %v", status, body)
	}
	if got := body["index"]; got != float64(0) {
		t.Fatalf("lock index = %v", got)
	}

	// The balance view reflects the split.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/accounts/"+minter.String()+"/balance", "", nil)
	if status != http.StatusOK {
		t.Fatalf("balance status = %d", status)
	}
	if body["available"] != "35000000000000000000" || body["locked"] != "25000000000000000000" {
		t.Fatalf("balance view = %v", body)
	}

	// A transfer beyond the available portion is refused even though the
	// gross balance covers it.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/transfers", session, fiber.Map{
		"to":     holder.String(),
		"amount": "50",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("over-available transfer status = %d", status)
	}

	// Too early to unlock.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/locks/0/unlock", session, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("early unlock status = %d", status)
	}

	clock.Advance(time.Hour)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/locks/0/unlock", session, nil)
	if status != http.StatusOK {
		t.Fatalf("unlock status = %d, body %v", status, body)
	}
	if got := body["released"]; got != "25000000000000000000" {
		t.Fatalf("released = %v", got)
	}

	// Repeating the unlock conflicts, unknown indices are not found.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/locks/0/unlock", session, nil)
	if status != http.StatusConflict {
		t.Fatalf("repeat unlock status = %d", status)
	}
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/locks/7/unlock", session, nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown lock status = %d", status)
	}
}

func TestAPIMintRequiresAuthority(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	minter := ledger.TestAddress(0xA1)
	outsider := ledger.TestAddress(0xC3)
	app := testApp(t, clock, minter.String())

	session := login(t, app, outsider, "9876")

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/token/mint", session, fiber.Map{
		"to":     outsider.String(),
		"amount": "1",
	})
	if status != http.StatusForbidden {
		t.Fatalf("outsider mint status = %d", status)
	}
}

func TestAPIMintDisabledWithoutAuthority(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	caller := ledger.TestAddress(0xA1)
	app := testApp(t, clock, "")

	session := login(t, app, caller, "4321")

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/token/mint", session, fiber.Map{
		"to":     caller.String(),
		"amount": "1",
	})
	if status != http.StatusForbidden {
		t.Fatalf("fixed-supply mint status = %d", status)
	}
}

func TestAPIMutationsRequireSession(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	app := testApp(t, clock, "")

	for _, path := range []string{"/api/v1/transfers", "/api/v1/locks", "/api/v1/locks/0/unlock"} {
		status, _ := doJSON(t, app, http.MethodPost, path, "", fiber.Map{})
		if status != http.StatusUnauthorized {
			t.Fatalf("POST %s without session status = %d", path, status)
		}
	}
}

func TestAPITokenInfo(t *testing.T) {
	clock := ledger.NewManualClock(time.Unix(1_700_000_000, 0))
	app := testApp(t, clock, "")

	status, body := doJSON(t, app, http.MethodGet, "/api/v1/token", "", nil)
	if status != http.StatusOK {
		t.Fatalf("token info status = %d", status)
	}
	if body["name"] != "Vesta Dapp Token" || body["symbol"] != "VDT" {
		t.Fatalf("token info = %v", body)
	}
	if body["total_supply"] != "0" {
		t.Fatalf("total_supply = %v", body["total_supply"])
	}
}
