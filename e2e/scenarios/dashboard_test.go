//go:build e2e
// +build e2e

package scenarios

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"snooptrade/e2e"
	"snooptrade/e2e/mocks"
)

func setup(t *testing.T) *e2e.TestHarness {
	t.Helper()
	e2e.RequireDockerCompose(t)

	harness := e2e.NewTestHarness(t)
	if err := harness.Setup(); err != nil {
		t.Fatalf("failed to setup test harness: %v", err)
	}
	t.Cleanup(harness.Teardown)
	return harness
}

func TestLogin_StoresSealedToken(t *testing.T) {
	harness := setup(t)

	resp := harness.DoRequest(http.MethodPost, "/login", url.Values{
		"email":    {"user@test.com"},
		"password": {"secret1"},
	})

	if resp.Code != http.StatusSeeOther || resp.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %d %s", resp.Code, resp.Header().Get("Location"))
	}

	s := harness.Session()
	if s == nil {
		t.Fatal("expected a stored session")
	}
	if token, _ := s.Token(); token != mocks.ValidToken {
		t.Errorf("expected token %q, got %q", mocks.ValidToken, token)
	}

	raw, err := harness.StoredToken(s.ID)
	if err != nil {
		t.Fatalf("failed to read stored token: %v", err)
	}
	if raw == "" || raw == mocks.ValidToken {
		t.Errorf("token must be sealed at rest, got %q", raw)
	}
}

func TestDashboard_LoadsCompany(t *testing.T) {
	harness := setup(t)
	harness.Login()
	mock := harness.MockServer()

	resp := harness.DoRequest(http.MethodGet, "/dashboard?company=AAPL&window=6m", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	t.Run("exactly one call per dataset", func(t *testing.T) {
		if n := mock.CountRequests(mocks.EndpointStocks); n != 1 {
			t.Errorf("expected 1 stocks request, got %d", n)
		}
		if n := mock.CountRequests(mocks.EndpointTransactions); n != 1 {
			t.Errorf("expected 1 transactions request, got %d", n)
		}
	})

	t.Run("labels known codes and passes unknown ones through", func(t *testing.T) {
		body := resp.Body.String()
		if !strings.Contains(body, "Exercise/Conversion") {
			t.Error("expected M to be labelled Exercise/Conversion")
		}
		if !strings.Contains(body, `<td title="Z">Z</td>`) {
			t.Error("expected unknown code Z to be shown verbatim")
		}
	})

	t.Run("selection survives in the session", func(t *testing.T) {
		s := harness.Session()
		if s == nil || s.Selection.Company != "AAPL" {
			t.Fatalf("expected AAPL selection, got %+v", s)
		}

		resp := harness.DoRequest(http.MethodGet, "/dashboard", nil)
		if !strings.Contains(resp.Body.String(), "<h2>AAPL</h2>") {
			t.Error("expected the dashboard to restore AAPL")
		}
		if n := mock.CountRequests(mocks.EndpointStocks); n != 1 {
			t.Errorf("restoring the selection must not refetch, got %d", n)
		}
	})
}

func TestDashboard_UnauthorizedEndsSession(t *testing.T) {
	harness := setup(t)
	harness.Login()
	sid := harness.Session().ID

	harness.MockServer().SetFailure(mocks.EndpointStocks, http.StatusUnauthorized, "Could not validate credentials")
	resp := harness.DoHTMXRequest(http.MethodGet, "/dashboard?company=AAPL&window=6m", nil)

	if resp.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("expected HX-Redirect /login, got %q", resp.Header().Get("HX-Redirect"))
	}
	if harness.HasSessionCookie() {
		t.Error("session cookie should be cleared")
	}
	if _, err := harness.StoredToken(sid); err == nil {
		t.Error("session row should be deleted")
	}
}

func TestDashboard_PredictAndClear(t *testing.T) {
	harness := setup(t)
	harness.Login()
	harness.DoRequest(http.MethodGet, "/dashboard?company=AAPL&window=6m", nil)

	resp := harness.DoHTMXRequest(http.MethodPost, "/dashboard/predict", url.Values{})
	if !strings.Contains(resp.Body.String(), `id="forecast"`) {
		t.Error("expected forecast section")
	}

	resp = harness.DoHTMXRequest(http.MethodPost, "/dashboard/clear", url.Values{})
	if !strings.Contains(resp.Body.String(), "Select a company") {
		t.Error("expected empty dashboard after clear")
	}
	if s := harness.Session(); s == nil || s.Selection.Company != "" {
		t.Errorf("expected selection to be cleared, got %+v", s)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	harness := setup(t)
	harness.Login()
	sid := harness.Session().ID

	resp := harness.DoRequest(http.MethodPost, "/logout", url.Values{})
	if resp.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.Code)
	}
	if _, err := harness.StoredToken(sid); err == nil {
		t.Error("session row should be deleted")
	}
	if resp := harness.DoRequest(http.MethodGet, "/dashboard", nil); resp.Header().Get("Location") != "/login" {
		t.Error("expected protected page to redirect after logout")
	}
}
