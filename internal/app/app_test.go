package app

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"snooptrade/config"
	"snooptrade/internal/dashboard"
	"snooptrade/models"
	"snooptrade/observability"
	"snooptrade/services"
)

// mockUpstream implements services.SnoopTradeServiceInterface
type mockUpstream struct {
	loginToken string
	loginErr   error
	fedEmail   string
	signUpReq  *models.SignUpRequest
	signUpErr  error
	profile    *models.Profile
	meErr      error
	update     *models.ProfileUpdate
	updateErr  error
	stocksErr  error
	calls      atomic.Int32
}

func (m *mockUpstream) Login(ctx context.Context, email, password string) (string, error) {
	m.calls.Add(1)
	return m.loginToken, m.loginErr
}

func (m *mockUpstream) LoginFederated(ctx context.Context, email, credential string) (string, error) {
	m.calls.Add(1)
	m.fedEmail = email
	return m.loginToken, m.loginErr
}

func (m *mockUpstream) SignUp(ctx context.Context, req models.SignUpRequest) error {
	m.calls.Add(1)
	m.signUpReq = &req
	return m.signUpErr
}

func (m *mockUpstream) Me(ctx context.Context, token string) (*models.Profile, error) {
	m.calls.Add(1)
	return m.profile, m.meErr
}

func (m *mockUpstream) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) error {
	m.calls.Add(1)
	m.update = &update
	return m.updateErr
}

func (m *mockUpstream) GetStocks(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawPricePoint, error) {
	m.calls.Add(1)
	if m.stocksErr != nil {
		return nil, m.stocksErr
	}
	v := 10.0
	return []models.RawPricePoint{{Ticker: symbol, Date: "2024-01-02", Open: &v, Close: &v}}, nil
}

func (m *mockUpstream) GetTransactions(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawTrade, error) {
	m.calls.Add(1)
	return nil, nil
}

func (m *mockUpstream) Forecast(ctx context.Context, token string, points []models.ForecastInput) ([]models.ForecastPoint, error) {
	m.calls.Add(1)
	return []models.ForecastPoint{{Date: "2024-01-03", Open: 11}}, nil
}

func testApp(up *mockUpstream) *App {
	return New(config.NewTestConfig(), up, observability.NewMetrics(prometheus.NewRegistry()))
}

func formMessage(t *testing.T, err error) string {
	t.Helper()
	var fe *FormError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormError, got %T (%v)", err, err)
	}
	return fe.Message
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		up := &mockUpstream{loginToken: "abc"}
		token, err := testApp(up).Login(context.Background(), " user@test.com ", "secret1")
		if err != nil || token != "abc" {
			t.Fatalf("Login() = %q, %v", token, err)
		}
	})

	t.Run("missing fields never reach upstream", func(t *testing.T) {
		up := &mockUpstream{}
		_, err := testApp(up).Login(context.Background(), "", "x")
		if formMessage(t, err) != MsgMissingCredentials || up.calls.Load() != 0 {
			t.Errorf("unexpected %v after %d calls", err, up.calls.Load())
		}
	})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"server detail", &services.APIError{Operation: services.OpLogin, Status: http.StatusUnauthorized, Message: "Incorrect email or password"}, "Incorrect email or password"},
		{"no detail", &services.APIError{Operation: services.OpLogin, Status: http.StatusBadRequest}, MsgLoginFailed},
		{"network", errors.New("dial tcp: connection refused"), MsgSomethingWrong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testApp(&mockUpstream{loginErr: tt.err}).Login(context.Background(), "user@test.com", "secret1")
			if got := formMessage(t, err); got != tt.want {
				t.Errorf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func googleCredential(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestLoginGoogle(t *testing.T) {
	t.Run("email from claims", func(t *testing.T) {
		up := &mockUpstream{loginToken: "g-token"}
		token, err := testApp(up).LoginGoogle(context.Background(), googleCredential(t, jwt.MapClaims{"email": "ada@test.com"}))
		if err != nil || token != "g-token" {
			t.Fatalf("LoginGoogle() = %q, %v", token, err)
		}
		if up.fedEmail != "ada@test.com" {
			t.Errorf("federated email = %q", up.fedEmail)
		}
	})

	t.Run("no email claim", func(t *testing.T) {
		up := &mockUpstream{}
		_, err := testApp(up).LoginGoogle(context.Background(), googleCredential(t, jwt.MapClaims{"sub": "1"}))
		if formMessage(t, err) != MsgGoogleNoEmail || up.calls.Load() != 0 {
			t.Errorf("unexpected %v", err)
		}
	})

	t.Run("garbage credential", func(t *testing.T) {
		_, err := testApp(&mockUpstream{}).LoginGoogle(context.Background(), "not-a-jwt")
		if formMessage(t, err) != MsgGoogleBadToken {
			t.Errorf("unexpected %v", err)
		}
	})

	t.Run("upstream rejects", func(t *testing.T) {
		up := &mockUpstream{loginErr: &services.APIError{Status: http.StatusUnauthorized}}
		_, err := testApp(up).LoginGoogle(context.Background(), googleCredential(t, jwt.MapClaims{"email": "a@b.co"}))
		if formMessage(t, err) != MsgGoogleFailed {
			t.Errorf("unexpected %v", err)
		}
	})
}

func TestValidateSignUp(t *testing.T) {
	tests := []struct {
		name       string
		fullName   string
		email      string
		password   string
		confirm    string
		wantFields []string
	}{
		{"valid", "Ada Lovelace", "ada@test.com", "secret1", "secret1", nil},
		{"single name", "Ada", "ada@test.com", "secret1", "secret1", []string{FieldName}},
		{"double space", "Ada  Lovelace", "ada@test.com", "secret1", "secret1", []string{FieldName}},
		{"bad email", "Ada Lovelace", "ada@test", "secret1", "secret1", []string{FieldEmail}},
		{"short password", "Ada Lovelace", "ada@test.com", "12345", "12345", []string{FieldPassword}},
		{"mismatch", "Ada Lovelace", "ada@test.com", "secret1", "secret2", []string{FieldConfirmPassword}},
		{"everything", "", "", "", "x", []string{FieldName, FieldEmail, FieldPassword, FieldConfirmPassword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignUp(tt.fullName, tt.email, tt.password, tt.confirm)
			if tt.wantFields == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != len(tt.wantFields) {
				t.Errorf("got fields %v, want %v", verrs, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if verrs[f] == "" {
					t.Errorf("missing error for %s", f)
				}
			}
		})
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	if err := ValidateProfileUpdate("Ada", "", ""); err != nil {
		t.Errorf("blank password should be allowed, got %v", err)
	}
	if err := ValidateProfileUpdate(" ", "", ""); err == nil {
		t.Error("name is required")
	}
	var verrs ValidationErrors
	if err := ValidateProfileUpdate("Ada", "secret1", "other"); !errors.As(err, &verrs) || verrs[FieldConfirmPassword] == "" {
		t.Errorf("unconfirmed password should fail, got %v", err)
	}
}

func TestSignUp(t *testing.T) {
	t.Run("invalid form skips upstream", func(t *testing.T) {
		up := &mockUpstream{}
		if err := testApp(up).SignUp(context.Background(), "Ada", "ada@test.com", "secret1", "secret1"); err == nil {
			t.Fatal("expected validation error")
		}
		if up.calls.Load() != 0 {
			t.Errorf("upstream called %d times", up.calls.Load())
		}
	})

	t.Run("trims and sends", func(t *testing.T) {
		up := &mockUpstream{}
		if err := testApp(up).SignUp(context.Background(), " Ada Lovelace ", " ada@test.com", "secret1", "secret1"); err != nil {
			t.Fatalf("SignUp: %v", err)
		}
		if up.signUpReq.Name != "Ada Lovelace" || up.signUpReq.Email != "ada@test.com" {
			t.Errorf("unexpected request %+v", up.signUpReq)
		}
	})

	t.Run("conflict", func(t *testing.T) {
		up := &mockUpstream{signUpErr: &services.APIError{Status: http.StatusConflict, Message: "Email already exists"}}
		err := testApp(up).SignUp(context.Background(), "Ada Lovelace", "ada@test.com", "secret1", "secret1")
		if formMessage(t, err) != "Email already exists" {
			t.Errorf("unexpected %v", err)
		}
	})
}

func TestProfile(t *testing.T) {
	a := testApp(&mockUpstream{profile: &models.Profile{Name: "Ada", Email: "ada@test.com"}})
	p, err := a.Profile(context.Background(), "abc")
	if err != nil || p.Email != "ada@test.com" {
		t.Fatalf("Profile() = %+v, %v", p, err)
	}

	if _, err := a.Profile(context.Background(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("no token should be unauthorized, got %v", err)
	}

	a = testApp(&mockUpstream{meErr: &services.APIError{Status: http.StatusUnauthorized}})
	if _, err := a.Profile(context.Background(), "expired"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("401 should map to ErrUnauthorized, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	up := &mockUpstream{}
	if err := testApp(up).UpdateProfile(context.Background(), "abc", " Ada ", "", ""); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if up.update.Name != "Ada" || up.update.Password != "" {
		t.Errorf("unexpected update %+v", up.update)
	}

	up = &mockUpstream{updateErr: &services.APIError{Status: http.StatusUnauthorized}}
	if err := testApp(up).UpdateProfile(context.Background(), "abc", "Ada", "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	up = &mockUpstream{updateErr: &services.APIError{Status: http.StatusInternalServerError}}
	if err := testApp(up).UpdateProfile(context.Background(), "abc", "Ada", "", ""); formMessage(t, err) != MsgUpdateFailed {
		t.Errorf("unexpected %v", err)
	}
}

func TestResolveSelection(t *testing.T) {
	a := testApp(&mockUpstream{})

	company, window, err := a.ResolveSelection("aapl", "1y")
	if err != nil || company != "AAPL" || window != models.WindowOneYear {
		t.Errorf("got %q %q %v", company, window, err)
	}

	_, window, _ = a.ResolveSelection("", "forever")
	if window != models.TimeWindow(a.Config().Dashboard.DefaultWindow) {
		t.Errorf("invalid window should fall back to the default, got %q", window)
	}

	if _, _, err := a.ResolveSelection("ZZZZ", "6m"); !errors.Is(err, ErrUnknownCompany) {
		t.Errorf("expected ErrUnknownCompany, got %v", err)
	}
}

func TestDashboardFlow(t *testing.T) {
	ctx := context.Background()
	up := &mockUpstream{}
	a := testApp(up)

	if _, err := a.Dashboard(ctx, "s1", "", "AAPL", models.WindowSixMonth); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous dashboard should be unauthorized, got %v", err)
	}

	snap, err := a.Dashboard(ctx, "s1", "abc", "AAPL", models.WindowSixMonth)
	if err != nil || snap.State != dashboard.StateReady {
		t.Fatalf("Dashboard() = %v, %v", snap.State, err)
	}
	if up.calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", up.calls.Load())
	}

	// same selection is served from the board
	if _, err := a.Dashboard(ctx, "s1", "abc", "AAPL", models.WindowSixMonth); err != nil || up.calls.Load() != 2 {
		t.Errorf("expected no refetch, calls=%d err=%v", up.calls.Load(), err)
	}

	snap, err = a.Predict(ctx, "s1", "abc")
	if err != nil || len(snap.Forecast) != 1 {
		t.Errorf("Predict() = %+v, %v", snap.Forecast, err)
	}

	if snap := a.ClearDashboard("s1"); snap.State != dashboard.StateIdle {
		t.Errorf("expected idle after clear, got %v", snap.State)
	}

	a.EndSession("s1")
	if a.Boards().Len() != 0 {
		t.Errorf("expected no boards after EndSession, got %d", a.Boards().Len())
	}
}

func TestDashboard_Unauthorized(t *testing.T) {
	up := &mockUpstream{stocksErr: &services.APIError{Status: http.StatusUnauthorized}}
	_, err := testApp(up).Dashboard(context.Background(), "s1", "abc", "AAPL", models.WindowSixMonth)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestBreakerStatus_WithoutRegistry(t *testing.T) {
	if got := testApp(&mockUpstream{}).BreakerStatus(); len(got) != 0 {
		t.Errorf("mock has no breakers, got %v", got)
	}
}
