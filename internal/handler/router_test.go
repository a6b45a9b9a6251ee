package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/handler"
	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	testSecret = "handler-test-secret"
	testCNPJ   = "11.222.333/0001-81"
)

// --- Mocks ---

type stubStore struct {
	companies []domain.CompanyRow
	taxRows   []domain.TaxRow
	feeRows   []domain.FeeRow
}

func (s *stubStore) ListCompanies(_ context.Context, userID string) ([]domain.CompanyRow, error) {
	var out []domain.CompanyRow
	for _, c := range s.companies {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) InsertCompany(_ context.Context, row domain.CompanyRow) error {
	s.companies = append(s.companies, row)
	return nil
}

func (s *stubStore) UpdateCompany(_ context.Context, _, companyID string, updates map[string]any) error {
	for i := range s.companies {
		if s.companies[i].ID == companyID {
			if nome, ok := updates["nome"].(string); ok {
				s.companies[i].Nome = nome
			}
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "company", ID: companyID}
}

func (s *stubStore) DeleteCompany(_ context.Context, _, companyID string) error {
	kept := s.companies[:0]
	for _, c := range s.companies {
		if c.ID != companyID {
			kept = append(kept, c)
		}
	}
	s.companies = kept
	return nil
}

func (s *stubStore) ListTaxRows(_ context.Context, _ []string) ([]domain.TaxRow, error) {
	return s.taxRows, nil
}

func (s *stubStore) InsertTaxRows(_ context.Context, rows []domain.TaxRow) error {
	s.taxRows = append(s.taxRows, rows...)
	return nil
}

func (s *stubStore) UpsertTaxRow(_ context.Context, row domain.TaxRow) error {
	s.taxRows = append(s.taxRows, row)
	return nil
}

func (s *stubStore) ListFeeRows(_ context.Context, _ []string) ([]domain.FeeRow, error) {
	return s.feeRows, nil
}

func (s *stubStore) InsertFeeRows(_ context.Context, rows []domain.FeeRow) error {
	s.feeRows = append(s.feeRows, rows...)
	return nil
}

func (s *stubStore) UpsertFeeRow(_ context.Context, row domain.FeeRow) error {
	s.feeRows = append(s.feeRows, row)
	return nil
}

type stubAuth struct{}

func (stubAuth) SignUp(_ context.Context, _, _, _ string) (*domain.Session, error) {
	return &domain.Session{}, nil
}

func (stubAuth) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	return &domain.Session{}, nil
}

func (stubAuth) SignOut(_ context.Context, _ string) error { return nil }

// --- Helpers ---

func newTestRouter(store *stubStore) http.Handler {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	portfolioSvc := service.NewPortfolioService(store, metrics, logger)
	sessionSvc := service.NewSessionService(stubAuth{}, portfolioSvc, testSecret, logger)
	return handler.NewRouter(portfolioSvc, sessionSvc, nil, metrics, []string{"*"}, logger)
}

func authToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": "ana@evolutie.com.br",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), []string{"*"}, zap.NewNop())

	rec := doRequest(t, router, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), []string{"*"}, zap.NewNop())

	rec := doRequest(t, router, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), []string{"*"}, zap.NewNop())

	rec := doRequest(t, router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRoutesUnavailableWithoutSupabase(t *testing.T) {
	router := handler.NewRouter(nil, nil, nil, observability.NewMetrics(), []string{"*"}, zap.NewNop())

	rec := doRequest(t, router, http.MethodPost, "/v1/auth/login", "", `{"email":"a@b.c","password":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestListCompanies_RequiresToken(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/v1/companies", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestListCompanies_ReturnsNormalizedSchedules(t *testing.T) {
	store := &stubStore{
		companies: []domain.CompanyRow{{
			ID:            "c1",
			UserID:        "user-1",
			Nome:          "Padaria Central",
			CNPJ:          testCNPJ,
			SituacaoCaixa: domain.CashPositive,
		}},
		taxRows: []domain.TaxRow{
			{CompanyID: "c1", Tipo: domain.ObligationINSS, Ano: 2025, Mes: 2, Status: domain.TaxLate},
		},
	}
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/v1/companies", authToken(t, "user-1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var companies []domain.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &companies); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("expected 1 company, got %d", len(companies))
	}
	inss := companies[0].Impostos[2025].INSS
	if len(inss) != 12 {
		t.Fatalf("expected 12 INSS entries, got %d", len(inss))
	}
	if inss[1].Status != domain.TaxLate {
		t.Errorf("expected February late, got %s", inss[1].Status)
	}
}

func TestListCompanies_InvalidFilter(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/v1/companies?conciliacao=maybe", authToken(t, "user-1"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCompany(t *testing.T) {
	store := &stubStore{}
	router := newTestRouter(store)

	body := `{"codigoAlterdata":"0042","nome":"Mercado do Bairro","cnpj":"` + testCNPJ + `","situacaoCaixa":"positivo"}`
	rec := doRequest(t, router, http.MethodPost, "/v1/companies", authToken(t, "user-1"), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var company domain.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &company); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if company.Nome != "Mercado do Bairro" {
		t.Errorf("unexpected company: %+v", company)
	}
	if len(store.taxRows) != 36 || len(store.feeRows) != 12 {
		t.Errorf("expected seeded schedules, got %d tax / %d fee rows", len(store.taxRows), len(store.feeRows))
	}
}

func TestCreateCompany_MissingFields(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodPost, "/v1/companies", authToken(t, "user-1"), `{"nome":"Sem Código"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateTaxStatus_BadMonth(t *testing.T) {
	store := &stubStore{
		companies: []domain.CompanyRow{{ID: "c1", UserID: "user-1", Nome: "A", SituacaoCaixa: domain.CashPositive}},
	}
	router := newTestRouter(store)

	body := `{"status":"lançado"}`
	rec := doRequest(t, router, http.MethodPut, "/v1/companies/c1/taxes/2025/inss/13", authToken(t, "user-1"), body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateTaxStatus_ReturnsUpdatedCompany(t *testing.T) {
	store := &stubStore{
		companies: []domain.CompanyRow{{ID: "c1", UserID: "user-1", Nome: "A", SituacaoCaixa: domain.CashPositive}},
	}
	router := newTestRouter(store)

	body := `{"status":"lançado","data":"2025-03-10"}`
	rec := doRequest(t, router, http.MethodPut, "/v1/companies/c1/taxes/2025/fgts/3", authToken(t, "user-1"), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var company domain.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &company); err != nil {
		t.Fatalf("decode: %v", err)
	}
	fgts := company.Impostos[2025].FGTS
	if len(fgts) != 12 || fgts[2].Status != domain.TaxFiled {
		t.Errorf("expected March FGTS filed, got %+v", fgts)
	}
}

func TestDeleteCompany(t *testing.T) {
	store := &stubStore{
		companies: []domain.CompanyRow{{ID: "c1", UserID: "user-1", Nome: "A", SituacaoCaixa: domain.CashPositive}},
	}
	router := newTestRouter(store)
	token := authToken(t, "user-1")

	rec := doRequest(t, router, http.MethodDelete, "/v1/companies/c1", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/v1/companies/c1", token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	store := &stubStore{
		companies: []domain.CompanyRow{
			{ID: "c1", UserID: "user-1", Nome: "A", ConciliacaoBancaria: true, SituacaoCaixa: domain.CashPositive},
		},
	}
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/v1/summary?year=2025", authToken(t, "user-1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary domain.PortfolioSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalEmpresas != 1 || summary.Ano != 2025 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestMe(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/v1/me", authToken(t, "user-1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var identity domain.UserIdentity
	if err := json.Unmarshal(rec.Body.Bytes(), &identity); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if identity.ID != "user-1" {
		t.Errorf("expected user-1, got %s", identity.ID)
	}
}
