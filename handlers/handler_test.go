package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/middlewares"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/reports"
	"github.com/mmdatafocus/brokerage_backend/testutil"
	"github.com/mmdatafocus/brokerage_backend/workflow"
	"github.com/shopspring/decimal"
)

var handlerNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type testServer struct {
	engine *workflow.Engine
	router *gin.Engine
	actor  *models.Actor
}

// newTestServer injects *actor as the caller; a nil actor means anonymous.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := workflow.NewEngine(testutil.NewDB(t), nil)
	engine.Now = func() time.Time { return handlerNow }
	engine.OverrideRoles = []string{"md"}
	engine.SlipValidity = 30 * 24 * time.Hour

	s := &testServer{engine: engine, actor: &models.Actor{UserId: 5, Role: "underwriter", ApprovalLevel: models.ApprovalLevelL3}}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if s.actor != nil {
			c.Request = c.Request.WithContext(middlewares.SetActorInContext(c.Request.Context(), *s.actor))
		}
		c.Next()
	})
	New(engine, nil).Register(r)
	s.router = r
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return body
}

func (s *testServer) seedPolicy(t *testing.T, premium string, lineId int) *models.Policy {
	t.Helper()
	active := models.PolicyStatusActive
	policy := &models.Policy{
		PolicyNumber:     "POL/2025/00077",
		ClientId:         1,
		InsurerId:        2,
		LineOfBusinessId: lineId,
		SumInsured:       decimal.RequireFromString("1000000"),
		GrossPremium:     decimal.RequireFromString(premium),
		Currency:         "NGN",
		StartDate:        handlerNow.AddDate(0, -6, 0),
		EndDate:          handlerNow.AddDate(0, 6, 0),
		Status:           &active,
		Version:          1,
	}
	if err := s.engine.DB.Create(policy).Error; err != nil {
		t.Fatalf("seed policy: %v", err)
	}
	return policy
}

func TestCreateClient_Created(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/clients", map[string]any{"client_type": "Corporate", "name": "Kano Mills"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var client models.Client
	if err := json.Unmarshal(w.Body.Bytes(), &client); err != nil {
		t.Fatalf("decode client: %v", err)
	}
	if client.ClientCode != "CLT/2025/CORP/00001" {
		t.Fatalf("unexpected client code %s", client.ClientCode)
	}

	w = s.do(t, http.MethodPost, "/clients", map[string]any{"name": ""})
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandlers_RequireActor(t *testing.T) {
	s := newTestServer(t)
	s.actor = nil

	w := s.do(t, http.MethodPost, "/policies/1/slip", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPolicyRoutes_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	policy := s.seedPolicy(t, "10000", 0)
	slipPath := "/policies/" + itoa(policy.ID) + "/slip"

	w := s.do(t, http.MethodPost, "/policies/abc/slip", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/policies/999/slip", nil)
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, slipPath+"/submit", nil)
	if body := decodeError(t, w); w.Code != http.StatusUnprocessableEntity || body.Code != "SLIP_NOT_GENERATED" {
		t.Fatalf("expected 422 SLIP_NOT_GENERATED, got %d: %s", w.Code, w.Body.String())
	}

	if w = s.do(t, http.MethodPost, slipPath, nil); w.Code != http.StatusOK {
		t.Fatalf("generate slip: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, slipPath, nil)
	body := decodeError(t, w)
	if w.Code != http.StatusConflict || body.Code != "SLIP_ALREADY_GENERATED" {
		t.Fatalf("expected 409 SLIP_ALREADY_GENERATED, got %d: %s", w.Code, w.Body.String())
	}
	if body.Details["slip_number"] != "BRK/2025/000001" {
		t.Fatalf("expected slip number in details, got %v", body.Details)
	}

	w = s.do(t, http.MethodPost, "/policies/"+itoa(policy.ID)+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, "/policies/"+itoa(policy.ID)+"/renew", map[string]any{})
	if body := decodeError(t, w); body.Code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION renewing a cancelled policy, got %s", w.Body.String())
	}
}

func TestIssueEndorsement_BelowMinimumDetails(t *testing.T) {
	s := newTestServer(t)
	line := &models.LineOfBusiness{Code: "MOTOR", Name: "Motor", RateBasis: "percentage", MinPremium: decimal.RequireFromString("5000"), IsActive: true}
	if err := s.engine.DB.Create(line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}
	policy := s.seedPolicy(t, "4500", line.ID)

	w := s.do(t, http.MethodPost, "/endorsements", map[string]any{
		"policy_id":           policy.ID,
		"type":                "premium_adjustment",
		"effective_date":      handlerNow.Format(time.RFC3339),
		"gross_premium_delta": "-500",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create endorsement: %d %s", w.Code, w.Body.String())
	}
	var endorsement models.Endorsement
	if err := json.Unmarshal(w.Body.Bytes(), &endorsement); err != nil {
		t.Fatalf("decode endorsement: %v", err)
	}
	path := "/endorsements/" + itoa(endorsement.ID)

	s.actor = &models.Actor{UserId: 6, ApprovalLevel: models.ApprovalLevelL1}
	w = s.do(t, http.MethodPost, path+"/approve", nil)
	if body := decodeError(t, w); w.Code != http.StatusForbidden || body.Code != "INSUFFICIENT_APPROVAL_LEVEL" {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}

	s.actor = &models.Actor{UserId: 6, ApprovalLevel: models.ApprovalLevelL2}
	if w = s.do(t, http.MethodPost, path+"/approve", nil); w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}

	s.actor = &models.Actor{UserId: 1, Role: "MD", ApprovalLevel: models.ApprovalLevelL3, MaxOverrideLimit: decimal.RequireFromString("1500")}
	w = s.do(t, http.MethodPost, path+"/issue", nil)
	body := decodeError(t, w)
	if w.Code != http.StatusUnprocessableEntity || body.Code != "BELOW_MINIMUM_PREMIUM" {
		t.Fatalf("expected 422 BELOW_MINIMUM_PREMIUM, got %d: %s", w.Code, w.Body.String())
	}
	if body.Details["shortfall"] != "1000" || body.Details["canOverride"] != true {
		t.Fatalf("unexpected details %v", body.Details)
	}

	w = s.do(t, http.MethodPost, path+"/issue", map[string]any{"confirm_override": true})
	if w.Code != http.StatusOK {
		t.Fatalf("issue with override: %d %s", w.Code, w.Body.String())
	}
	var result workflow.IssueEndorsementResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !result.OverrideApplied || result.Endorsement.Status != models.EndorsementStatusIssued {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestExpiryOps(t *testing.T) {
	s := newTestServer(t)
	policy := s.seedPolicy(t, "10000", 0)
	if err := s.engine.DB.Model(&models.Policy{}).Where("id = ?", policy.ID).Update("end_date", handlerNow.AddDate(0, 0, -1)).Error; err != nil {
		t.Fatalf("backdate policy: %v", err)
	}

	w := s.do(t, http.MethodGet, "/ops/policies/expiry-report?as_of=2025-06-15", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expiry report: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != reports.ContentType() {
		t.Fatalf("unexpected content type %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "policy-expiry-2025-06-15.xlsx") {
		t.Fatalf("unexpected disposition %s", w.Header().Get("Content-Disposition"))
	}

	w = s.do(t, http.MethodPost, "/ops/policies/expire", map[string]any{"as_of": "15/06/2025"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad date, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/ops/policies/expire", map[string]any{"as_of": "2025-06-15"})
	if w.Code != http.StatusOK {
		t.Fatalf("expire: %d %s", w.Code, w.Body.String())
	}
	var report workflow.ExpiryReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Expired != 1 {
		t.Fatalf("expected 1 expired, got %d", report.Expired)
	}

	s.actor = &models.Actor{UserId: 9, ApprovalLevel: models.ApprovalLevelL2}
	if w = s.do(t, http.MethodPost, "/ops/policies/expire", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for L2, got %d", w.Code)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
