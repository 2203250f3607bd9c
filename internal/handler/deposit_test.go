package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cajacoop/admin-api/internal/auth"
	"github.com/cajacoop/admin-api/internal/domain"
	"github.com/cajacoop/admin-api/internal/service/approval"
)

type mockDepositStore struct {
	created *domain.Deposit
	err     error
}

func (m *mockDepositStore) Create(_ context.Context, d *domain.Deposit) error {
	m.created = d
	return m.err
}

func (m *mockDepositStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Deposit, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.created, nil
}

func (m *mockDepositStore) ListByStatus(_ context.Context, _ domain.DepositStatus) ([]domain.Deposit, error) {
	return nil, m.err
}

func (m *mockDepositStore) SoftDelete(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string) error {
	return m.err
}

type mockDepositService struct {
	reviewReq approval.ReviewDepositRequest
	result    *approval.ReviewDepositResult
	err       error
}

func (m *mockDepositService) ReviewDeposit(_ context.Context, req approval.ReviewDepositRequest) (*approval.ReviewDepositResult, error) {
	m.reviewReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockDepositService) DirectContribution(_ context.Context, req approval.DirectContributionRequest) (*approval.ReviewDepositResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func adminContext(r *http.Request) *http.Request {
	claims := &auth.Claims{AdminID: uuid.New(), Email: "treasurer@test.com", IsAdmin: true}
	return r.WithContext(auth.ContextWithClaims(r.Context(), claims))
}

func validCreateDepositBody() string {
	b, _ := json.Marshal(createDepositRequest{
		MemberID:    uuid.NewString(),
		Kind:        "savings",
		Amount:      2500,
		Description: "marzo",
		PaymentDate: "2025-03-05",
	})
	return string(b)
}

func TestCreateDepositValidation(t *testing.T) {
	memberID := uuid.NewString()

	tests := []struct {
		name   string
		req    createDepositRequest
		fields []string
	}{
		{
			name: "valid request",
			req:  createDepositRequest{MemberID: memberID, Kind: "savings", Amount: 2500},
		},
		{
			name:   "missing member",
			req:    createDepositRequest{Kind: "savings", Amount: 2500},
			fields: []string{"member_id"},
		},
		{
			name:   "member id not a uuid",
			req:    createDepositRequest{MemberID: "socio-7", Kind: "savings", Amount: 2500},
			fields: []string{"member_id"},
		},
		{
			name:   "unknown kind",
			req:    createDepositRequest{MemberID: memberID, Kind: "lottery", Amount: 2500},
			fields: []string{"kind"},
		},
		{
			name:   "zero amount",
			req:    createDepositRequest{MemberID: memberID, Kind: "savings"},
			fields: []string{"amount"},
		},
		{
			name:   "unparseable payment date",
			req:    createDepositRequest{MemberID: memberID, Kind: "savings", Amount: 2500, PaymentDate: "sometime in march"},
			fields: []string{"payment_date"},
		},
		{
			name: "bad detail split",
			req: createDepositRequest{
				MemberID: memberID, Kind: "savings", Amount: 2500,
				Detail: []detailSplitRequest{{MemberID: "not-a-uuid", Amount: 0}},
			},
			fields: []string{"detail", "detail"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.req.Validate()
			require.Len(t, errs, len(tc.fields))
			for i, f := range tc.fields {
				assert.Equal(t, f, errs[i].Field)
			}
		})
	}
}

func TestCreateDeposit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		storeErr   error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid deposit",
			body:       validCreateDepositBody(),
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid JSON",
			body:       "not-json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "validation failure",
			body:       `{"kind":"savings"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "store error",
			body:       validCreateDepositBody(),
			storeErr:   fmt.Errorf("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockDepositStore{err: tc.storeErr}
			h := NewDepositHandler(store, &mockDepositService{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			h.Create(rr, adminContext(req))

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestCreateDeposit_StampsVoucherHash(t *testing.T) {
	store := &mockDepositStore{}
	h := NewDepositHandler(store, &mockDepositService{})

	voucher := "https://bucket/vouchers/2025-03-05.jpg"
	b, _ := json.Marshal(createDepositRequest{
		MemberID:   uuid.NewString(),
		Kind:       "savings",
		Amount:     2500,
		VoucherURL: &voucher,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(string(b)))
	rr := httptest.NewRecorder()
	h.Create(rr, adminContext(req))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, store.created)
	require.NotNil(t, store.created.VoucherHash)
	// sha256 of the voucher URL, hex encoded
	assert.Len(t, *store.created.VoucherHash, 64)
	assert.Equal(t, domain.DepositStatusPending, store.created.Status)
}

func TestReviewDeposit(t *testing.T) {
	depositID := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "approve",
			path:       depositID.String(),
			body:       `{"approve":true}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "reject requires observations",
			path:       depositID.String(),
			body:       `{"approve":false}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad id",
			path:       "not-a-uuid",
			body:       `{"approve":true}`,
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
		{
			name:       "already reviewed",
			path:       depositID.String(),
			body:       `{"approve":true}`,
			svcErr:     domain.ErrDepositTerminal,
			wantStatus: http.StatusPreconditionFailed,
			wantCode:   "DEPOSIT_ALREADY_REVIEWED",
		},
		{
			name:       "duplicate voucher",
			path:       depositID.String(),
			body:       `{"approve":true}`,
			svcErr:     domain.ErrDuplicateVoucher,
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_VOUCHER",
		},
		{
			name:       "splits do not add up",
			path:       depositID.String(),
			body:       `{"approve":true}`,
			svcErr:     domain.ErrDetailMismatch,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "DETAIL_MISMATCH",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDepositService{
				err: tc.svcErr,
				result: &approval.ReviewDepositResult{
					Deposit:       &domain.Deposit{ID: depositID, Status: domain.DepositStatusApproved},
					PenaltyAmount: 250,
				},
			}
			h := NewDepositHandler(&mockDepositStore{}, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits/"+tc.path+"/review", strings.NewReader(tc.body))
			req.SetPathValue("id", tc.path)
			rr := httptest.NewRecorder()
			h.Review(rr, adminContext(req))

			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestReviewDeposit_PassesAdminAndOverrides(t *testing.T) {
	depositID := uuid.New()
	shareMember := uuid.New()
	svc := &mockDepositService{
		result: &approval.ReviewDepositResult{
			Deposit: &domain.Deposit{ID: depositID, Status: domain.DepositStatusApproved},
		},
	}
	h := NewDepositHandler(&mockDepositStore{}, svc)

	body := fmt.Sprintf(
		`{"approve":true,"penalty_exempt":true,"detail":[{"member_id":%q,"amount":2500,"kind":"penalty"}],"per_member_penalties":{%q:300}}`,
		shareMember.String(), shareMember.String())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits/"+depositID.String()+"/review", strings.NewReader(body))
	req.SetPathValue("id", depositID.String())
	rr := httptest.NewRecorder()
	h.Review(rr, adminContext(req))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, depositID, svc.reviewReq.DepositID)
	assert.NotEqual(t, uuid.Nil, svc.reviewReq.AdminID)
	assert.True(t, svc.reviewReq.PenaltyExempt)
	require.Len(t, svc.reviewReq.DetailOverride, 1)
	assert.Equal(t, shareMember, svc.reviewReq.DetailOverride[0].MemberID)
	assert.Equal(t, domain.ContributionPenalty, svc.reviewReq.DetailOverride[0].Kind)
	assert.Equal(t, int64(300), svc.reviewReq.PerMemberPenalties[shareMember])
}

func TestReviewDeposit_RejectsBadPenaltyMap(t *testing.T) {
	h := NewDepositHandler(&mockDepositStore{}, &mockDepositService{})

	for _, body := range []string{
		`{"approve":true,"per_member_penalties":{"not-a-uuid":100}}`,
		fmt.Sprintf(`{"approve":true,"per_member_penalties":{%q:-1}}`, uuid.NewString()),
		fmt.Sprintf(`{"approve":true,"detail":[{"member_id":%q,"amount":100,"kind":"gold"}]}`, uuid.NewString()),
	} {
		id := uuid.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits/"+id.String()+"/review", strings.NewReader(body))
		req.SetPathValue("id", id.String())
		rr := httptest.NewRecorder()
		h.Review(rr, adminContext(req))

		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		var resp APIResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	}
}

func TestDeleteDeposit_RequiresReason(t *testing.T) {
	h := NewDepositHandler(&mockDepositStore{}, &mockDepositService{})

	id := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/deposits/"+id.String(), strings.NewReader(`{}`))
	req.SetPathValue("id", id.String())
	rr := httptest.NewRecorder()
	h.Delete(rr, adminContext(req))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}
