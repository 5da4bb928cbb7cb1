package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubledger/internal/delivery/http/helpers"
	"clubledger/internal/domain"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	userID string
	roles  []string
	err    error
}

func (f *fakeTokenVerifier) Verify(_ string) (string, []string, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.userID, f.roles, nil
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name          string
		authHeader    string
		verifier      domain.TokenVerifier
		wantStatus    int
		wantBodyCode  string
		nextCalled    bool
		wantContextID string
		wantRoles     []string
	}{
		{
			name:          "valid token sets context and calls next",
			authHeader:    "Bearer valid-token",
			verifier:      &fakeTokenVerifier{userID: "user-123", roles: []string{"member"}},
			wantStatus:    http.StatusOK,
			nextCalled:    true,
			wantContextID: "user-123",
			wantRoles:     []string{"member"},
		},
		{
			name:         "missing authorization header",
			authHeader:   "",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "invalid authorization format no Bearer prefix",
			authHeader:   "Basic abc",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "empty token after Bearer",
			authHeader:   "Bearer ",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
		{
			name:         "verifier returns error",
			authHeader:   "Bearer bad-token",
			verifier:     &fakeTokenVerifier{err: errors.New("expired")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var gotUserID string
			var gotRoles []string
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotUserID, _ = UserIDFromContext(r.Context())
				gotRoles, _ = RolesFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			RequireAuth(tt.verifier)(next)(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if tt.nextCalled {
				assert.Equal(t, tt.wantContextID, gotUserID)
				assert.Equal(t, tt.wantRoles, gotRoles)
				return
			}
			var resp helpers.APIResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantBodyCode, resp.Error.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		roles      []string
		setRoles   bool
		role       string
		wantStatus int
		nextCalled bool
	}{
		{
			name:       "role present",
			roles:      []string{"member", "admin"},
			setRoles:   true,
			role:       RoleAdmin,
			wantStatus: http.StatusOK,
			nextCalled: true,
		},
		{
			name:       "role absent",
			roles:      []string{"member"},
			setRoles:   true,
			role:       RoleAdmin,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no roles in context",
			role:       RoleMember,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}

			req := httptest.NewRequest(http.MethodGet, "/payments/monthly", nil)
			if tt.setRoles {
				req = req.WithContext(SetRoles(req.Context(), tt.roles))
			}
			rec := httptest.NewRecorder()

			RequireRole(tt.role)(next)(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.nextCalled, nextCalled)
			if !tt.nextCalled {
				var resp helpers.APIResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.NotNil(t, resp.Error)
				assert.Equal(t, helpers.ErrCodeForbidden, resp.Error.Code)
			}
		})
	}
}
