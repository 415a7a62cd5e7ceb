package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hindustanbills/globals"
	"hindustanbills/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"user": utils.GetUserIDFromRequest(r),
		"role": utils.GetRoleFromRequest(r),
	})
}

func TestAuthenticate(t *testing.T) {
	a := NewAuth([]byte("secret"))
	token, err := a.IssueToken("u1", globals.RoleRetailer)
	require.NoError(t, err)

	h := a.Authenticate(echoUser)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"bad format", "Token " + token, http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h(rec, r, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h(rec, r, nil)
	assert.JSONEq(t, `{"user":"u1","role":"retailer"}`, rec.Body.String())
}

func TestAuthenticateRejectsOtherSecretAndExpired(t *testing.T) {
	a := NewAuth([]byte("secret"))
	other, err := NewAuth([]byte("other")).IssueToken("u1", "customer")
	require.NoError(t, err)
	_, err = a.ValidateJWT("Bearer " + other)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.ValidateJWT("Bearer " + s)
	assert.Error(t, err)
}

func TestOptionalAuth(t *testing.T) {
	a := NewAuth([]byte("secret"))
	h := a.OptionalAuth(echoUser)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"","role":""}`, rec.Body.String())
}

func TestChainWithRequireRoles(t *testing.T) {
	a := NewAuth([]byte("secret"))
	h := Chain(a.Authenticate, RequireRoles(globals.RoleRetailer, globals.RoleAdmin))(echoUser)

	for role, want := range map[string]int{
		globals.RoleCustomer: http.StatusForbidden,
		globals.RoleRetailer: http.StatusOK,
		globals.RoleAdmin:    http.StatusOK,
	} {
		token, err := a.IssueToken("u1", role)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h(rec, r, nil)
		assert.Equal(t, want, rec.Code, role)
	}
}
