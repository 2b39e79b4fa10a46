package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cedarline-erp/cedarline-erp/internal/shared"
)

type stubPolicy struct {
	granted map[int64][]Permission
}

func (s stubPolicy) Allowed(ctx context.Context, actorID int64, perm Permission) (bool, error) {
	for _, p := range s.granted[actorID] {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

func doRequest(t *testing.T, mw Middleware, perm Permission, actorID int64) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actorID != 0 {
		req = req.WithContext(shared.ContextWithActor(req.Context(), actorID))
	}
	rec := httptest.NewRecorder()
	mw.Require(perm)(next).ServeHTTP(rec, req)
	return rec
}

func TestRequireAllows(t *testing.T) {
	mw := Middleware{Policy: stubPolicy{granted: map[int64][]Permission{
		7: {PermCommissionApprove},
	}}}
	rec := doRequest(t, mw, PermCommissionApprove, 7)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireDeniesMissingPermission(t *testing.T) {
	mw := Middleware{Policy: stubPolicy{granted: map[int64][]Permission{
		7: {PermOrdersView},
	}}}
	rec := doRequest(t, mw, PermCommissionApprove, 7)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDeniesAnonymous(t *testing.T) {
	mw := Middleware{Policy: stubPolicy{}}
	rec := doRequest(t, mw, PermOrdersView, 0)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPermissionValid(t *testing.T) {
	require.True(t, PermOrdersEdit.Valid())
	require.False(t, Permission("sales.orders.delete").Valid())
}
