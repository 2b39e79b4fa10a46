package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PolicyService answers whether an actor holds a permission.
type PolicyService interface {
	Allowed(ctx context.Context, actorID int64, perm Permission) (bool, error)
}

// Service is the PostgreSQL-backed policy evaluator.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs the service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Allowed checks role_permissions through the actor's role assignments.
// Unknown permissions are denied outright, never looked up.
func (s *Service) Allowed(ctx context.Context, actorID int64, perm Permission) (bool, error) {
	if !perm.Valid() {
		return false, nil
	}
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			WHERE ur.user_id = $1 AND rp.permission = $2
		)`
	var allowed bool
	if err := s.pool.QueryRow(ctx, query, actorID, string(perm)).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}
