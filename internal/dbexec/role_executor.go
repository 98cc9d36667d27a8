package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"restq/internal/sqlutil"
)

// RoleExecutor executes queries using SET ROLE on a dedicated connection.
// Combined with Postgres row-level security policies this pushes
// per-request authorization enforcement into the database.
type RoleExecutor struct {
	db           *sql.DB
	roleFromCtx  func(context.Context) (string, bool)
	allowedRoles map[string]struct{}
	validateRole bool
}

// RoleExecutorConfig controls role execution behavior.
type RoleExecutorConfig struct {
	DB           *sql.DB
	RoleFromCtx  func(context.Context) (string, bool)
	AllowedRoles []string
	ValidateRole bool
}

// NewRoleExecutor creates an executor that applies SET ROLE before each query.
func NewRoleExecutor(cfg RoleExecutorConfig) *RoleExecutor {
	allowed := make(map[string]struct{}, len(cfg.AllowedRoles))
	for _, role := range cfg.AllowedRoles {
		allowed[role] = struct{}{}
	}
	return &RoleExecutor{
		db:           cfg.DB,
		roleFromCtx:  cfg.RoleFromCtx,
		allowedRoles: allowed,
		validateRole: cfg.ValidateRole,
	}
}

func (e *RoleExecutor) setRole(ctx context.Context, conn *sql.Conn) error {
	role, ok := e.roleFromCtx(ctx)
	if !ok || role == "" {
		return nil
	}
	if e.validateRole {
		if _, allowed := e.allowedRoles[role]; !allowed {
			return fmt.Errorf("role not allowed: %s", role)
		}
	}
	// Postgres doesn't support parameterized SET ROLE, use string formatting.
	// Safe because role is validated against allowlist above.
	setRoleSQL := fmt.Sprintf("SET ROLE %s", sqlutil.QuoteIdentifier(role))
	if _, err := conn.ExecContext(ctx, setRoleSQL); err != nil {
		return fmt.Errorf("failed to set role %s: %w", role, err)
	}
	return nil
}

func (e *RoleExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	cleanup := func() {
		_, _ = conn.ExecContext(context.Background(), "RESET ROLE")
		_ = conn.Close()
	}

	if err := e.setRole(ctx, conn); err != nil {
		cleanup()
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &roleAwareRows{
		Rows:    rows,
		cleanup: cleanup,
	}, nil
}

func (e *RoleExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "RESET ROLE")
		_ = conn.Close()
	}()

	if err := e.setRole(ctx, conn); err != nil {
		return nil, err
	}

	return conn.ExecContext(ctx, query, args...)
}

type roleAwareRows struct {
	*sql.Rows
	cleanup func()
}

func (r *roleAwareRows) Close() error {
	defer r.cleanup()
	return r.Rows.Close()
}
