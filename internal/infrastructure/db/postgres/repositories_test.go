package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ruby/userauth-service/internal/core/domain"
)

var (
	ts       = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	dbErrRe  = regexp.MustCompile(`db error: .*db down`)
	errDown  = errors.New("db down")
	userCols = []string{"id", "email", "name", "password_hash", "state", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserCreate_Success(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,`).
		WithArgs(sqlmock.AnyArg(), "a@x.io", "A", "hash", "ACTIVE", ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users_roles`).
		WithArgs(sqlmock.AnyArg(), "role-1", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Create(context.Background(), &domain.User{
		Email: "a@x.io", Name: "A", PasswordHash: "hash", State: domain.StateActive,
		Roles: []domain.Role{{ID: "role-1", Name: "DEFAULT"}}, CreatedAt: ts, UpdatedAt: ts,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" || got.Email != "a@x.io" || len(got.Roles) != 1 {
		t.Fatalf("unexpected user: %+v", got)
	}
	expectationsMet(t, mock)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &domain.User{Email: "a@x.io", State: domain.StateActive})
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserCreate_RoleLinkFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users_roles`).WillReturnError(errDown)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &domain.User{
		Email: "a@x.io", State: domain.StateActive, Roles: []domain.Role{{ID: "r", Name: "DEFAULT"}},
	})
	if err == nil || !dbErrRe.MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUserFindByEmail_Found(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("a@x.io").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "a@x.io", "A", "hash", "ACTIVE", ts, ts))
	mock.ExpectQuery(`(?s)^SELECT\s+r\.id,\s*r\.name.*ORDER\s+BY\s+ur\.position`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow("role-1", "DEFAULT", ts))

	u, err := repo.FindByEmail(context.Background(), "a@x.io")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if u.ID != "u-1" || u.State != domain.StateActive || u.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if names := u.RoleNames(); len(names) != 1 || names[0] != "DEFAULT" {
		t.Fatalf("unexpected roles: %v", names)
	}
	expectationsMet(t, mock)
}

func TestUserFindByEmail_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM\s+users`).WithArgs("nobody@x.io").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@x.io")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestRoleGetOrCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepository(db)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+roles.*ON\s+CONFLICT\s+\(name\).*RETURNING\s+id,\s*name,\s*created_at`).
		WithArgs(sqlmock.AnyArg(), "DEFAULT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow("role-1", "DEFAULT", ts))

	role, err := repo.GetOrCreate(context.Background(), "DEFAULT")
	if err != nil {
		t.Fatalf("GetOrCreate error: %v", err)
	}
	if role.ID != "role-1" || role.Name != "DEFAULT" {
		t.Fatalf("unexpected role: %+v", role)
	}
	expectationsMet(t, mock)
}

func TestRoleGetOrCreate_DBError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+roles`).WillReturnError(errDown)

	_, err := repo.GetOrCreate(context.Background(), "DEFAULT")
	if err == nil || !dbErrRe.MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSessionCreateAndFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+sessions`).
		WithArgs(sqlmock.AnyArg(), "tok", "u-1", "ACTIVE", ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), &domain.Session{
		Token: "tok", UserID: "u-1", State: domain.StateActive, CreatedAt: ts, UpdatedAt: ts,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	mock.ExpectQuery(`(?s)FROM\s+sessions\s+WHERE\s+token\s*=\s*\$1`).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "user_id", "state", "created_at", "updated_at"}).
			AddRow(created.ID, "tok", "u-1", "ACTIVE", ts, ts))

	found, err := repo.FindByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FindByToken error: %v", err)
	}
	if found.ID != created.ID || found.State != domain.StateActive {
		t.Fatalf("unexpected session: %+v", found)
	}
	expectationsMet(t, mock)
}

func TestSessionFindByToken_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`FROM\s+sessions`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionUpdateState(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`(?s)^UPDATE\s+sessions\s+SET\s+state\s*=\s*\$1`).
		WithArgs("INACTIVE", "s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateState(context.Background(), "s-1", domain.StateInactive); err != nil {
		t.Fatalf("UpdateState error: %v", err)
	}

	mock.ExpectExec(`UPDATE\s+sessions`).
		WithArgs("INACTIVE", "s-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateState(context.Background(), "s-404", domain.StateInactive)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestAuditInsertEvent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+auth_events`).
		WithArgs("login_failed", "a@x.io",
			sql.NullString{}, sql.NullString{String: "a@x.io", Valid: true}, sql.NullString{},
			sql.NullString{String: "unknown_email", Valid: true}, ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertEvent(context.Background(), &domain.AuthEvent{
		Type: domain.EventLoginFailed, Email: "a@x.io", Reason: "unknown_email", OccurredAt: ts,
	})
	if err != nil {
		t.Fatalf("InsertEvent error: %v", err)
	}
	expectationsMet(t, mock)
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"}
	if !isUniqueViolation(pgErr, "roles_name_key") || !isUniqueViolation(pgErr, "") {
		t.Fatalf("expected unique violation match")
	}
	if isUniqueViolation(pgErr, "users_email_key") || isUniqueViolation(errDown, "") {
		t.Fatalf("unexpected match")
	}
}
