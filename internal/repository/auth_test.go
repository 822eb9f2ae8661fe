package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/lib/pq"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var userColumns = []string{"id", "username", "password_hash", "created_at"}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	u := &models.User{ID: "u1", Username: "Nilauser", PasswordHash: "hash", CreatedAt: time.Now()}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs(u.ID, u.Username, u.PasswordHash, u.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.CreateUser(context.Background(), &models.User{ID: "u1", Username: "dup"})
	if !errors.Is(err, models.ErrUserExists) {
		t.Fatalf("CreateUser error = %v; want ErrUserExists", err)
	}
}

func TestCreateUser_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("insert failed"))

	err := repo.CreateUser(context.Background(), &models.User{ID: "u1", Username: "x"})
	if err == nil || errors.Is(err, models.ErrUserExists) {
		t.Fatalf("CreateUser error = %v; want wrapped insert error", err)
	}
}

func TestListUsers_InsertionOrder(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, password_hash, created_at FROM users ORDER BY seq`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u1", "first", "h1", now).
			AddRow("u2", "second", "h2", now))

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].Username != "first" || users[1].Username != "second" {
		t.Errorf("users = %+v; want first, second", users)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListUsers_ScanError(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY seq`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

	if _, err := repo.ListUsers(context.Background()); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestGetUserByUsername(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = $1`)).
		WithArgs("Nilauser").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "Nilauser", "h", now))

	u, err := repo.GetUserByUsername(context.Background(), "Nilauser")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.PasswordHash != "h" {
		t.Errorf("user = %+v", u)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("GetUserByID error = %v; want ErrUserNotFound", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	tests := []struct {
		name    string
		result  func(*sqlmock.ExpectedExec)
		wantErr error
		anyErr  bool
	}{
		{
			name:   "updated",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 1)) },
		},
		{
			name:    "no such user",
			result:  func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) },
			wantErr: models.ErrUserNotFound,
		},
		{
			name:   "db error",
			result: func(e *sqlmock.ExpectedExec) { e.WillReturnError(errors.New("db down")) },
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAuthMock(t)
			defer cleanup()

			exp := mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
				WithArgs("newhash", "u1")
			tt.result(exp)

			err := repo.UpdatePassword(context.Background(), "u1", "newhash")
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v; want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Fatal("expected error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestRecordLoginAttempt(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	a := models.LoginAttempt{Username: "", RemoteAddr: "10.0.0.1", Success: false, CreatedAt: time.Now()}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO login_attempts (username, remote_addr, success, created_at) VALUES ($1, $2, $3, $4)`)).
		WithArgs(a.Username, a.RemoteAddr, a.Success, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RecordLoginAttempt(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
