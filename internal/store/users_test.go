package store

import (
	"context"
	"testing"

	"money42/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_WritesUserAndProfile(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `profiles`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u := &domain.User{ID: userID, Email: "New@Example.com", Provider: domain.ProviderEmail, Role: domain.RoleUser}
	require.NoError(t, s.CreateUser(context.Background(), u))

	assert.Equal(t, "new@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_EmailTaken(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := s.CreateUser(context.Background(), &domain.User{ID: userID, Email: "dup@example.com"})

	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRole(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `users` SET `role`=\\? WHERE email = \\?").
		WithArgs(domain.RoleAdmin, "boss@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetRole(context.Background(), "Boss@Example.com", domain.RoleAdmin))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRole_UnknownEmail(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE `users`").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetRole(context.Background(), "ghost@example.com", domain.RoleAdmin)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
