package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"

	"github.com/docharbor/docharbor/internal/core"
	"github.com/docharbor/docharbor/internal/testutil"
)

func newUserService() (*UserService, *testutil.FakeDB) {
	db := testutil.NewFakeDB()
	return NewUserService(db), db
}

func addUser(t *testing.T, svc *UserService, email, userType string) string {
	t.Helper()
	user, err := svc.Create(context.Background(), SaveUserInput{
		Email:                email,
		Password:             "hunter2hunter2",
		PasswordConfirmation: "hunter2hunter2",
		UserType:             userType,
	})
	require.NoError(t, err)
	return user.ID
}

func TestCreateUser(t *testing.T) {
	svc, db := newUserService()

	user, err := svc.Create(context.Background(), SaveUserInput{
		Email:                "ops@corp.test",
		Password:             "hunter2hunter2",
		PasswordConfirmation: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, "member", user.UserType, "user type defaults to member")
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter2hunter2")))
	assert.NotNil(t, db.Users[user.ID])
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newUserService()

	cases := []struct {
		name    string
		in      SaveUserInput
		wantMsg string
	}{
		{"missing everything", SaveUserInput{}, "email is required"},
		{"bad email", SaveUserInput{Email: "not-an-email", Password: "hunter2hunter2", PasswordConfirmation: "hunter2hunter2"}, "invalid format"},
		{"short password", SaveUserInput{Email: "a@b.test", Password: "short", PasswordConfirmation: "short"}, "at least 8 characters"},
		{"mismatched confirmation", SaveUserInput{Email: "a@b.test", Password: "hunter2hunter2", PasswordConfirmation: "different-pass"}, "does not match"},
		{"bad user type", SaveUserInput{Email: "a@b.test", Password: "hunter2hunter2", PasswordConfirmation: "hunter2hunter2", UserType: "root"}, `user type "root" is invalid`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Msg, tc.wantMsg)
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newUserService()
	addUser(t, svc, "ops@corp.test", "member")

	_, err := svc.Create(context.Background(), SaveUserInput{
		Email:                "ops@corp.test",
		Password:             "hunter2hunter2",
		PasswordConfirmation: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUserPartialFields(t *testing.T) {
	svc, db := newUserService()
	id := addUser(t, svc, "ops@corp.test", "member")
	oldHash := db.Users[id].PasswordHash

	updated, err := svc.Update(context.Background(), id, SaveUserInput{UserType: "admin"})
	require.NoError(t, err)

	assert.Equal(t, "admin", updated.UserType)
	assert.Equal(t, "ops@corp.test", updated.Email, "empty fields stay untouched")
	assert.Equal(t, oldHash, updated.PasswordHash)

	updated, err = svc.Update(context.Background(), id, SaveUserInput{Password: "new-password-1"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new-password-1")))
}

func TestUpdateUserTakenEmail(t *testing.T) {
	svc, _ := newUserService()
	addUser(t, svc, "first@corp.test", "member")
	id := addUser(t, svc, "second@corp.test", "member")

	_, err := svc.Update(context.Background(), id, SaveUserInput{Email: "first@corp.test"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestDeactivateUser(t *testing.T) {
	svc, db := newUserService()
	id := addUser(t, svc, "ops@corp.test", "member")

	user, err := svc.Deactivate(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, user.Active)
	assert.NotNil(t, db.Users[id], "the row stays for audit")
	assert.False(t, db.Users[id].Active)

	_, err = svc.Deactivate(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsersFilterAndPaginate(t *testing.T) {
	svc, _ := newUserService()
	addUser(t, svc, "alice@corp.test", "member")
	addUser(t, svc, "bob@corp.test", "member")
	carolID := addUser(t, svc, "carol@corp.test", "member")
	_, err := svc.Deactivate(context.Background(), carolID)
	require.NoError(t, err)

	users, total, err := svc.List(context.Background(), core.UserFilter{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	users, total, err = svc.List(context.Background(), core.UserFilter{Status: "inactive"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol@corp.test", users[0].Email)

	users, total, err = svc.List(context.Background(), core.UserFilter{Query: "BOB"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@corp.test", users[0].Email)

	users, total, err = svc.List(context.Background(), core.UserFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol@corp.test", users[0].Email, "ordered by email")
}
