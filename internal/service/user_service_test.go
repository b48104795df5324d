package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func newUserFixture(t *testing.T) (*UserService, *fakeUsers, models.User) {
	t.Helper()
	users := newFakeUsers()
	svc := NewUserService(users, testHasher(), zerolog.Nop())
	created, err := svc.Create(context.Background(), admin, CreateUserInput{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Password:  "secret1",
	})
	require.NoError(t, err)
	return svc, users, created
}

func TestUserCreateRequiresAdmin(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	_, err := svc.Create(context.Background(), customer, CreateUserInput{
		FirstName: "A", LastName: "B", Email: "a@example.com", Password: "secret1",
	})
	require.ErrorIs(t, err, ErrAdminOnly)
}

func TestUserCreateDefaultsToCustomer(t *testing.T) {
	_, _, created := newUserFixture(t)
	require.Equal(t, models.UserRoleCustomer, created.Role)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newUserFixture(t)
	_, err := svc.Create(context.Background(), admin, CreateUserInput{
		FirstName: "A", LastName: "B", Email: "b@example.com", Password: "secret1", Role: "ROOT",
	})
	require.ErrorIs(t, err, errInvalidRole)
}

func TestUserAccessRules(t *testing.T) {
	ctx := context.Background()
	svc, _, created := newUserFixture(t)
	self := Actor{UserID: created.ID, Role: models.UserRoleCustomer}

	_, err := svc.Get(ctx, self, created.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, stranger, created.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(ctx, admin, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.List(ctx, self, Page{})
	require.ErrorIs(t, err, ErrAdminOnly)
	users, err := svc.List(ctx, admin, Page{})
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestUserUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, created := newUserFixture(t)
	self := Actor{UserID: created.ID, Role: models.UserRoleCustomer}

	first := "  Amazing Grace "
	phone := "+442071838750"
	updated, err := svc.Update(ctx, self, created.ID, UpdateUserInput{FirstName: &first, PhoneNumber: &phone})
	require.NoError(t, err)
	require.Equal(t, "Amazing Grace", updated.FirstName)
	require.Equal(t, "Hopper", updated.LastName)
	require.Equal(t, phone, *updated.PhoneNumber)

	empty := ""
	updated, err = svc.Update(ctx, self, created.ID, UpdateUserInput{PhoneNumber: &empty})
	require.NoError(t, err)
	require.Nil(t, updated.PhoneNumber)

	role := models.UserRoleAdmin
	_, err = svc.Update(ctx, self, created.ID, UpdateUserInput{Role: &role})
	require.ErrorIs(t, err, ErrAdminOnly)

	updated, err = svc.Update(ctx, admin, created.ID, UpdateUserInput{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.UserRoleAdmin, updated.Role)
}

func TestUserUpdateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _, created := newUserFixture(t)
	_, err := svc.Create(ctx, admin, CreateUserInput{
		FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	email := "ALAN@example.com"
	_, err = svc.Update(ctx, admin, created.ID, UpdateUserInput{Email: &email})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserDelete(t *testing.T) {
	ctx := context.Background()
	svc, users, created := newUserFixture(t)

	require.ErrorIs(t, svc.Delete(ctx, stranger, created.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, Actor{UserID: created.ID, Role: models.UserRoleCustomer}, created.ID))
	require.Empty(t, users.byID)
	require.ErrorIs(t, svc.Delete(ctx, admin, created.ID), ErrUserNotFound)
}
