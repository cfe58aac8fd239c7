package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_StoresHashAndNormalisedEmail(t *testing.T) {
	f := newFixture(t)

	u := f.register(t, "Alice", "  ALICE@example.com", "s3cret!pw")
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	stored, err := f.users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!pw", stored.PasswordHash)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	first := f.register(t, "Alice", "alice@example.com", "s3cret!pw")

	_, err := f.svc.Create(context.Background(), CreateUserInput{Name: "Mallory", Email: "Alice@example.com", Password: "other1!pw"})
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)
	assert.Equal(t, common.KindDuplicateIdentity, common.KindOf(err))

	still, err := f.svc.Profile(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, *first, *still)

	_, err = f.auth.Login(context.Background(), "alice@example.com", "s3cret!pw")
	assert.NoError(t, err, "original credentials must still work")
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []CreateUserInput{
		{Name: "", Email: "a@example.com", Password: "s3cret!pw"},
		{Name: "A", Email: "bad", Password: "s3cret!pw"},
		{Name: "A", Email: "a@example.com", Password: "weak"},
	}
	for _, in := range tests {
		_, err := f.svc.Create(context.Background(), in)
		assert.ErrorIs(t, err, common.ErrInvalidInput, "%+v", in)
	}
	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProfile_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Profile(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestList_OldestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "Alice", "alice@example.com", "s3cret!pw")
	b := f.register(t, "Bob", "bob@example.com", "s3cret!pw")

	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)
}

func TestUpdate_CommitsAndRereads(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Alice", "alice@example.com", "s3cret!pw")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	name := "Alice A."
	password := "n3w!pass"
	got, err := f.svc.Update(context.Background(), u.ID, UpdateUserInput{Name: &name, Password: &password})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, name, got.Name)
	assert.True(t, got.UpdatedAt.After(u.UpdatedAt))

	_, err = f.auth.Login(context.Background(), "alice@example.com", "s3cret!pw")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials, "old password must stop working")
	_, err = f.auth.Login(context.Background(), "alice@example.com", password)
	assert.NoError(t, err)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Alice", "alice@example.com", "s3cret!pw")
	bob := f.register(t, "Bob", "bob@example.com", "s3cret!pw")

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	taken := "alice@example.com"
	_, err := f.svc.Update(context.Background(), bob.ID, UpdateUserInput{Email: &taken})
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	name := "Ghost"
	_, err := f.svc.Update(context.Background(), "missing", UpdateUserInput{Name: &name})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdate_ValidationSkipsTransaction(t *testing.T) {
	f := newFixture(t)

	bad := "x"
	_, err := f.svc.Update(context.Background(), "any", UpdateUserInput{Password: &bad})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdate_NothingToUpdate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), "any", UpdateUserInput{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdate_BeginFailure(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	name := "Alice"
	_, err := f.svc.Update(context.Background(), "u", UpdateUserInput{Name: &name})
	require.Error(t, err)
	assert.Equal(t, common.KindInternal, common.KindOf(err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "Alice", "alice@example.com", "s3cret!pw")

	require.NoError(t, f.svc.Delete(context.Background(), u.ID))
	assert.ErrorIs(t, f.svc.Delete(context.Background(), u.ID), common.ErrNotFound)
}
