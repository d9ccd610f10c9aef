package account_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"relaychat/internal/domain"
	"relaychat/internal/services/account"
	"relaychat/internal/store"
)

var testArgon = account.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1}

func newService() (*account.Service, *store.MemoryAccountStore) {
	accounts := store.NewMemoryAccountStore()
	return account.New(accounts, account.NewArgon2Hasher(testArgon)), accounts
}

func TestRegisterThenLogin(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	svc, _ := newService()

	name, err := svc.Register(ctx, "alice", []byte("hunter2"))
	require.NoError(err)
	require.Equal(domain.Username("alice"), name)

	name, err = svc.Login(ctx, "alice", []byte("hunter2"))
	require.NoError(err)
	require.Equal(domain.Username("alice"), name)

	_, err = svc.Login(ctx, "alice", []byte("wrong"))
	require.ErrorIs(err, account.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", []byte("hunter2"))
	require.ErrorIs(err, account.ErrInvalidCredentials)
}

func TestRegister_Taken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	_, err := svc.Register(ctx, "bob", []byte("pw"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", []byte("other"))
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRegister_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	for _, name := range []string{"", "has space", string(bytes.Repeat([]byte("a"), account.MaxUsernameLength+1))} {
		_, err := svc.Register(ctx, name, []byte("pw"))
		require.ErrorIs(t, err, account.ErrInvalidUsername, "%q", name)
	}

	_, err := svc.Register(ctx, "carol", nil)
	require.ErrorIs(t, err, account.ErrInvalidPassword)
}

func TestPasswordIsWiped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	pw := []byte("secret")
	_, err := svc.Register(ctx, "dave", pw)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 6), pw)

	pw = []byte("secret")
	_, err = svc.Login(ctx, "dave", pw)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 6), pw)
}

func TestNormalizeUsername(t *testing.T) {
	// Fullwidth letters fold to their ASCII forms.
	name, err := account.NormalizeUsername("ａｌｉｃｅ")
	require.NoError(t, err)
	require.Equal(t, domain.Username("alice"), name)

	name, err = account.NormalizeUsername("Alice")
	require.NoError(t, err)
	require.Equal(t, domain.Username("Alice"), name)
}

func TestArgon2Hasher_Deterministic(t *testing.T) {
	h := account.NewArgon2Hasher(testArgon)
	a := h.Digest("alice", []byte("pw"))
	require.Equal(t, a, h.Digest("alice", []byte("pw")))
	require.NotEqual(t, a, h.Digest("bob", []byte("pw")))
	require.Len(t, a, 32)
}
