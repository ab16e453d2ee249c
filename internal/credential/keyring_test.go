package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupTokenLifecycle(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))

	_, err := v.LookupToken()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, v.SetLookupToken("  ghp_example  "))
	got, err := v.LookupToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_example", got)

	require.NoError(t, v.DeleteLookupToken())
	_, err = v.LookupToken()
	assert.ErrorIs(t, err, ErrNoToken)

	assert.NoError(t, v.DeleteLookupToken())
}

func TestSetLookupTokenRejectsBlank(t *testing.T) {
	v := NewVault(keyring.NewArrayKeyring(nil))
	assert.Error(t, v.SetLookupToken("   "))
}
