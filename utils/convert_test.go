package utils

import (
	"crypto/ed25519"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint256StringRoundtrip(t *testing.T) {
	assert.Equal(t, "0", Uint256ToString(nil))
	assert.Equal(t, "0", Uint256ToString(uint256.NewInt(0)))
	assert.Equal(t, "12345", Uint256ToString(uint256.NewInt(12345)))

	assert.Equal(t, uint256.NewInt(0), Uint256FromString(""))
	assert.Equal(t, uint256.NewInt(0), Uint256FromString("not a number"))
	assert.Equal(t, uint256.NewInt(12345), Uint256FromString("12345"))

	v := Uint256FromString(Uint256ToString(uint256.NewInt(987654321)))
	assert.Equal(t, uint256.NewInt(987654321), v)
}

func TestDeriveAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr1, err := DeriveAddress(pub)
	require.NoError(t, err)
	assert.NotEmpty(t, addr1)

	// deterministic
	addr2, err := DeriveAddress(pub)
	require.NoError(t, err)
	assert.Equal(t, addr1, addr2)

	// distinct keys yield distinct addresses
	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherAddr, err := DeriveAddress(other)
	require.NoError(t, err)
	assert.NotEqual(t, addr1, otherAddr)

	_, err = DeriveAddress([]byte{1, 2, 3})
	require.Error(t, err)
}
