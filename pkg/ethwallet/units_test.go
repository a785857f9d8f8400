package ethwallet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	wei, err := ParseEther("0.05")
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000", wei.String())

	wei, err = ParseEther("1")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", wei.String())

	wei, err = ParseEther("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "1", wei.String())
}

func TestParseEtherRejectsInvalid(t *testing.T) {
	for _, amount := range []string{"", "abc", "0", "-0.5", "0.0000000000000000001"} {
		_, err := ParseEther(amount)
		require.Error(t, err, "amount %q", amount)
		assert.Equal(t, CodeValidation, CodeOf(err))
	}
}

func TestFormatEther(t *testing.T) {
	wei, _ := new(big.Int).SetString("50000000000000000", 10)
	assert.Equal(t, "0.05", FormatEther(wei))

	wei, _ = new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, "1", FormatEther(wei))

	assert.Equal(t, "0", FormatEther(big.NewInt(0)))
	assert.Equal(t, "0", FormatEther(nil))
}

func TestEtherRoundTrip(t *testing.T) {
	for _, amount := range []string{"0.01", "0.05", "1.5", "12.345678"} {
		wei, err := ParseEther(amount)
		require.NoError(t, err)
		assert.Equal(t, amount, FormatEther(wei))
	}
}
