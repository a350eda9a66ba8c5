package helpers

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenOTPCode_SixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenResetToken(t *testing.T) {
	a, err := GenResetToken()
	require.NoError(t, err)
	b, err := GenResetToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHashSecret(t *testing.T) {
	h := HashSecret("123456")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashSecret("123456"))
	assert.NotEqual(t, h, HashSecret("123457"))
	assert.NotContains(t, h, "123456")
}
