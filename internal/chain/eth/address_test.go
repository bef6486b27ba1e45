package eth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// EIP-55 reference vectors.
var checksumVectors = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{name: "checksummed", address: checksumVectors[0], want: true},
		{name: "lowercase", address: strings.ToLower(checksumVectors[0]), want: true},
		{name: "empty", address: "", want: false},
		{name: "no prefix", address: "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", want: false},
		{name: "too short", address: "0x5aAeb6", want: false},
		{name: "too long", address: checksumVectors[0] + "00", want: false},
		{name: "non-hex", address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz", want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsValidAddress(tc.address))
		})
	}
}

func TestToChecksumAddress(t *testing.T) {
	t.Parallel()

	for _, vector := range checksumVectors {
		assert.Equal(t, vector, ToChecksumAddress(strings.ToLower(vector)))
		assert.Equal(t, vector, ToChecksumAddress(vector))
	}

	// Invalid input passes through unchanged.
	assert.Equal(t, "nonsense", ToChecksumAddress("nonsense"))
}

func TestValidateChecksumAddress(t *testing.T) {
	t.Parallel()

	// Correct checksum passes.
	require.NoError(t, ValidateChecksumAddress(checksumVectors[0]))

	// All-lowercase and all-uppercase carry no checksum.
	require.NoError(t, ValidateChecksumAddress(strings.ToLower(checksumVectors[0])))
	require.NoError(t, ValidateChecksumAddress("0x"+strings.ToUpper(checksumVectors[0][2:])))

	// One flipped case letter fails.
	bad := strings.Replace(checksumVectors[0], "Aeb", "aeb", 1)
	err := ValidateChecksumAddress(bad)
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrInvalidAddress))

	// Malformed input fails.
	err = ValidateChecksumAddress("0xzz")
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrValidation))
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	got, err := NormalizeAddress(strings.ToLower(checksumVectors[1]))
	require.NoError(t, err)
	assert.Equal(t, checksumVectors[1], got)

	_, err = NormalizeAddress("not-an-address")
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrInvalidAddress))
}
