package hdkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

func TestGenerateMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		wordCount int
		wantErr   bool
	}{
		{name: "twelve words", wordCount: 12},
		{name: "twenty-four words", wordCount: 24},
		{name: "fifteen words rejected", wordCount: 15, wantErr: true},
		{name: "zero rejected", wordCount: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mnemonic, err := GenerateMnemonic(tc.wordCount)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, walleterr.Is(err, walleterr.ErrValidation))
				return
			}

			require.NoError(t, err)
			assert.Len(t, strings.Fields(mnemonic), tc.wordCount)
			assert.NoError(t, ValidateMnemonic(mnemonic))
		})
	}
}

func TestGenerateMnemonicUnique(t *testing.T) {
	t.Parallel()

	first, err := GenerateMnemonic(12)
	require.NoError(t, err)
	second, err := GenerateMnemonic(12)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestValidateMnemonic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mnemonic string
		wantErr  bool
	}{
		{name: "valid twelve words", mnemonic: testMnemonic},
		{name: "uppercase normalized", mnemonic: strings.ToUpper(testMnemonic)},
		{name: "extra whitespace", mnemonic: "  abandon   abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about  "},
		{name: "comma separated", mnemonic: strings.ReplaceAll(testMnemonic, " ", ", ")},
		{name: "empty", mnemonic: "", wantErr: true},
		{name: "wrong word count", mnemonic: "abandon abandon abandon", wantErr: true},
		{name: "bad checksum", mnemonic: "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", wantErr: true},
		{name: "unknown word", mnemonic: strings.Replace(testMnemonic, "about", "aboot", 1), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateMnemonic(tc.mnemonic)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, walleterr.Is(err, walleterr.ErrInvalidMnemonic))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNormalizeMnemonicInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already clean", input: "abandon ability able", want: "abandon ability able"},
		{name: "uppercase", input: "ABANDON Ability ABLE", want: "abandon ability able"},
		{name: "numbered list", input: "1. abandon\n2. ability\n3. able", want: "abandon ability able"},
		{name: "parenthesized numbers", input: "1) abandon 2) ability", want: "abandon 2) ability"},
		{name: "bullets", input: "- abandon\n* ability\n• able", want: "abandon ability able"},
		{name: "commas", input: "abandon,ability,able", want: "abandon ability able"},
		{name: "mixed whitespace", input: "abandon\t ability \n able", want: "abandon ability able"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeMnemonicInput(tc.input))
		})
	}
}

func TestMnemonicToSeed(t *testing.T) {
	t.Parallel()

	seed, err := MnemonicToSeed(testMnemonic, "")
	require.NoError(t, err)
	assert.Len(t, seed, 64)

	// Messy input of the same phrase produces the same seed.
	messy, err := MnemonicToSeed("  "+strings.ToUpper(testMnemonic)+"  ", "")
	require.NoError(t, err)
	assert.Equal(t, seed, messy)

	// A passphrase alters the seed.
	withPass, err := MnemonicToSeed(testMnemonic, "trezor")
	require.NoError(t, err)
	assert.NotEqual(t, seed, withPass)

	_, err = MnemonicToSeed("not a mnemonic", "")
	require.Error(t, err)
	assert.True(t, walleterr.Is(err, walleterr.ErrInvalidMnemonic))
}

func TestIsValidWord(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidWord("abandon"))
	assert.True(t, IsValidWord("ZOO"))
	assert.False(t, IsValidWord("aboot"))
	assert.False(t, IsValidWord(""))
}

func TestSuggestWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "abandon", want: "abandon"}, // exact match
		{input: "abandn", want: "abandon"},  // one deletion
		{input: "zok", want: "zoo"},
		{input: "qqqqqqqqqq", want: ""}, // nothing close enough
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, SuggestWord(tc.input))
		})
	}
}

func TestDetectTypos(t *testing.T) {
	t.Parallel()

	typos := DetectTypos("abandon abiliti able")
	require.Len(t, typos, 1)
	assert.Equal(t, 1, typos[0].Index)
	assert.Equal(t, "abiliti", typos[0].Word)
	assert.Equal(t, "ability", typos[0].Suggestion)
	assert.Equal(t, 1, typos[0].Distance)

	assert.Empty(t, DetectTypos(testMnemonic))
	assert.Empty(t, DetectTypos(""))
}
