package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_LocalEgyptianMobile(t *testing.T) {
	got, err := Normalize("01012345678")
	require.NoError(t, err)
	assert.Equal(t, "+201012345678", got)
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize("01012345678")
	require.NoError(t, err)

	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second, "re-applying Normalize must not change the value")
}

func TestNormalize_Variants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already E.164", "+201012345678", "+201012345678"},
		{"country code without plus", "201012345678", "+201012345678"},
		{"dial-out prefix", "00201012345678", "+201012345678"},
		{"lost leading zero", "1012345678", "+201012345678"},
		{"with separators", "010 1234-5678", "+201012345678"},
		{"arabic-indic digits", "٠١٠١٢٣٤٥٦٧٨", "+201012345678"},
		{"reversed export cell", "87654321010", "+201012345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"no digits", "call me"},
		{"too short", "0101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestClean_BadValueReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", Clean("n/a"))
	assert.Equal(t, "+201012345678", Clean("01012345678"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("01012345678"))
	assert.True(t, IsValid("+201012345678"))
	assert.False(t, IsValid("12345"))
	assert.False(t, IsValid(""))
}
