package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPasswordHash("hunter22", hash))
	assert.False(t, CheckPasswordHash("hunter23", hash))
	assert.False(t, CheckPasswordHash("hunter22", "not-a-hash"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Basketball", "basketball"},
		{"Table Tennis (Men)", "table-tennis-men"},
		{"  100m Sprint  ", "100m-sprint"},
		{"Kho-Kho", "kho-kho"},
		{"ಕಬಡ್ಡಿ", "misc"},
		{"", "misc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
