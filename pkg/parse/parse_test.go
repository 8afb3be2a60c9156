package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 2 ", 2, false},
		{"1.0", 1, false}, // columnar extracts carry ints as floats
		{"-3", -3, false},
		{"1.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Int(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "Int(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "Int(%q)", tt.in)
		assert.Equal(t, tt.want, got, "Int(%q)", tt.in)
	}
}

func TestDecimal(t *testing.T) {
	got, err := Decimal(" -3.5 ")
	require.NoError(t, err)
	assert.Equal(t, -3.5, got)

	_, err = Decimal("not-a-number")
	assert.Error(t, err)

	_, err = Decimal("")
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-01-15 10:30:00",
		"2024-01-15T10:30:00",
		"2024-01-15T10:30:00Z",
	} {
		got, err := Timestamp(in)
		require.NoError(t, err, "Timestamp(%q)", in)
		assert.True(t, got.Equal(want), "Timestamp(%q) = %v", in, got)
	}

	_, err := Timestamp("15/2024/01")
	assert.Error(t, err)
}

func TestFlag(t *testing.T) {
	for in, want := range map[string]string{"y": "Y", "N": "N", " ": "", "": ""} {
		got, err := Flag(in)
		require.NoError(t, err, "Flag(%q)", in)
		assert.Equal(t, want, got)
	}

	_, err := Flag("maybe")
	assert.Error(t, err)
}
