package identity

import (
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
)

func TestForProperty_Deterministic(t *testing.T) {
	a, err := ForProperty("P1", "Villa", "Whitefield")
	require.NoError(t, err)
	b, err := ForProperty("P1", "Villa", "Whitefield")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, IsAddress(a), "derived identity %q must be a 20-byte hex address", a)
}

func TestForProperty_DistinctInputs(t *testing.T) {
	a, err := ForProperty("P1", "Villa", "Whitefield")
	require.NoError(t, err)
	b, err := ForProperty("P2", "Villa", "Whitefield")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestForProperty_EmptyInput(t *testing.T) {
	for _, tc := range [][3]string{
		{"", "Villa", "Whitefield"},
		{"P1", "", "Whitefield"},
		{"P1", "Villa", " "},
	} {
		_, err := ForProperty(tc[0], tc[1], tc[2])
		assert.True(t, errors.Is(err, model.ErrValidation), "inputs %v", tc)
	}
}

func TestForDocument_FreshPerCall(t *testing.T) {
	// Two calls for the same request must mint different identities as long
	// as the clock moved.
	ts := time.Unix(1700000000, 0)
	now = func() time.Time {
		ts = ts.Add(time.Nanosecond)
		return ts
	}
	defer func() { now = time.Now }()

	a, err := ForDocument("D1", "deed")
	require.NoError(t, err)
	b, err := ForDocument("D1", "deed")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, IsAddress(a))
	assert.True(t, IsAddress(b))
}

func TestForDocument_EmptyInput(t *testing.T) {
	_, err := ForDocument("", "deed")
	assert.True(t, errors.Is(err, model.ErrValidation))
	_, err = ForDocument("D1", "")
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestChecksum_KnownVectors(t *testing.T) {
	// EIP-55 reference vectors.
	cases := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range cases {
		var addr [20]byte
		_, err := hex.Decode(addr[:], []byte(want[2:]))
		require.NoError(t, err)
		assert.Equal(t, want, Checksum(addr))
	}
}

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.False(t, IsAddress("alice@example.com"))
	assert.False(t, IsAddress("0x1234"))
	assert.False(t, IsAddress("5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
	assert.False(t, IsAddress("0xZZ=> not hex 669435E7Ef1BeAed669435E7Ef"))
}
