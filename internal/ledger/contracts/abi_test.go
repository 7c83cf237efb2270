package contracts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_KnownSelector(t *testing.T) {
	// ERC-20 transfer selector is a well-known constant, which pins the
	// keccak-based selector derivation.
	to, err := Address("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)

	data := Pack("transfer(address,uint256)", to, Uint64(1000))
	assert.True(t, strings.HasPrefix(data, "0xa9059cbb"), "got %s", data)

	// selector (4 bytes) + two head words (32 bytes each)
	assert.Len(t, data, 2+2*(4+64))
}

func TestPack_DynamicString(t *testing.T) {
	data := Pack("register(string)", String("hi"))

	// selector + offset word + length word + one padded data word
	assert.Len(t, data, 2+2*(4+32+32+32))
	// offset points just past the single head word
	assert.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000000020",
		data[2+8:2+8+64])
	// length 2, data "hi" right-padded
	assert.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000000002",
		data[2+8+64:2+8+128])
	assert.True(t, strings.HasPrefix(data[2+8+128:], "6869"))
}

func TestPack_MixedStaticDynamic(t *testing.T) {
	addr, err := Address("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)

	data := Pack("f(address,string,uint256)", addr, String("abc"), Uint64(7))
	raw := data[2+8:] // strip 0x + selector

	// head: address word, offset word, uint word
	require.GreaterOrEqual(t, len(raw), 3*64)
	assert.Equal(t, "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", raw[24:64])
	// dynamic tail starts after the 3-word head = 0x60
	assert.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000000060",
		raw[64:128])
	assert.Equal(t,
		"0000000000000000000000000000000000000000000000000000000000000007",
		raw[128:192])
}

func TestAddress_Invalid(t *testing.T) {
	_, err := Address("not-an-address")
	assert.Error(t, err)
	_, err = Address("0x1234")
	assert.Error(t, err)
}

func TestDecodeAddress(t *testing.T) {
	got, err := DecodeAddress("0x0000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", got)

	_, err = DecodeAddress("0x1234")
	assert.Error(t, err)
}

func TestDecodeBool(t *testing.T) {
	v, err := DecodeBool("0x0000000000000000000000000000000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = DecodeBool("0x0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, v)
}

func TestIsEmptyReturn(t *testing.T) {
	assert.True(t, isEmptyReturn("0x"))
	assert.True(t, isEmptyReturn(""))
	assert.True(t, isEmptyReturn("0x0000000000000000000000000000000000000000000000000000000000000000"))
	assert.False(t, isEmptyReturn("0x01"))
}
