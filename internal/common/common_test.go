package common

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/require"
)

func TestUvarintBoundaries(t *testing.T) {
	require.Equal(t, []byte{0x00}, AppendUvarint(nil, 0))
	require.Equal(t, []byte{0x7F}, AppendUvarint(nil, 127))
	require.Equal(t, []byte{0x80, 0x01}, AppendUvarint(nil, 128))
	max := AppendUvarint(nil, math.MaxUint64)
	require.Len(t, max, 10)
	require.Equal(t, byte(0x01), max[9])
	require.Equal(t, 10, UvarintLen(math.MaxUint64))
	require.Equal(t, 1, UvarintLen(127))
	require.Equal(t, 2, UvarintLen(128))
}

func TestUvarintRoundTrip(t *testing.T) {
	condition := func(x uint64) bool {
		b := AppendUvarint(nil, x)
		got, n, err := ReadUvarint(b)
		require.NoError(t, err)
		return got == x && n == len(b) && n == UvarintLen(x)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestReadUvarintMalformed(t *testing.T) {
	_, _, err := ReadUvarint([]byte{0x80, 0x80})
	require.ErrorIs(t, err, ErrVarintTruncated)

	_, _, err = ReadUvarint(nil)
	require.ErrorIs(t, err, ErrVarintTruncated)

	long := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	_, _, err = ReadUvarint(long)
	require.ErrorIs(t, err, ErrVarintOverflow)

	// tenth byte may only carry the top bit
	_, _, err = ReadUvarint([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x02})
	require.ErrorIs(t, err, ErrVarintOverflow)
}

func TestZigZag(t *testing.T) {
	require.Equal(t, uint64(0), ZigZag(0))
	require.Equal(t, uint64(1), ZigZag(-1))
	require.Equal(t, uint64(2), ZigZag(1))
	require.Equal(t, uint64(math.MaxUint64), ZigZag(math.MinInt64))
	condition := func(v int64) bool { return UnZigZag(ZigZag(v)) == v }
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestFixedWidth(t *testing.T) {
	b := AppendU32(nil, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, b)
	require.Equal(t, uint32(0x01020304), U32(b))
	f := AppendF64(nil, 1.5)
	require.Equal(t, 1.5, F64(f))
	require.Equal(t, float32(-2.25), F32(AppendF32(nil, -2.25)))
	require.Equal(t, uint16(0xBEEF), U16(AppendU16(nil, 0xBEEF)))
	require.Equal(t, uint64(42), U64(AppendU64(nil, 42)))
}
