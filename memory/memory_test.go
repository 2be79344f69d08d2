package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegionReadWriteWidths(t *testing.T) {
	r := NewRegion(0x1000, 16)

	require.True(t, r.Write(0x1000, DoubleWord, 0x0102030405060708))
	v, ok := r.Read(0x1000, Byte)
	require.True(t, ok)
	require.Equal(t, uint64(0x08), v)

	v, ok = r.Read(0x1000, Half)
	require.True(t, ok)
	require.Equal(t, uint64(0x0708), v)

	v, ok = r.Read(0x1000, Word)
	require.True(t, ok)
	require.Equal(t, uint64(0x05060708), v)

	v, ok = r.Read(0x1000, DoubleWord)
	require.True(t, ok)
	require.Equal(t, uint64(0x0102030405060708), v)
}

func TestRegionWritePreservesNeighboringBytes(t *testing.T) {
	r := NewRegion(0, 8)
	require.True(t, r.Write(0, DoubleWord, 0xffffffffffffffff))
	require.True(t, r.Write(0, Byte, 0x00))

	v, ok := r.Read(0, DoubleWord)
	require.True(t, ok)
	require.Equal(t, uint64(0xffffffffffffff00), v)
}

func TestRegionOutOfBounds(t *testing.T) {
	r := NewRegion(0x1000, 8)
	_, ok := r.Read(0x1008, Byte)
	require.False(t, ok)
	require.False(t, r.Write(0x1005, DoubleWord, 1))
}

func TestSpaceRoutesToContainingRegion(t *testing.T) {
	s := NewSpace()
	require.NoError(t, s.AddRegion(NewRegion(0, 16)))
	require.NoError(t, s.AddRegion(NewRegion(0x1000, 16)))

	require.True(t, s.Write(0x1004, Word, 0xdeadbeef))
	v, ok := s.Read(0x1004, Word)
	require.True(t, ok)
	require.Equal(t, uint64(0xdeadbeef), v)

	_, ok = s.Read(0x2000, Byte)
	require.False(t, ok)
}

func TestSpaceRejectsOverlappingRegions(t *testing.T) {
	s := NewSpace()
	require.NoError(t, s.AddRegion(NewRegion(0, 16)))
	require.Error(t, s.AddRegion(NewRegion(8, 16)))
}

func TestNewImageBuildsPrimaryAndPlayground(t *testing.T) {
	init := map[uint64]uint32{0: 0x00008067, 4: 0x12345678}
	space, err := NewImage(32, 0xd0_0000_0000, init)
	require.NoError(t, err)

	v, ok := space.Read(0, Word)
	require.True(t, ok)
	require.Equal(t, uint64(0x00008067), v)

	v, ok = space.Read(4, Word)
	require.True(t, ok)
	require.Equal(t, uint64(0x12345678), v)

	require.True(t, space.Write(0xd0_0000_0000, Word, 42))
	v, ok = space.Read(0xd0_0000_0000, Word)
	require.True(t, ok)
	require.Equal(t, uint64(42), v)
}
