package params

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaults(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, AddDefaults(s))

	tests := map[string]float64{
		VolumeNormal:  50,
		VolumeSilent:  20,
		VolumeSpeaker: 100,
		RingDuration:  5000,
		RingVariation: 2000,
	}
	for name, want := range tests {
		got, ok := s.Float(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	names := []string{}
	for _, e := range s.All() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{VolumeNormal, VolumeSilent, VolumeSpeaker, RingDuration, RingVariation}, names)
}

func TestSetAndKinds(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.AddFloat("volume", 50))
	require.NoError(t, s.AddString("greeting", "hello"))

	require.NoError(t, s.SetFloat("volume", 75))
	assert.Equal(t, 75.0, s.FloatOr("volume", 0))

	require.NoError(t, s.Set("volume", " 12.5 "))
	assert.Equal(t, 12.5, s.FloatOr("volume", 0))

	assert.ErrorIs(t, s.Set("volume", "loud"), ErrKindMismatch)
	assert.ErrorIs(t, s.SetString("volume", "x"), ErrKindMismatch)
	assert.ErrorIs(t, s.SetFloat("greeting", 1), ErrKindMismatch)
	assert.ErrorIs(t, s.Set("missing", "1"), ErrUnknownParam)

	for _, raw := range []string{"NaN", "nan", "Inf", "-Inf", "+infinity"} {
		assert.ErrorIs(t, s.Set("volume", raw), ErrNotFinite, raw)
	}
	assert.ErrorIs(t, s.SetFloat("volume", math.NaN()), ErrNotFinite)
	assert.ErrorIs(t, s.SetFloat("volume", math.Inf(1)), ErrNotFinite)
	assert.Equal(t, 12.5, s.FloatOr("volume", 0), "rejected values are not stored")
	assert.ErrorIs(t, s.SetFloat("missing", 1), ErrUnknownParam)

	require.NoError(t, s.Set("greeting", "hi there"))
	str, ok := s.String("greeting")
	assert.True(t, ok)
	assert.Equal(t, "hi there", str)

	_, ok = s.String("volume")
	assert.False(t, ok)
	_, ok = s.Float("greeting")
	assert.False(t, ok)
	assert.Equal(t, 9.0, s.FloatOr("missing", 9))
}

func TestPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, AddDefaults(s))
	require.NoError(t, s.SetFloat(VolumeNormal, 65))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, AddDefaults(s))

	got, ok := s.Float(VolumeNormal)
	assert.True(t, ok)
	assert.Equal(t, 65.0, got, "stored value wins over the default")
}

func TestKindChangeResetsToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.AddString("mode", "loud"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.AddFloat("mode", 3))

	got, ok := s.Float("mode")
	assert.True(t, ok)
	assert.Equal(t, 3.0, got)
}

func TestValue(t *testing.T) {
	f := FloatValue(5000)
	assert.Equal(t, KindFloat, f.Kind())
	assert.Equal(t, "5000", f.String())
	_, ok := f.Str()
	assert.False(t, ok)

	s := StringValue("abc")
	assert.Equal(t, KindString, s.Kind())
	assert.Equal(t, "abc", s.String())
	_, ok = s.Float()
	assert.False(t, ok)
}
