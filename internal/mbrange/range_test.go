package mbrange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndLength(t *testing.T) {
	r := New(123, 45)
	require.Equal(t, uint32(123), r.Start)
	require.Equal(t, uint32(168), r.End)
	require.Equal(t, uint32(45), r.Length())
}

func TestCompare(t *testing.T) {
	base := New(100, 100) // [100, 200)

	cases := []struct {
		name string
		r    Range
		want int
	}{
		{"lower start", New(0, 50), 1},
		{"higher start", New(200, 50), -1},
		{"overlap lower", New(50, 100), 1},
		{"overlap higher", New(125, 50), -1},
		{"same start shorter", New(100, 50), 1},
		{"same start longer", New(100, 150), -1},
		{"identical", New(100, 100), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, base.Compare(c.r))
			require.Equal(t, -c.want, c.r.Compare(base))
		})
	}
}

func TestIntersectsAndAdjacent(t *testing.T) {
	a := New(0, 10)  // [0,10)
	b := New(5, 10)  // [5,15)
	c := New(10, 10) // [10,20)
	d := New(20, 10) // [20,30)

	require.True(t, a.Intersects(b))
	require.False(t, a.Intersects(c))
	require.True(t, a.Adjacent(c))
	require.False(t, a.Adjacent(d))
	require.True(t, c.Adjacent(d))
}

func TestUnionAndContains(t *testing.T) {
	a := New(5, 10)  // [5,15)
	b := New(10, 20) // [10,30)
	u := a.Union(b)
	require.Equal(t, Range{Start: 5, End: 30}, u)
	require.True(t, u.Contains(a))
	require.True(t, u.Contains(b))
	require.False(t, a.Contains(b))
}
