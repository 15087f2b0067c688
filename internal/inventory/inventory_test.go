package inventory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverThenOverdraw(t *testing.T) {
	s := New(Item{Name: "apples", Count: 10})

	s.Add(Item{Name: "apples", Count: 5})
	n, ok := s.Count("apples")
	require.True(t, ok)
	assert.Equal(t, 15, n)

	s.Remove(Item{Name: "apples", Count: 20})
	n, _ = s.Count("apples")
	assert.Equal(t, -5, n)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveUnknownRecordsDebt(t *testing.T) {
	s := New()
	s.Remove(Item{Name: "pears", Count: 4})

	n, ok := s.Count("pears")
	require.True(t, ok)
	assert.Equal(t, -4, n)

	s.Add(Item{Name: "pears", Count: 6})
	n, _ = s.Count("pears")
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Len(), "add must merge into the debt entry")
}

func TestCountIsAlgebraicSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New()
	want := 0
	for i := 0; i < 500; i++ {
		q := rng.Intn(50) + 1
		if rng.Intn(2) == 0 {
			s.Add(Item{Name: "bolts", Count: q})
			want += q
		} else {
			s.Remove(Item{Name: "bolts", Count: q})
			want -= q
		}
		got, _ := s.Count("bolts")
		require.Equal(t, want, got, "step %d", i)
	}
}

func TestSeedMergesDuplicates(t *testing.T) {
	s := New(Item{Name: "a", Count: 1}, Item{Name: "b", Count: 2}, Item{Name: "a", Count: 3})
	assert.Equal(t, []Item{{Name: "a", Count: 4}, {Name: "b", Count: 2}}, s.Items())
}

func TestSnapshotSortedWithoutZeros(t *testing.T) {
	s := New(
		Item{Name: "zinc", Count: 3},
		Item{Name: "apples", Count: 1},
		Item{Name: "mangoes", Count: 2},
	)
	s.Remove(Item{Name: "apples", Count: 1})
	s.Remove(Item{Name: "copper", Count: 7})

	assert.Equal(t, []Item{
		{Name: "copper", Count: -7},
		{Name: "mangoes", Count: 2},
		{Name: "zinc", Count: 3},
	}, s.Snapshot())

	_, ok := s.Count("apples")
	assert.True(t, ok, "zero entries are retained")
	assert.Equal(t, 4, s.Len())
}

func TestItemsIsACopy(t *testing.T) {
	s := New(Item{Name: "x", Count: 1})
	items := s.Items()
	items[0].Count = 99
	n, _ := s.Count("x")
	assert.Equal(t, 1, n)
}
