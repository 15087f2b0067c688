package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hami-sh/2310ass4/internal/protocol"
)

func rec(t *testing.T, line string) Record {
	t.Helper()
	cmd, err := protocol.Parse(line)
	require.NoError(t, err)
	require.Equal(t, protocol.KindDefer, cmd.Kind)
	return Record{Key: cmd.Key, Command: *cmd.Deferred, Raw: cmd.Deferred.Encode()}
}

func TestExecuteAppliesBatchInOrder(t *testing.T) {
	s := New()
	s.Add(rec(t, "Defer:1:Deliver:3:bananas"))
	s.Add(rec(t, "Defer:2:Deliver:9:nails"))
	s.Add(rec(t, "Defer:1:Withdraw:1:apples"))
	s.Add(rec(t, "Defer:3:Transfer:1:rope:north"))
	s.Add(rec(t, "Defer:1:Transfer:2:apples:south"))

	var applied []string
	n := s.ExecuteAndPurge(1, func(r Record) { applied = append(applied, r.Raw) })

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{
		"Deliver:3:bananas\n",
		"Withdraw:1:apples\n",
		"Transfer:2:apples:south\n",
	}, applied)
	assert.Equal(t, 0, s.CountKey(1))

	rest := s.Records()
	require.Len(t, rest, 2)
	assert.Equal(t, uint64(2), rest[0].Key)
	assert.Equal(t, uint64(3), rest[1].Key)
	assert.Equal(t, []uint64{2, 3}, s.Keys())
}

func TestExecuteUnknownKey(t *testing.T) {
	s := New()
	s.Add(rec(t, "Defer:5:Deliver:1:a"))
	called := false
	n := s.ExecuteAndPurge(6, func(Record) { called = true })
	assert.Zero(t, n)
	assert.False(t, called)
	assert.Equal(t, 1, s.Len())
}

func TestExecuteTwiceIsEmpty(t *testing.T) {
	s := New()
	s.Add(rec(t, "Defer:0:Deliver:1:a"))
	s.Add(rec(t, "Defer:0:Deliver:2:a"))
	assert.Equal(t, 2, s.ExecuteAndPurge(0, func(Record) {}))
	assert.Equal(t, 0, s.ExecuteAndPurge(0, func(Record) {}))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Keys())
}

func TestBatchCanBeRefilledAfterExecute(t *testing.T) {
	s := New()
	s.Add(rec(t, "Defer:4:Withdraw:1:x"))
	s.ExecuteAndPurge(4, func(Record) {})
	s.Add(rec(t, "Defer:4:Withdraw:2:y"))

	var items []string
	s.ExecuteAndPurge(4, func(r Record) { items = append(items, r.Command.Item) })
	assert.Equal(t, []string{"y"}, items)
}

func TestInterleavedKeysCompaction(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		key := uint64(i % 2)
		s.Add(Record{Key: key, Command: protocol.Command{Kind: protocol.KindDeliver, Qty: i + 1, Item: "w"}})
	}
	s.ExecuteAndPurge(0, func(Record) {})

	var qtys []int
	for _, r := range s.Records() {
		assert.Equal(t, uint64(1), r.Key)
		qtys = append(qtys, r.Command.Qty)
	}
	assert.Equal(t, []int{2, 4, 6, 8, 10}, qtys)
}
