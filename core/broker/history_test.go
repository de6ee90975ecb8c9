package broker

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) HistoryEntry {
	return HistoryEntry{Message: Message{ID: id}}
}

func ids(entries []HistoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message.ID)
	}
	return out
}

func TestHistoryRing(t *testing.T) {
	t.Parallel()

	t.Run("append below capacity keeps everything", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(5)
		r.append(entry("a"))
		r.append(entry("b"))

		require.Equal(t, 2, r.len())
		assert.Equal(t, []string{"a", "b"}, ids(r.lastN(10)))
	})

	t.Run("append at capacity evicts oldest first", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(3)
		for i := 1; i <= 5; i++ {
			r.append(entry(strconv.Itoa(i)))
		}

		require.Equal(t, 3, r.len())
		assert.Equal(t, []string{"3", "4", "5"}, ids(r.lastN(3)))
	})

	t.Run("lastN returns min(n, stored) oldest first", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(10)
		for i := 1; i <= 4; i++ {
			r.append(entry(strconv.Itoa(i)))
		}

		assert.Equal(t, []string{"3", "4"}, ids(r.lastN(2)))
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(r.lastN(4)))
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(r.lastN(100)))
	})

	t.Run("non-positive n yields empty slice", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(3)
		r.append(entry("a"))

		assert.Empty(t, r.lastN(0))
		assert.Empty(t, r.lastN(-1))
	})

	t.Run("reads do not mutate the ring", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(3)
		r.append(entry("a"))
		r.append(entry("b"))

		first := ids(r.lastN(2))
		second := ids(r.lastN(2))
		assert.Equal(t, first, second)
		assert.Equal(t, 2, r.len())
	})

	t.Run("wrap-around preserves publish order", func(t *testing.T) {
		t.Parallel()

		r := newHistoryRing(4)
		for i := 1; i <= 11; i++ {
			r.append(entry(strconv.Itoa(i)))
		}

		assert.Equal(t, []string{"8", "9", "10", "11"}, ids(r.lastN(4)))
		assert.Equal(t, []string{"10", "11"}, ids(r.lastN(2)))
	})
}
