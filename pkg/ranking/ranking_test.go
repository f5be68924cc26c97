package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopOrdering(t *testing.T) {
	tbl := New()
	tbl.Add("a", 3, 0)
	tbl.Add("b", 1, 0)
	tbl.Add("c", 7, 0)
	tbl.Add("b", 4, 0) // b accumulates to 5
	tbl.Add("d", 2, 0)

	top := tbl.Top(3)
	assert.Equal(t, []string{"c", "b", "a"}, keys(top))
	assert.Equal(t, uint64(7), top[0].Weight)
	assert.Equal(t, uint64(5), top[1].Weight)
}

func TestTopTieBreakFirstSeen(t *testing.T) {
	tbl := New()
	tbl.Add("/a", 1, 0)
	tbl.Add("/b", 1, 0)
	tbl.Add("/c", 1, 0)

	// Equal weights must come back in first-seen order, every time.
	for range 10 {
		assert.Equal(t, []string{"/a", "/b", "/c"}, keys(tbl.Top(3)))
	}
}

func TestTopBounds(t *testing.T) {
	tbl := New()
	tbl.Add("only", 1, 0)

	assert.Nil(t, tbl.Top(0))
	assert.Nil(t, tbl.Top(-1))
	assert.Len(t, tbl.Top(5), 1)
	assert.Nil(t, New().Top(3))
}

func TestTopEvictionWithManyKeys(t *testing.T) {
	tbl := New()
	for i := 0; i < 100; i++ {
		tbl.Add(fmt.Sprintf("key%03d", i), uint64(i+1), 0)
	}

	top := tbl.Top(5)
	assert.Equal(t, []string{"key099", "key098", "key097", "key096", "key095"}, keys(top))
	assert.Equal(t, 100, tbl.Len())
}

func TestBytesAccumulate(t *testing.T) {
	tbl := New()
	tbl.Add("/big", 1, 1000)
	tbl.Add("/big", 1, 500)

	top := tbl.Top(1)
	assert.Equal(t, uint64(2), top[0].Weight)
	assert.Equal(t, uint64(1500), top[0].Bytes)
}

func keys(entries []Entry) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Key)
	}
	return res
}
