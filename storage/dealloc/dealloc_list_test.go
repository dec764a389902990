package dealloc

import (
	"testing"

	"github.com/noidwasavailable/Odysseus/errors"
	testingpkg "github.com/noidwasavailable/Odysseus/testing/testing_assert"
	"github.com/noidwasavailable/Odysseus/types"
)

func TestPushAndDrain(t *testing.T) {
	pool := NewPool(0)
	list := NewList()

	for i := 0; i < 3; i++ {
		e, err := pool.Get()
		testingpkg.Ok(t, err)
		e.Kind = PAGE
		e.PageID = types.PageID(i + 10)
		list.Push(e)
	}
	testingpkg.Equals(t, 3, list.Len())
	testingpkg.Equals(t, 3, pool.Live())

	elems := list.Elems()
	testingpkg.Equals(t, types.PageID(12), elems[0].PageID)
	testingpkg.Equals(t, types.PageID(10), elems[2].PageID)

	drained := make([]types.PageID, 0)
	err := list.Drain(pool, func(e *Elem) error {
		drained = append(drained, e.PageID)
		return nil
	})
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, []types.PageID{12, 11, 10}, drained)
	testingpkg.Equals(t, 0, list.Len())
	testingpkg.Equals(t, 0, pool.Live())

	// recycled elements come back zeroed
	e, err := pool.Get()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, Elem{}, *e)
}

func TestDrainStopsAtError(t *testing.T) {
	pool := NewPool(0)
	list := NewList()
	for i := 0; i < 2; i++ {
		e, _ := pool.Get()
		e.PageID = types.PageID(i)
		list.Push(e)
	}

	boom := errors.Error("boom")
	err := list.Drain(pool, func(e *Elem) error {
		if e.PageID == 0 {
			return boom
		}
		return nil
	})
	testingpkg.ErrorIs(t, err, boom)
	testingpkg.Equals(t, 1, list.Len())
	testingpkg.Equals(t, types.PageID(0), list.Elems()[0].PageID)
}

func TestPoolLimit(t *testing.T) {
	pool := NewPool(1)
	e, err := pool.Get()
	testingpkg.Ok(t, err)

	_, err = pool.Get()
	testingpkg.ErrorIs(t, err, ErrPoolExhausted)

	pool.Put(e)
	_, err = pool.Get()
	testingpkg.Ok(t, err)
}

func TestElemString(t *testing.T) {
	testingpkg.Equals(t, "{PAGE 7}", (&Elem{Kind: PAGE, PageID: 7}).String())
	testingpkg.Equals(t, "{SEGMENT 3}", (&Elem{Kind: SEGMENT, SegmentID: 3}).String())
}
