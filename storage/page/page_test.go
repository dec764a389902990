// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package page

import (
	"testing"

	"github.com/noidwasavailable/Odysseus/common"
	testingpkg "github.com/noidwasavailable/Odysseus/testing/testing_assert"
	"github.com/noidwasavailable/Odysseus/types"
)

func TestFramePinCount(t *testing.T) {
	p := NewEmpty(types.PageID(3))

	testingpkg.Equals(t, types.PageID(3), p.GetPageId())
	testingpkg.Equals(t, int32(1), p.PinCount())
	p.IncPinCount()
	testingpkg.Equals(t, int32(2), p.PinCount())
	// never drops below zero
	for i := 0; i < 3; i++ {
		p.DecPinCount()
	}
	testingpkg.Equals(t, int32(0), p.PinCount())
	testingpkg.Equals(t, false, p.IsDirty())
	testingpkg.Equals(t, [common.PageSize]byte{}, *p.Data())
}

func TestFrameCarriesSlottedPage(t *testing.T) {
	src := NewEmpty(types.PageID(7))
	sp, err := InitSlottedPage(src.Data()[:], src.GetPageId(), 1, 42)
	testingpkg.Ok(t, err)
	sp.PlaceObject(ObjectHeader{Tag: 9}, []byte("frame"))
	src.SetIsDirty(true)

	// what a disk read would hand to another frame
	dst := New(types.PageID(7), false, &[common.PageSize]byte{})
	dst.Copy(0, src.Data()[:])
	testingpkg.Equals(t, *src.Data(), *dst.Data())

	decoded, err := DecodeSlottedPage(dst.Data()[:])
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, uint32(42), decoded.Header().FileID)
	testingpkg.Equals(t, uint16(1), decoded.GetSlotCount())
	off := decoded.Slot(0).Offset
	testingpkg.Equals(t, uint16(9), decoded.ObjectHeaderAt(uint16(off)).Tag)
	testingpkg.Equals(t, []byte("frame"), decoded.ObjectPayload(uint16(off))[:5])
	testingpkg.Assert(t, src.IsDirty() && !dst.IsDirty(), "dirty bit belongs to the frame")
}
