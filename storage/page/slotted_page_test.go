package page

import (
	"bytes"
	"testing"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	testingpkg "github.com/noidwasavailable/Odysseus/testing/testing_assert"
	"github.com/noidwasavailable/Odysseus/types"
)

func newTestSlottedPage(t *testing.T) (*SlottedPage, []byte) {
	buf := make([]byte, common.PageSize)
	sp, err := InitSlottedPage(buf, types.PageID(3), types.VolumeID(1), 42)
	testingpkg.Ok(t, err)
	return sp, buf
}

func TestInitSlottedPageRoundTrip(t *testing.T) {
	sp, buf := newTestSlottedPage(t)
	sp.SetPrevPage(types.LinkTo(2))
	sp.SetSpaceListLinks(types.NoPage, types.LinkTo(9))

	decoded, err := DecodeSlottedPage(buf)
	testingpkg.Ok(t, err)
	hdr := decoded.Header()
	testingpkg.Equals(t, types.PageID(3), hdr.PageNo)
	testingpkg.Equals(t, types.VolumeID(1), hdr.Volume)
	testingpkg.Equals(t, uint32(42), hdr.FileID)
	testingpkg.Equals(t, types.LinkTo(2), hdr.PrevPage)
	testingpkg.Equals(t, types.NoPage, hdr.NextPage)
	testingpkg.Equals(t, types.LinkTo(9), hdr.SpaceListNext)

	// "no page" is stored as -1
	testingpkg.Equals(t, types.InvalidPageID, types.NewPageIDFromBytes(buf[offsetNextPage:]))
	testingpkg.Equals(t, DataRegionSize, decoded.ContiguousFree())
	testingpkg.Assert(t, decoded.IsEmpty(), "fresh page should be empty")
}

func TestDecodeRejectsBadLayout(t *testing.T) {
	_, err := DecodeSlottedPage(make([]byte, 100))
	testingpkg.ErrorIs(t, err, errors.ErrCorruptPage)

	// zeroed page has no slotted page type
	_, err = DecodeSlottedPage(make([]byte, common.PageSize))
	testingpkg.ErrorIs(t, err, errors.ErrCorruptPage)

	sp, buf := newTestSlottedPage(t)
	sp.SetFreeOffset(uint16(DataRegionSize))
	sp.SetSlotCount(1)
	_, err = DecodeSlottedPage(buf)
	testingpkg.ErrorIs(t, err, errors.ErrCorruptPage)

	sp.SetSlotCount(0)
	sp.SetFreeOffset(8)
	sp.SetUnused(16)
	_, err = DecodeSlottedPage(buf)
	testingpkg.ErrorIs(t, err, errors.ErrCorruptPage)
}

func TestPlaceObject(t *testing.T) {
	sp, _ := newTestSlottedPage(t)

	slot0, u0 := sp.PlaceObject(ObjectHeader{Tag: 7}, []byte("hello"))
	slot1, u1 := sp.PlaceObject(ObjectHeader{}, []byte("world!!!"))
	testingpkg.Equals(t, uint16(0), slot0)
	testingpkg.Equals(t, uint16(1), slot1)
	testingpkg.Assert(t, u0 != u1, "unique numbers must differ")

	testingpkg.Equals(t, uint16(2), sp.GetSlotCount())
	// 8+8 for "hello", 8+8 for "world!!!"
	testingpkg.Equals(t, uint16(32), sp.GetFreeOffset())
	testingpkg.Equals(t, DataRegionSize-32-2*SlotSize, sp.ContiguousFree())

	hdr := sp.ObjectHeaderAt(uint16(sp.Slot(0).Offset))
	testingpkg.Equals(t, uint16(7), hdr.Tag)
	testingpkg.Equals(t, uint32(5), hdr.Length)
	testingpkg.Equals(t, []byte("hello"), sp.ObjectPayload(uint16(sp.Slot(0).Offset)))

	// an empty interior slot is reused before the array grows
	sp.SetSlot(0, Slot{Offset: EmptySlot, Unique: u0})
	sp.SetUnused(16)
	slot, u2 := sp.PlaceObject(ObjectHeader{}, []byte("x"))
	testingpkg.Equals(t, uint16(0), slot)
	testingpkg.Equals(t, uint16(2), sp.GetSlotCount())
	testingpkg.Assert(t, u2 != u0, "reused slot gets a new unique number")
}

func TestFitsContiguous(t *testing.T) {
	sp, _ := newTestSlottedPage(t)
	big := bytes.Repeat([]byte{1}, int(DataRegionSize-ObjectHeaderSize-SlotSize))
	testingpkg.Assert(t, sp.FitsContiguous(uint32(len(big))), "largest object should fit an empty page")
	testingpkg.Assert(t, !sp.FitsContiguous(uint32(len(big))+1), "one more byte should not fit")
	sp.PlaceObject(ObjectHeader{}, big)
	testingpkg.Equals(t, uint32(0), sp.ContiguousFree())
}

func TestCompact(t *testing.T) {
	sp, _ := newTestSlottedPage(t)
	sp.PlaceObject(ObjectHeader{}, []byte("aaaa"))
	sp.PlaceObject(ObjectHeader{}, []byte("bbbbbbbb"))
	sp.PlaceObject(ObjectHeader{}, []byte("cc"))

	// drop the first object by hand: interior hole of 12 bytes
	sp.SetSlot(0, Slot{Offset: EmptySlot})
	sp.SetUnused(12)

	sp.Compact(1)
	testingpkg.Equals(t, uint16(0), sp.GetUnused())
	testingpkg.Equals(t, uint16(28), sp.GetFreeOffset())
	// slot 1 was preserved, so it sits right before the free region
	testingpkg.Equals(t, int16(0), sp.Slot(2).Offset)
	testingpkg.Equals(t, int16(12), sp.Slot(1).Offset)
	testingpkg.Equals(t, []byte("cc"), sp.ObjectPayload(0))
	testingpkg.Equals(t, []byte("bbbbbbbb"), sp.ObjectPayload(12))
	testingpkg.Equals(t, uint32(28), sp.LiveBytes())
}
