package page

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/types"
)

// Slotted page format:
//
//	-------------------------------------------------------------------
//	| HEADER | OBJECTS ... | UNUSED/FREE ... | ... SLOT_1 | SLOT_0 |
//	-------------------------------------------------------------------
//	         ^ data region ^ free offset               slot array ^
//
//	Header format (size in bytes):
//	--------------------------------------------------------------------------
//	| PageNo (4) | VolNo (2) | Flags (2) | SlotCount (2) | FreeOffset (2) |
//	--------------------------------------------------------------------------
//	| Unused (2) | Reserved (2) | FileID (4) | Unique (4) | PrevPage (4) |
//	--------------------------------------------------------------------------
//	| NextPage (4) | SpaceListPrev (4) | SpaceListNext (4) |
//	--------------------------------------------------------------------------
//
//	Slot format: | Offset (2) | Reserved (2) | Unique (4) |
//	Object format: | Properties (2) | Tag (2) | Length (4) | payload, aligned |
//
// Object and free offsets are relative to the start of the data region.
const (
	SlottedPageHeaderSize = uint32(40)
	SlotSize              = uint32(8)
	ObjectHeaderSize      = uint32(8)
	DataRegionSize        = uint32(common.PageSize) - SlottedPageHeaderSize

	// EmptySlot marks a slot with no object
	EmptySlot = int16(-1)
	// PageTypeSlotted is stored in the flags of every slotted page
	PageTypeSlotted = uint16(0x0002)
)

const (
	offsetPageNo        = uint32(0)
	offsetVolNo         = uint32(4)
	offsetFlags         = uint32(6)
	offsetSlotCount     = uint32(8)
	offsetFreeOffset    = uint32(10)
	offsetUnused        = uint32(12)
	offsetFileID        = uint32(16)
	offsetUnique        = uint32(20)
	offsetPrevPage      = uint32(24)
	offsetNextPage      = uint32(28)
	offsetSpaceListPrev = uint32(32)
	offsetSpaceListNext = uint32(36)
)

// PageHeader is the decoded header of a slotted page
type PageHeader struct {
	PageNo        types.PageID
	Volume        types.VolumeID
	Flags         uint16
	SlotCount     uint16
	FreeOffset    uint16
	Unused        uint16
	FileID        uint32
	Unique        uint32
	PrevPage      types.PageLink
	NextPage      types.PageLink
	SpaceListPrev types.PageLink
	SpaceListNext types.PageLink
}

// Slot is one entry of the slot array
type Slot struct {
	Offset int16
	Unique uint32
}

func (s Slot) IsEmpty() bool {
	return s.Offset == EmptySlot
}

// ObjectHeader precedes every object payload
type ObjectHeader struct {
	Properties uint16
	Tag        uint16
	Length     uint32
}

// Footprint is the number of data-region bytes an object of this length uses
func (h ObjectHeader) Footprint() uint32 {
	return ObjectHeaderSize + common.AlignedLength(h.Length)
}

// NeededSpace is the contiguous space an insert of length bytes may consume,
// counting a new slot entry
func NeededSpace(length uint32) uint32 {
	return ObjectHeaderSize + common.AlignedLength(length) + SlotSize
}

// SlottedPage is a mutable view over a page buffer borrowed from the buffer
// pool. The header is decoded once and every setter writes through to the
// buffer, so the view and the bytes never disagree. The view must not be used
// after the page is unpinned.
type SlottedPage struct {
	buf []byte
	hdr PageHeader
}

// DecodeSlottedPage checks the layout contract and returns a view over buf
func DecodeSlottedPage(buf []byte) (*SlottedPage, error) {
	if len(buf) != common.PageSize {
		return nil, pkgerrors.Wrapf(errors.ErrCorruptPage, "buffer size %d", len(buf))
	}
	sp := &SlottedPage{buf: buf}
	sp.hdr = decodeHeader(buf)
	if err := sp.hdr.validate(); err != nil {
		return nil, err
	}
	return sp, nil
}

// InitSlottedPage formats buf as an empty slotted page and returns its view
func InitSlottedPage(buf []byte, pageID types.PageID, vol types.VolumeID, fileID uint32) (*SlottedPage, error) {
	if len(buf) != common.PageSize {
		return nil, pkgerrors.Wrapf(errors.ErrCorruptPage, "buffer size %d", len(buf))
	}
	for i := range buf {
		buf[i] = 0
	}
	sp := &SlottedPage{buf: buf}
	sp.hdr = PageHeader{
		PageNo: pageID,
		Volume: vol,
		Flags:  PageTypeSlotted,
		FileID: fileID,
	}
	sp.writeHeader()
	return sp, nil
}

func decodeHeader(buf []byte) PageHeader {
	return PageHeader{
		PageNo:        types.PageID(types.NewInt32FromBytes(buf[offsetPageNo:])),
		Volume:        types.VolumeID(types.NewUInt16FromBytes(buf[offsetVolNo:])),
		Flags:         uint16(types.NewUInt16FromBytes(buf[offsetFlags:])),
		SlotCount:     uint16(types.NewUInt16FromBytes(buf[offsetSlotCount:])),
		FreeOffset:    uint16(types.NewUInt16FromBytes(buf[offsetFreeOffset:])),
		Unused:        uint16(types.NewUInt16FromBytes(buf[offsetUnused:])),
		FileID:        uint32(types.NewUInt32FromBytes(buf[offsetFileID:])),
		Unique:        uint32(types.NewUInt32FromBytes(buf[offsetUnique:])),
		PrevPage:      types.DecodePageLink(types.NewPageIDFromBytes(buf[offsetPrevPage:])),
		NextPage:      types.DecodePageLink(types.NewPageIDFromBytes(buf[offsetNextPage:])),
		SpaceListPrev: types.DecodePageLink(types.NewPageIDFromBytes(buf[offsetSpaceListPrev:])),
		SpaceListNext: types.DecodePageLink(types.NewPageIDFromBytes(buf[offsetSpaceListNext:])),
	}
}

func (h PageHeader) validate() error {
	if h.Flags&PageTypeSlotted == 0 {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d is not a slotted page (flags %#x)", h.PageNo, h.Flags)
	}
	slotBytes := uint32(h.SlotCount) * SlotSize
	if uint32(h.FreeOffset)+slotBytes > DataRegionSize {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d: free offset %d and %d slots overflow the data region", h.PageNo, h.FreeOffset, h.SlotCount)
	}
	if h.Unused > h.FreeOffset {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d: unused %d exceeds free offset %d", h.PageNo, h.Unused, h.FreeOffset)
	}
	return nil
}

func (sp *SlottedPage) writeHeader() {
	h := sp.hdr
	copy(sp.buf[offsetPageNo:], h.PageNo.Serialize())
	copy(sp.buf[offsetVolNo:], types.UInt16(h.Volume).Serialize())
	copy(sp.buf[offsetFlags:], types.UInt16(h.Flags).Serialize())
	copy(sp.buf[offsetSlotCount:], types.UInt16(h.SlotCount).Serialize())
	copy(sp.buf[offsetFreeOffset:], types.UInt16(h.FreeOffset).Serialize())
	copy(sp.buf[offsetUnused:], types.UInt16(h.Unused).Serialize())
	copy(sp.buf[offsetFileID:], types.UInt32(h.FileID).Serialize())
	copy(sp.buf[offsetUnique:], types.UInt32(h.Unique).Serialize())
	copy(sp.buf[offsetPrevPage:], h.PrevPage.Encode().Serialize())
	copy(sp.buf[offsetNextPage:], h.NextPage.Encode().Serialize())
	copy(sp.buf[offsetSpaceListPrev:], h.SpaceListPrev.Encode().Serialize())
	copy(sp.buf[offsetSpaceListNext:], h.SpaceListNext.Encode().Serialize())
}

// Header returns a copy of the decoded header
func (sp *SlottedPage) Header() PageHeader {
	return sp.hdr
}

func (sp *SlottedPage) GetPageId() types.PageID {
	return sp.hdr.PageNo
}

func (sp *SlottedPage) GetSlotCount() uint16 {
	return sp.hdr.SlotCount
}

func (sp *SlottedPage) SetSlotCount(n uint16) {
	sp.hdr.SlotCount = n
	sp.writeHeader()
}

func (sp *SlottedPage) GetFreeOffset() uint16 {
	return sp.hdr.FreeOffset
}

func (sp *SlottedPage) SetFreeOffset(off uint16) {
	sp.hdr.FreeOffset = off
	sp.writeHeader()
}

func (sp *SlottedPage) GetUnused() uint16 {
	return sp.hdr.Unused
}

func (sp *SlottedPage) SetUnused(n uint16) {
	sp.hdr.Unused = n
	sp.writeHeader()
}

func (sp *SlottedPage) GetPrevPage() types.PageLink {
	return sp.hdr.PrevPage
}

func (sp *SlottedPage) SetPrevPage(l types.PageLink) {
	sp.hdr.PrevPage = l
	sp.writeHeader()
}

func (sp *SlottedPage) GetNextPage() types.PageLink {
	return sp.hdr.NextPage
}

func (sp *SlottedPage) SetNextPage(l types.PageLink) {
	sp.hdr.NextPage = l
	sp.writeHeader()
}

func (sp *SlottedPage) GetSpaceListPrev() types.PageLink {
	return sp.hdr.SpaceListPrev
}

func (sp *SlottedPage) GetSpaceListNext() types.PageLink {
	return sp.hdr.SpaceListNext
}

func (sp *SlottedPage) SetSpaceListLinks(prev, next types.PageLink) {
	sp.hdr.SpaceListPrev = prev
	sp.hdr.SpaceListNext = next
	sp.writeHeader()
}

func slotPosition(i uint16) uint32 {
	return uint32(common.PageSize) - (uint32(i)+1)*SlotSize
}

// HasSlot reports whether i is inside the slot array
func (sp *SlottedPage) HasSlot(i uint16) bool {
	return i < sp.hdr.SlotCount
}

// Slot decodes slot i, which must be inside the slot array
func (sp *SlottedPage) Slot(i uint16) Slot {
	common.SH_Assert(sp.HasSlot(i), "slot index out of the slot array")
	pos := slotPosition(i)
	return Slot{
		Offset: int16(types.NewInt16FromBytes(sp.buf[pos:])),
		Unique: uint32(types.NewUInt32FromBytes(sp.buf[pos+4:])),
	}
}

func (sp *SlottedPage) SetSlot(i uint16, s Slot) {
	common.SH_Assert(uint32(i+1)*SlotSize+uint32(sp.hdr.FreeOffset) <= DataRegionSize, "slot overlaps the data region")
	pos := slotPosition(i)
	copy(sp.buf[pos:], types.Int16(s.Offset).Serialize())
	copy(sp.buf[pos+2:], []byte{0, 0})
	copy(sp.buf[pos+4:], types.UInt32(s.Unique).Serialize())
}

// ObjectHeaderAt decodes the object header stored at a data-region offset
func (sp *SlottedPage) ObjectHeaderAt(offset uint16) ObjectHeader {
	pos := SlottedPageHeaderSize + uint32(offset)
	return ObjectHeader{
		Properties: uint16(types.NewUInt16FromBytes(sp.buf[pos:])),
		Tag:        uint16(types.NewUInt16FromBytes(sp.buf[pos+2:])),
		Length:     uint32(types.NewUInt32FromBytes(sp.buf[pos+4:])),
	}
}

// ObjectPayload returns the payload bytes of the object at offset. The slice
// aliases the page buffer.
func (sp *SlottedPage) ObjectPayload(offset uint16) []byte {
	hdr := sp.ObjectHeaderAt(offset)
	start := SlottedPageHeaderSize + uint32(offset) + ObjectHeaderSize
	return sp.buf[start : start+hdr.Length]
}

func (sp *SlottedPage) writeObject(offset uint16, hdr ObjectHeader, data []byte) {
	pos := SlottedPageHeaderSize + uint32(offset)
	copy(sp.buf[pos:], types.UInt16(hdr.Properties).Serialize())
	copy(sp.buf[pos+2:], types.UInt16(hdr.Tag).Serialize())
	copy(sp.buf[pos+4:], types.UInt32(hdr.Length).Serialize())
	pos += ObjectHeaderSize
	copy(sp.buf[pos:], data)
	for i := pos + hdr.Length; i < pos+common.AlignedLength(hdr.Length); i++ {
		sp.buf[i] = 0
	}
}

// ContiguousFree is the size of the free region between the objects and the
// slot array
func (sp *SlottedPage) ContiguousFree() uint32 {
	return DataRegionSize - uint32(sp.hdr.FreeOffset) - uint32(sp.hdr.SlotCount)*SlotSize
}

// TotalFree counts the contiguous free region and the fragmented unused bytes
func (sp *SlottedPage) TotalFree() uint32 {
	return sp.ContiguousFree() + uint32(sp.hdr.Unused)
}

// LiveBytes is the number of data-region bytes held by objects
func (sp *SlottedPage) LiveBytes() uint32 {
	return uint32(sp.hdr.FreeOffset) - uint32(sp.hdr.Unused)
}

// IsEmpty reports whether no object is left on the page
func (sp *SlottedPage) IsEmpty() bool {
	return sp.LiveBytes() == 0
}

// firstEmptySlot returns the lowest empty slot index, or SlotCount
func (sp *SlottedPage) firstEmptySlot() uint16 {
	for i := uint16(0); i < sp.hdr.SlotCount; i++ {
		if sp.Slot(i).IsEmpty() {
			return i
		}
	}
	return sp.hdr.SlotCount
}

// FitsContiguous reports whether an object of length bytes can be placed
// without compaction
func (sp *SlottedPage) FitsContiguous(length uint32) bool {
	need := ObjectHeaderSize + common.AlignedLength(length)
	if sp.firstEmptySlot() == sp.hdr.SlotCount {
		need += SlotSize
	}
	return sp.ContiguousFree() >= need
}

// Fits reports whether an object of length bytes fits once the page is
// compacted
func (sp *SlottedPage) Fits(length uint32) bool {
	need := ObjectHeaderSize + common.AlignedLength(length)
	if sp.firstEmptySlot() == sp.hdr.SlotCount {
		need += SlotSize
	}
	return sp.TotalFree() >= need
}

// PlaceObject writes an object at the free offset, reusing the lowest empty
// slot or appending one, and returns the slot index and its unique number.
// The caller guarantees FitsContiguous(len(data)).
func (sp *SlottedPage) PlaceObject(hdr ObjectHeader, data []byte) (uint16, uint32) {
	hdr.Length = uint32(len(data))
	common.SH_Assert(sp.FitsContiguous(hdr.Length), "PlaceObject: not enough contiguous space")

	slotNo := sp.firstEmptySlot()
	offset := sp.hdr.FreeOffset
	sp.writeObject(offset, hdr, data)

	unique := sp.hdr.Unique
	sp.hdr.Unique++
	if slotNo == sp.hdr.SlotCount {
		sp.hdr.SlotCount++
	}
	sp.hdr.FreeOffset = offset + uint16(hdr.Footprint())
	sp.writeHeader()
	sp.SetSlot(slotNo, Slot{Offset: int16(offset), Unique: unique})
	return slotNo, unique
}

// Compact slides every object to the front of the data region so the unused
// bytes join the contiguous free region. If preserve is a live slot its
// object is moved last, next to the free region.
func (sp *SlottedPage) Compact(preserve int) {
	region := make([]byte, DataRegionSize)
	copy(region, sp.buf[SlottedPageHeaderSize:])

	next := uint32(0)
	move := func(i uint16) {
		s := sp.Slot(i)
		// the buffer is overwritten as we go, read lengths from the copy
		length := uint32(types.NewUInt32FromBytes(region[uint32(s.Offset)+4:]))
		n := ObjectHeader{Length: length}.Footprint()
		copy(sp.buf[SlottedPageHeaderSize+next:], region[uint32(s.Offset):uint32(s.Offset)+n])
		sp.SetSlot(i, Slot{Offset: int16(next), Unique: s.Unique})
		next += n
	}

	for i := uint16(0); i < sp.hdr.SlotCount; i++ {
		if int(i) == preserve || sp.Slot(i).IsEmpty() {
			continue
		}
		move(i)
	}
	if preserve >= 0 && preserve < int(sp.hdr.SlotCount) && !sp.Slot(uint16(preserve)).IsEmpty() {
		move(uint16(preserve))
	}

	sp.hdr.FreeOffset = uint16(next)
	sp.hdr.Unused = 0
	sp.writeHeader()
}
