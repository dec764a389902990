package catalog

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/types"
)

// Catalog entry format (payload of a catalog object, size in bytes):
//
//	-------------------------------------------------------------------------
//	| FileID (4) | Eff (2) | Reserved (2) | FirstPage (4) | LastPage (4) |
//	-------------------------------------------------------------------------
//	| AvailSpaceList[0..4] (4 each, buckets 10%..50%) | Name (rest) |
//	-------------------------------------------------------------------------
const (
	offsetFileID         = 0
	offsetEff            = 4
	offsetFirstPage      = 8
	offsetLastPage       = 12
	offsetAvailSpaceList = 16

	// EntrySize is the fixed part of an entry. The file name follows it.
	EntrySize = offsetAvailSpaceList + common.NumFreeSpaceBuckets*4
)

// Entry is an in-place view over a catalog entry stored in a pinned page.
// Every setter writes straight into the page buffer; the caller marks the
// catalog page dirty. An Entry must not outlive the pin it was opened under.
type Entry struct {
	buf []byte
}

// NewEntry wraps the payload of a catalog object
func NewEntry(payload []byte) (*Entry, error) {
	if len(payload) < EntrySize {
		return nil, pkgerrors.Wrapf(errors.ErrBadCatalogObject, "catalog entry is %d bytes", len(payload))
	}
	return &Entry{payload}, nil
}

// formatEntry builds the payload of a fresh entry for an empty file
func formatEntry(fileID uint32, eff uint16, name string) []byte {
	buf := make([]byte, EntrySize+len(name))
	e := &Entry{buf}
	copy(buf[offsetFileID:], types.UInt32(fileID).Serialize())
	copy(buf[offsetEff:], types.UInt16(eff).Serialize())
	e.SetFirstPage(types.NoPage)
	e.SetLastPage(types.NoPage)
	for b := 0; b < common.NumFreeSpaceBuckets; b++ {
		e.SetAvailSpaceList(b, types.NoPage)
	}
	copy(buf[EntrySize:], name)
	return buf
}

func (e *Entry) FileID() uint32 {
	return uint32(types.NewUInt32FromBytes(e.buf[offsetFileID:]))
}

// Eff is the extent fill factor in percent
func (e *Entry) Eff() uint16 {
	return uint16(types.NewUInt16FromBytes(e.buf[offsetEff:]))
}

func (e *Entry) Name() string {
	return string(e.buf[EntrySize:])
}

func (e *Entry) FirstPage() types.PageLink {
	return e.link(offsetFirstPage)
}

func (e *Entry) SetFirstPage(l types.PageLink) {
	e.setLink(offsetFirstPage, l)
}

func (e *Entry) LastPage() types.PageLink {
	return e.link(offsetLastPage)
}

func (e *Entry) SetLastPage(l types.PageLink) {
	e.setLink(offsetLastPage, l)
}

// AvailSpaceList returns the head of free-space bucket b
func (e *Entry) AvailSpaceList(b int) types.PageLink {
	common.SH_Assert(b >= 0 && b < common.NumFreeSpaceBuckets, "bucket out of range")
	return e.link(offsetAvailSpaceList + 4*b)
}

func (e *Entry) SetAvailSpaceList(b int, l types.PageLink) {
	common.SH_Assert(b >= 0 && b < common.NumFreeSpaceBuckets, "bucket out of range")
	e.setLink(offsetAvailSpaceList+4*b, l)
}

func (e *Entry) link(off int) types.PageLink {
	return types.DecodePageLink(types.NewPageIDFromBytes(e.buf[off:]))
}

func (e *Entry) setLink(off int, l types.PageLink) {
	copy(e.buf[off:], l.Encode().Serialize())
}

func (e *Entry) String() string {
	return fmt.Sprintf("file %d %q first:%v last:%v", e.FileID(), e.Name(), e.FirstPage(), e.LastPage())
}
