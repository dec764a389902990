package access

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

// Cursor walks the objects of a file in page chain order, slot order inside
// a page. Pages are only read.
type Cursor struct {
	bpm *buffer.BufferPoolManager
}

func NewCursor(bpm *buffer.BufferPoolManager) *Cursor {
	return &Cursor{bpm}
}

type direction int

const (
	backward direction = iota
	forward
)

// fromPageEdge starts a page scan at its last slot (backward) or first slot
// (forward)
const fromPageEdge = -2

// PrevObject returns the object before cur, or the last object of the file
// when cur is nil. The header is a copy. Past the first object the error is
// the end of scan signal (errors.IsEndOfScan).
func (c *Cursor) PrevObject(catObj *catalog.Object, cur *page.ObjectID) (*page.ObjectID, page.ObjectHeader, error) {
	return c.step("Cursor::PrevObject", catObj, cur, backward)
}

// NextObject returns the object after cur, or the first object of the file
// when cur is nil
func (c *Cursor) NextObject(catObj *catalog.Object, cur *page.ObjectID) (*page.ObjectID, page.ObjectHeader, error) {
	return c.step("Cursor::NextObject", catObj, cur, forward)
}

func (c *Cursor) step(op string, catObj *catalog.Object, cur *page.ObjectID, dir direction) (_ *page.ObjectID, _ page.ObjectHeader, err error) {
	if catObj == nil {
		return nil, page.ObjectHeader{}, errors.InvalidArgument(op, errors.ErrBadCatalogObject)
	}
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "%s called. file:%d cur:%v\n", op, catObj.FileID, cur)
	}

	catGuard, entry, err := catalog.OpenEntry(c.bpm, catObj)
	if err != nil {
		return nil, page.ObjectHeader{}, errors.Collaborator(op, err)
	}
	defer release(op, catGuard, &err)

	var link types.PageLink
	from := fromPageEdge
	switch {
	case cur != nil:
		link = types.LinkTo(cur.Page)
		if dir == backward {
			from = int(cur.Slot) - 1
		} else {
			from = int(cur.Slot) + 1
		}
	case dir == backward:
		link = entry.LastPage()
	default:
		link = entry.FirstPage()
	}

	first := true
	for !link.IsNone() {
		pid, _ := link.Get()
		oid, hdr, next, err := c.scanPage(entry, catObj.Volume, pid, from, dir, first && cur != nil)
		if err != nil {
			return nil, page.ObjectHeader{}, err
		}
		if oid != nil {
			return oid, hdr, nil
		}
		link = next
		from = fromPageEdge
		first = false
	}
	return nil, page.ObjectHeader{}, errors.EndOfScan(op)
}

// scanPage looks for a live slot on page pid starting at from. On a miss
// it returns the neighbor page in scan direction.
func (c *Cursor) scanPage(entry *catalog.Entry, vol types.VolumeID, pid types.PageID, from int, dir direction, checkFile bool) (_ *page.ObjectID, _ page.ObjectHeader, _ types.PageLink, err error) {
	const op = "Cursor::scanPage"
	g, err := c.bpm.FetchPageGuard(pid)
	if err != nil {
		return nil, page.ObjectHeader{}, types.NoPage, errors.Collaborator(op, err)
	}
	defer release(op, g, &err)

	sp, err := page.DecodeSlottedPage(g.Data())
	if err != nil {
		return nil, page.ObjectHeader{}, types.NoPage, errors.Collaborator(op, err)
	}
	if checkFile && sp.Header().FileID != entry.FileID() {
		return nil, page.ObjectHeader{}, types.NoPage, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadObjectID, "page %d is not in file %d", pid, entry.FileID()))
	}

	n := int(sp.GetSlotCount())
	if dir == backward {
		if from == fromPageEdge || from >= n {
			from = n - 1
		}
		for i := from; i >= 0; i-- {
			if s := sp.Slot(uint16(i)); !s.IsEmpty() {
				return page.NewObjectID(vol, pid, uint16(i), s.Unique), sp.ObjectHeaderAt(uint16(s.Offset)), types.NoPage, nil
			}
		}
		return nil, page.ObjectHeader{}, sp.GetPrevPage(), nil
	}

	if from == fromPageEdge {
		from = 0
	}
	for i := from; i < n; i++ {
		if s := sp.Slot(uint16(i)); !s.IsEmpty() {
			return page.NewObjectID(vol, pid, uint16(i), s.Unique), sp.ObjectHeaderAt(uint16(s.Offset)), types.NoPage, nil
		}
	}
	return nil, page.ObjectHeader{}, sp.GetNextPage(), nil
}
