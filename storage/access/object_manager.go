package access

import (
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/dealloc"
	"github.com/noidwasavailable/Odysseus/storage/filechain"
	"github.com/noidwasavailable/Odysseus/storage/freespace"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

// ObjectManager stores variable length objects in the slotted pages of a
// file. The file is named by its catalog object, whose entry holds the page
// chain ends and the free space bucket heads.
//
// Every call pins the catalog page for its whole duration and releases all
// pins it took before returning, on error paths too. There is no latching
// here; callers serialize access to a file.
type ObjectManager struct {
	bpm   *buffer.BufferPoolManager
	fsi   *freespace.Index
	chain *filechain.Chain
}

func NewObjectManager(bpm *buffer.BufferPoolManager) *ObjectManager {
	return &ObjectManager{bpm, freespace.NewIndex(bpm), filechain.NewChain(bpm)}
}

// release unpins g and adds a failure to *errp
func release(op string, g *buffer.PageGuard, errp *error) {
	multierr.AppendInto(errp, errors.Collaborator(op, g.Release()))
}

func (om *ObjectManager) fetch(pid types.PageID) (*buffer.PageGuard, *page.SlottedPage, error) {
	g, err := om.bpm.FetchPageGuard(pid)
	if err != nil {
		return nil, nil, err
	}
	sp, err := page.DecodeSlottedPage(g.Data())
	if err != nil {
		g.ReleaseInto(&err)
		return nil, nil, err
	}
	return g, sp, nil
}

// checkObjectID verifies that oid names a live object of the file
func checkObjectID(entry *catalog.Entry, sp *page.SlottedPage, catObj *catalog.Object, oid *page.ObjectID) error {
	if oid.Volume != catObj.Volume {
		return pkgerrors.Wrapf(errors.ErrBadObjectID, "%v is not on volume %d", oid, catObj.Volume)
	}
	if sp.Header().FileID != entry.FileID() {
		return pkgerrors.Wrapf(errors.ErrBadObjectID, "%v: page belongs to file %d", oid, sp.Header().FileID)
	}
	if !sp.HasSlot(oid.Slot) {
		return pkgerrors.Wrapf(errors.ErrBadObjectID, "%v: page has %d slots", oid, sp.GetSlotCount())
	}
	s := sp.Slot(oid.Slot)
	if s.IsEmpty() || s.Unique != oid.Unique {
		return pkgerrors.Wrapf(errors.ErrBadObjectID, "%v: no such object", oid)
	}
	return nil
}

// isLinked reports whether page pid is on the file's page chain
func isLinked(entry *catalog.Entry, pid types.PageID, sp *page.SlottedPage) bool {
	return !sp.GetPrevPage().IsNone() || entry.FirstPage().Is(pid)
}

// DestroyObject removes the object oid from the file of catObj. A page left
// without live objects is unlinked from the file and a PAGE element drawn
// from pool is pushed on dlHead; its space is given back by whoever drains
// the list. Otherwise the page moves to the bucket matching its new free
// space.
func (om *ObjectManager) DestroyObject(catObj *catalog.Object, oid *page.ObjectID, pool *dealloc.Pool, dlHead *dealloc.List) (err error) {
	const op = "ObjectManager::DestroyObject"
	if catObj == nil {
		return errors.InvalidArgument(op, errors.ErrBadCatalogObject)
	}
	if oid == nil {
		return errors.InvalidArgument(op, errors.ErrBadObjectID)
	}
	if pool == nil || dlHead == nil {
		return errors.InvalidArgument(op, errors.ErrBadPool)
	}
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "ObjectManager::DestroyObject called. file:%d oid:%v\n", catObj.FileID, *oid)
	}

	catGuard, entry, err := catalog.OpenEntry(om.bpm, catObj)
	if err != nil {
		return errors.Collaborator(op, err)
	}
	defer release(op, catGuard, &err)

	g, sp, err := om.fetch(oid.Page)
	if err != nil {
		return errors.Collaborator(op, err)
	}
	defer release(op, g, &err)

	if err = checkObjectID(entry, sp, catObj, oid); err != nil {
		return errors.InvalidArgument(op, err)
	}
	trailing := oid.Slot == sp.GetSlotCount()-1

	catGuard.MarkDirty()
	g.MarkDirty()
	if err = om.fsi.Remove(entry, oid.Page, sp); err != nil {
		return errors.Collaborator(op, err)
	}

	s := sp.Slot(oid.Slot)
	offset := uint16(s.Offset)
	footprint := sp.ObjectHeaderAt(offset).Footprint()

	sp.SetSlot(oid.Slot, page.Slot{Offset: page.EmptySlot, Unique: s.Unique})
	if trailing {
		sp.SetSlotCount(sp.GetSlotCount() - 1)
	}
	if uint32(offset)+footprint == uint32(sp.GetFreeOffset()) {
		sp.SetFreeOffset(offset)
	} else {
		sp.SetUnused(sp.GetUnused() + uint16(footprint))
	}

	if !sp.IsEmpty() {
		if err = om.fsi.Insert(entry, oid.Page, sp); err != nil {
			return errors.Collaborator(op, err)
		}
		return nil
	}

	// take the element first so a pool failure leaves the chain untouched
	elem, err := pool.Get()
	if err != nil {
		return errors.Collaborator(op, err)
	}
	if err = om.chain.Unlink(entry, oid.Page, sp); err != nil {
		pool.Put(elem)
		return errors.Collaborator(op, err)
	}
	elem.Kind = dealloc.PAGE
	elem.PageID = oid.Page
	dlHead.Push(elem)

	common.ShPrintf(common.DEBUG_INFO, "ObjectManager::DestroyObject: page %d of file %d is empty, queued for deallocation\n", oid.Page, catObj.FileID)
	return nil
}

// CreateObject stores data as a new object of the file of catObj. The object
// goes next to nearObj when its page has room, otherwise on a new page
// linked right after it. Without nearObj a page is taken from the free space
// buckets, then the last page, and a new last page as the final resort.
func (om *ObjectManager) CreateObject(catObj *catalog.Object, nearObj *page.ObjectID, hdr *page.ObjectHeader, data []byte) (_ *page.ObjectID, err error) {
	const op = "ObjectManager::CreateObject"
	if catObj == nil {
		return nil, errors.InvalidArgument(op, errors.ErrBadCatalogObject)
	}
	length := uint32(len(data))
	if page.NeededSpace(length) > page.DataRegionSize {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadLength, "object of %d bytes does not fit a page", length))
	}
	var h page.ObjectHeader
	if hdr != nil {
		h = *hdr
	}
	if common.EnableDebug {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "ObjectManager::CreateObject called. file:%d near:%v len:%d\n", catObj.FileID, nearObj, length)
	}

	catGuard, entry, err := catalog.OpenEntry(om.bpm, catObj)
	if err != nil {
		return nil, errors.Collaborator(op, err)
	}
	defer release(op, catGuard, &err)
	catGuard.MarkDirty()

	var g *buffer.PageGuard
	var sp *page.SlottedPage
	after := types.NoPage

	if nearObj != nil {
		if g, sp, err = om.fetch(nearObj.Page); err != nil {
			return nil, errors.Collaborator(op, err)
		}
		if sp.Header().FileID != entry.FileID() || !isLinked(entry, nearObj.Page, sp) {
			release(op, g, &err)
			return nil, multierr.Append(errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadObjectID, "near object %v is not in file %d", nearObj, entry.FileID())), err)
		}
		if !sp.Fits(length) {
			release(op, g, &err)
			if err != nil {
				return nil, err
			}
			g, sp = nil, nil
			after = types.LinkTo(nearObj.Page)
		}
	} else {
		candidate := freespace.Select(entry, page.NeededSpace(length))
		if candidate.IsNone() {
			candidate = entry.LastPage()
		}
		if pid, ok := candidate.Get(); ok {
			if g, sp, err = om.fetch(pid); err != nil {
				return nil, errors.Collaborator(op, err)
			}
			if !sp.Fits(length) {
				release(op, g, &err)
				if err != nil {
					return nil, err
				}
				g, sp = nil, nil
			}
		}
	}

	if g == nil {
		if g, err = om.bpm.NewPageGuard(); err != nil {
			return nil, errors.Collaborator(op, err)
		}
		defer release(op, g, &err)
		if sp, err = page.InitSlottedPage(g.Data(), g.PageID(), catObj.Volume, entry.FileID()); err != nil {
			return nil, errors.Collaborator(op, err)
		}
		if err = om.chain.InsertAfter(entry, after, g.PageID(), sp); err != nil {
			return nil, errors.Collaborator(op, err)
		}
		common.ShPrintf(common.DEBUG_INFO, "ObjectManager::CreateObject: new page %d for file %d after %v\n", g.PageID(), entry.FileID(), after)
	} else {
		defer release(op, g, &err)
		if err = om.fsi.Remove(entry, g.PageID(), sp); err != nil {
			return nil, errors.Collaborator(op, err)
		}
	}
	g.MarkDirty()

	if !sp.FitsContiguous(length) {
		om.CompactPage(sp, -1)
	}
	slot, unique := sp.PlaceObject(h, data)

	if err = om.fsi.Insert(entry, g.PageID(), sp); err != nil {
		return nil, errors.Collaborator(op, err)
	}
	return page.NewObjectID(catObj.Volume, g.PageID(), slot, unique), nil
}

// ReadObject returns a copy of length bytes of the object oid from start.
// A length of -1 reads to the end of the object.
func (om *ObjectManager) ReadObject(oid *page.ObjectID, start uint32, length int32) (_ []byte, err error) {
	const op = "ObjectManager::ReadObject"
	if oid == nil {
		return nil, errors.InvalidArgument(op, errors.ErrBadObjectID)
	}

	g, sp, err := om.fetch(oid.Page)
	if err != nil {
		return nil, errors.Collaborator(op, err)
	}
	defer release(op, g, &err)

	if !sp.HasSlot(oid.Slot) {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadObjectID, "%v: page has %d slots", oid, sp.GetSlotCount()))
	}
	s := sp.Slot(oid.Slot)
	if s.IsEmpty() || s.Unique != oid.Unique {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadObjectID, "%v: no such object", oid))
	}

	payload := sp.ObjectPayload(uint16(s.Offset))
	total := uint32(len(payload))
	if start > total {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadLength, "start %d past object of %d bytes", start, total))
	}
	end := total
	if length >= 0 {
		end = start + uint32(length)
	} else if length != -1 {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadLength, "length %d", length))
	}
	if end > total {
		return nil, errors.InvalidArgument(op, pkgerrors.Wrapf(errors.ErrBadLength, "range [%d, %d) past object of %d bytes", start, end, total))
	}

	ret := make([]byte, end-start)
	copy(ret, payload[start:end])
	return ret, nil
}

// CompactPage gathers the fragmented space of sp into its free region.
// preserveSlot, when it is a live slot, has its object moved last.
func (om *ObjectManager) CompactPage(sp *page.SlottedPage, preserveSlot int) {
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "ObjectManager::CompactPage: page %d unused %d free %d\n", sp.GetPageId(), sp.GetUnused(), sp.GetFreeOffset())
	}
	sp.Compact(preserveSlot)
}

// CheckFile verifies the structure of a file: the page chain links, that
// every page sits in the bucket matching its free space (and in one bucket
// at most) and the space accounting of every page. Violations are reported
// as ErrCorruptPage.
func (om *ObjectManager) CheckFile(catObj *catalog.Object) (err error) {
	const op = "ObjectManager::CheckFile"
	if catObj == nil {
		return errors.InvalidArgument(op, errors.ErrBadCatalogObject)
	}

	catGuard, entry, err := catalog.OpenEntry(om.bpm, catObj)
	if err != nil {
		return errors.Collaborator(op, err)
	}
	defer release(op, catGuard, &err)

	pages, err := om.chain.Pages(entry)
	if err != nil {
		return errors.Collaborator(op, err)
	}
	members, err := om.fsi.Members(entry)
	if err != nil {
		return errors.Collaborator(op, err)
	}
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO, "ObjectManager::CheckFile: file %d pages %v buckets %s\n", entry.FileID(), pages, describeBuckets(members))
	}

	chained := mapset.NewThreadUnsafeSet[types.PageID](pages...)
	bucketOf := make(map[types.PageID]freespace.Bucket)
	for b, set := range members {
		if !set.IsSubset(chained) {
			return errors.Collaborator(op, pkgerrors.Wrapf(errors.ErrCorruptPage, "bucket %v holds pages %v which are not in file %d", b, set.Difference(chained).ToSlice(), entry.FileID()))
		}
		for _, pid := range set.ToSlice() {
			bucketOf[pid] = b
		}
	}

	for _, pid := range pages {
		expect, ok := bucketOf[pid]
		if !ok {
			expect = freespace.NoBucket
		}
		if err = om.checkPage(entry, pid, expect); err != nil {
			return errors.Collaborator(op, err)
		}
	}
	return nil
}

func (om *ObjectManager) checkPage(entry *catalog.Entry, pid types.PageID, bucket freespace.Bucket) (err error) {
	g, sp, err := om.fetch(pid)
	if err != nil {
		return err
	}
	defer g.ReleaseInto(&err)

	if sp.Header().FileID != entry.FileID() {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d belongs to file %d, chained in file %d", pid, sp.Header().FileID, entry.FileID())
	}
	if sp.IsEmpty() {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d has no objects but is still chained", pid)
	}

	live := uint32(0)
	for i := uint16(0); i < sp.GetSlotCount(); i++ {
		s := sp.Slot(i)
		if s.IsEmpty() {
			continue
		}
		fp := sp.ObjectHeaderAt(uint16(s.Offset)).Footprint()
		if uint32(s.Offset)+fp > uint32(sp.GetFreeOffset()) {
			return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d slot %d runs past the free offset", pid, i)
		}
		live += fp
	}
	if live != sp.LiveBytes() {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d: objects use %d bytes, header accounts for %d", pid, live, sp.LiveBytes())
	}
	if want := freespace.BucketOf(sp.TotalFree()); want != bucket {
		return pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d with %d free bytes is in bucket %v, expected %v", pid, sp.TotalFree(), bucket, want)
	}
	return nil
}

func describeBuckets(members map[freespace.Bucket]mapset.Set[types.PageID]) string {
	keys := maps.Keys(members)
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, b := range keys {
		ids := members[b].ToSlice()
		slices.Sort(ids)
		parts = append(parts, fmt.Sprintf("%v:%v", b, ids))
	}
	return strings.Join(parts, " ")
}
