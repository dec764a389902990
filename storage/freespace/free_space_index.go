package freespace

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	pair "github.com/notEpsilon/go-pair"
	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

// Bucket is a free space class. Bucket b holds pages with at least
// (b+1)*10% of the data region free.
type Bucket int

const NoBucket = Bucket(-1)

// thresholds pairs each bucket with its minimum free byte count, smallest first
var thresholds = func() []pair.Pair[Bucket, uint32] {
	ret := make([]pair.Pair[Bucket, uint32], 0, common.NumFreeSpaceBuckets)
	for b := 0; b < common.NumFreeSpaceBuckets; b++ {
		ret = append(ret, pair.Pair[Bucket, uint32]{First: Bucket(b), Second: uint32(b+1) * page.DataRegionSize / 10})
	}
	return ret
}()

func (b Bucket) String() string {
	if b == NoBucket {
		return "none"
	}
	return fmt.Sprintf("B%d", (int(b)+1)*10)
}

// Threshold is the least free byte count of a page in b
func Threshold(b Bucket) uint32 {
	return thresholds[b].Second
}

// BucketOf returns the highest bucket whose threshold totalFree reaches, or
// NoBucket below 10%
func BucketOf(totalFree uint32) Bucket {
	ret := NoBucket
	for _, t := range thresholds {
		if totalFree >= t.Second {
			ret = t.First
		}
	}
	return ret
}

// Index keeps the pages of a file in free space buckets. Bucket membership
// is a doubly linked list threaded through the page headers
// (spaceListPrev/Next); the heads live in the catalog entry.
//
// Bucket choice always reads the current page metrics, so a page must be
// removed before its free space changes and inserted again afterwards.
type Index struct {
	bpm *buffer.BufferPoolManager
}

func NewIndex(bpm *buffer.BufferPoolManager) *Index {
	return &Index{bpm}
}

// headBucket returns the bucket whose head is pid
func headBucket(entry *catalog.Entry, pid types.PageID) Bucket {
	for _, t := range thresholds {
		if entry.AvailSpaceList(int(t.First)).Is(pid) {
			return t.First
		}
	}
	return NoBucket
}

// IsMember reports whether the page sp (page pid) is on some bucket list
func IsMember(entry *catalog.Entry, pid types.PageID, sp *page.SlottedPage) bool {
	return !sp.GetSpaceListPrev().IsNone() || headBucket(entry, pid) != NoBucket
}

// Remove takes page pid out of its bucket. Removing a page which is on no
// bucket is a no-op.
func (x *Index) Remove(entry *catalog.Entry, pid types.PageID, sp *page.SlottedPage) (err error) {
	prev, next := sp.GetSpaceListPrev(), sp.GetSpaceListNext()
	head := NoBucket
	if prev.IsNone() {
		if head = headBucket(entry, pid); head == NoBucket {
			return nil
		}
	}

	// pin both neighbors before touching anything
	var prevPage, nextPage *page.SlottedPage
	if id, ok := prev.Get(); ok {
		var g *buffer.PageGuard
		if g, prevPage, err = x.fetch(id); err != nil {
			return err
		}
		defer g.ReleaseInto(&err)
		g.MarkDirty()
	}
	if id, ok := next.Get(); ok {
		var g *buffer.PageGuard
		if g, nextPage, err = x.fetch(id); err != nil {
			return err
		}
		defer g.ReleaseInto(&err)
		g.MarkDirty()
	}

	if prevPage != nil {
		prevPage.SetSpaceListLinks(prevPage.GetSpaceListPrev(), next)
	} else {
		entry.SetAvailSpaceList(int(head), next)
	}
	if nextPage != nil {
		nextPage.SetSpaceListLinks(prev, nextPage.GetSpaceListNext())
	}
	sp.SetSpaceListLinks(types.NoPage, types.NoPage)

	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "freespace.Remove: page %d out of its bucket\n", pid)
	}
	return nil
}

// Insert pushes page pid at the head of the bucket matching its current free
// space. Pages with less than 10% free are left out.
func (x *Index) Insert(entry *catalog.Entry, pid types.PageID, sp *page.SlottedPage) (err error) {
	b := BucketOf(sp.TotalFree())
	if b == NoBucket {
		return nil
	}
	common.SH_Assert(!IsMember(entry, pid, sp), "freespace.Insert: page is already on a bucket")

	head := entry.AvailSpaceList(int(b))
	if id, ok := head.Get(); ok {
		var g *buffer.PageGuard
		var headPage *page.SlottedPage
		if g, headPage, err = x.fetch(id); err != nil {
			return err
		}
		defer g.ReleaseInto(&err)
		headPage.SetSpaceListLinks(types.LinkTo(pid), headPage.GetSpaceListNext())
		g.MarkDirty()
	}

	sp.SetSpaceListLinks(types.NoPage, head)
	entry.SetAvailSpaceList(int(b), types.LinkTo(pid))

	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "freespace.Insert: page %d into %v\n", pid, b)
	}
	return nil
}

// Select returns a page from the smallest bucket guaranteeing needed free
// bytes, or NoPage when no bucket does
func Select(entry *catalog.Entry, needed uint32) types.PageLink {
	for _, t := range thresholds {
		if t.Second < needed {
			continue
		}
		if head := entry.AvailSpaceList(int(t.First)); !head.IsNone() {
			return head
		}
	}
	return types.NoPage
}

// Members walks every bucket list and returns its pages. Broken back links,
// cycles and pages found on two lists are reported as ErrCorruptPage.
func (x *Index) Members(entry *catalog.Entry) (map[Bucket]mapset.Set[types.PageID], error) {
	ret := make(map[Bucket]mapset.Set[types.PageID])
	seen := mapset.NewThreadUnsafeSet[types.PageID]()

	for _, t := range thresholds {
		members := mapset.NewThreadUnsafeSet[types.PageID]()
		prev := types.NoPage
		link := entry.AvailSpaceList(int(t.First))
		for !link.IsNone() {
			pid, _ := link.Get()
			if !seen.Add(pid) {
				return nil, pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d is listed twice in the free space buckets", pid)
			}
			members.Add(pid)

			next, err := x.visit(pid, prev)
			if err != nil {
				return nil, err
			}
			prev = link
			link = next
		}
		ret[t.First] = members
	}
	return ret, nil
}

func (x *Index) visit(pid types.PageID, expectPrev types.PageLink) (_ types.PageLink, err error) {
	g, sp, err := x.fetch(pid)
	if err != nil {
		return types.NoPage, err
	}
	defer g.ReleaseInto(&err)

	if sp.GetSpaceListPrev() != expectPrev {
		return types.NoPage, pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d: bucket back link %v, expected %v", pid, sp.GetSpaceListPrev(), expectPrev)
	}
	return sp.GetSpaceListNext(), nil
}

// fetch pins pid and decodes it. The guard is released on decode failure.
func (x *Index) fetch(pid types.PageID) (*buffer.PageGuard, *page.SlottedPage, error) {
	g, err := x.bpm.FetchPageGuard(pid)
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
