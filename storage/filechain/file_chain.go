package filechain

import (
	mapset "github.com/deckarep/golang-set/v2"
	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

// Chain maintains the doubly linked list of a file's pages. The list is
// rooted at the first/last page of the catalog entry and threaded through
// prevPage/nextPage of every page header.
type Chain struct {
	bpm *buffer.BufferPoolManager
}

func NewChain(bpm *buffer.BufferPoolManager) *Chain {
	return &Chain{bpm}
}

// Unlink removes page pid from the chain and clears its own links
func (c *Chain) Unlink(entry *catalog.Entry, pid types.PageID, sp *page.SlottedPage) (err error) {
	prev, next := sp.GetPrevPage(), sp.GetNextPage()

	var prevPage, nextPage *page.SlottedPage
	if id, ok := prev.Get(); ok {
		var g *buffer.PageGuard
		if g, prevPage, err = c.fetch(id); err != nil {
			return err
		}
		defer g.ReleaseInto(&err)
		g.MarkDirty()
	}
	if id, ok := next.Get(); ok {
		var g *buffer.PageGuard
		if g, nextPage, err = c.fetch(id); err != nil {
			return err
		}
		defer g.ReleaseInto(&err)
		g.MarkDirty()
	}

	if prevPage != nil {
		prevPage.SetNextPage(next)
	} else {
		entry.SetFirstPage(next)
	}
	if nextPage != nil {
		nextPage.SetPrevPage(prev)
	} else {
		entry.SetLastPage(prev)
	}
	sp.SetPrevPage(types.NoPage)
	sp.SetNextPage(types.NoPage)

	common.ShPrintf(common.DEBUG_INFO, "filechain.Unlink: page %d (prev %v, next %v)\n", pid, prev, next)
	return nil
}

// InsertAfter links page pid right after `after`. With after == NoPage the
// page is appended as the last page, or becomes the only page of an empty
// chain.
func (c *Chain) InsertAfter(entry *catalog.Entry, after types.PageLink, pid types.PageID, sp *page.SlottedPage) (err error) {
	if after.IsNone() {
		after = entry.LastPage()
	}

	afterID, ok := after.Get()
	if !ok {
		entry.SetFirstPage(types.LinkTo(pid))
		entry.SetLastPage(types.LinkTo(pid))
		sp.SetPrevPage(types.NoPage)
		sp.SetNextPage(types.NoPage)
		return nil
	}

	var g *buffer.PageGuard
	var afterPage *page.SlottedPage
	if g, afterPage, err = c.fetch(afterID); err != nil {
		return err
	}
	defer g.ReleaseInto(&err)

	next := afterPage.GetNextPage()
	if id, ok := next.Get(); ok {
		var ng *buffer.PageGuard
		var nextPage *page.SlottedPage
		if ng, nextPage, err = c.fetch(id); err != nil {
			return err
		}
		defer ng.ReleaseInto(&err)
		nextPage.SetPrevPage(types.LinkTo(pid))
		ng.MarkDirty()
	} else {
		entry.SetLastPage(types.LinkTo(pid))
	}

	afterPage.SetNextPage(types.LinkTo(pid))
	g.MarkDirty()
	sp.SetPrevPage(after)
	sp.SetNextPage(next)
	return nil
}

// Pages returns the chain in forward order
func (c *Chain) Pages(entry *catalog.Entry) ([]types.PageID, error) {
	ret := make([]types.PageID, 0)
	seen := mapset.NewThreadUnsafeSet[types.PageID]()
	prev := types.NoPage
	link := entry.FirstPage()
	for !link.IsNone() {
		pid, _ := link.Get()
		if !seen.Add(pid) {
			return nil, pkgerrors.Wrapf(errors.ErrCorruptPage, "page chain of file %d loops at page %d", entry.FileID(), pid)
		}
		ret = append(ret, pid)

		next, err := c.visit(pid, prev)
		if err != nil {
			return nil, err
		}
		prev = link
		link = next
	}
	if !entry.LastPage().Is(lastOf(ret)) && !(len(ret) == 0 && entry.LastPage().IsNone()) {
		return nil, pkgerrors.Wrapf(errors.ErrCorruptPage, "file %d: last page %v but chain ends at %d", entry.FileID(), entry.LastPage(), lastOf(ret))
	}
	return ret, nil
}

func lastOf(ids []types.PageID) types.PageID {
	if len(ids) == 0 {
		return types.InvalidPageID
	}
	return ids[len(ids)-1]
}

func (c *Chain) visit(pid types.PageID, expectPrev types.PageLink) (_ types.PageLink, err error) {
	g, sp, err := c.fetch(pid)
	if err != nil {
		return types.NoPage, err
	}
	defer g.ReleaseInto(&err)

	if sp.GetPrevPage() != expectPrev {
		return types.NoPage, pkgerrors.Wrapf(errors.ErrCorruptPage, "page %d: prev link %v, expected %v", pid, sp.GetPrevPage(), expectPrev)
	}
	return sp.GetNextPage(), nil
}

func (c *Chain) fetch(pid types.PageID) (*buffer.PageGuard, *page.SlottedPage, error) {
	g, err := c.bpm.FetchPageGuard(pid)
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
