package buffer

import (
	"go.uber.org/multierr"

	"github.com/noidwasavailable/Odysseus/types"
)

// PageGuard holds one pin on a buffer pool page. Release unpins exactly once
// no matter how often it is called, so callers defer it right after a
// successful fetch.
type PageGuard struct {
	bpm      *BufferPoolManager
	pageID   types.PageID
	data     []byte
	dirty    bool
	released bool
}

// FetchPageGuard pins pageID and wraps the pin in a guard
func (b *BufferPoolManager) FetchPageGuard(pageID types.PageID) (*PageGuard, error) {
	pg, err := b.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &PageGuard{bpm: b, pageID: pageID, data: pg.Data()[:]}, nil
}

// NewPageGuard allocates a fresh page and wraps its pin in a guard
func (b *BufferPoolManager) NewPageGuard() (*PageGuard, error) {
	pg, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	return &PageGuard{bpm: b, pageID: pg.GetPageId(), data: pg.Data()[:], dirty: true}, nil
}

func (g *PageGuard) PageID() types.PageID {
	return g.pageID
}

// Data is the pinned page buffer. It must not be kept after Release.
func (g *PageGuard) Data() []byte {
	return g.data
}

func (g *PageGuard) MarkDirty() {
	g.dirty = true
}

func (g *PageGuard) Release() error {
	if g == nil || g.released {
		return nil
	}
	g.released = true
	g.data = nil
	return g.bpm.UnpinPage(g.pageID, g.dirty)
}

// ReleaseInto releases the guard and appends a release failure to *errp.
// Meant for defer with a named error result.
func (g *PageGuard) ReleaseInto(errp *error) {
	multierr.AppendInto(errp, g.Release())
}
