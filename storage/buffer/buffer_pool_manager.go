// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"github.com/sasha-s/go-deadlock"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/disk"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

const (
	ErrBufferPoolFull = errors.Error("buffer pool is full")
	ErrPageNotFound   = errors.Error("page not found in buffer pool")
	ErrPagePinned     = errors.Error("pin count greater than 0")
)

//BufferPoolManager represents the buffer pool manager
type BufferPoolManager struct {
	diskManager disk.DiskManager
	pages       []*page.Page
	replacer    *ClockReplacer
	freeList    []FrameID
	pageTable   map[types.PageID]FrameID
	mutex       *deadlock.Mutex
}

// FetchPage fetches the requested page from the buffer pool and pins it.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) (*page.Page, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	// if it is on buffer pool return it
	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.Pin(frameID)
		return pg, nil
	}

	// get the id from free list or from replacer
	frameID, isFromFreeList := b.getFrameID()
	if frameID == nil {
		return nil, ErrBufferPoolFull
	}

	data := make([]byte, common.PageSize)
	if err := b.diskManager.ReadPage(pageID, data); err != nil {
		b.returnFrame(*frameID, isFromFreeList)
		return nil, err
	}

	if err := b.evict(*frameID, isFromFreeList); err != nil {
		b.returnFrame(*frameID, isFromFreeList)
		return nil, err
	}

	var pageData [common.PageSize]byte
	copy(pageData[:], data)
	pg := page.New(pageID, false, &pageData)
	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg

	return pg, nil
}

// UnpinPage unpins the target page from the buffer pool.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		pg.DecPinCount()

		if pg.PinCount() <= 0 {
			b.replacer.Unpin(frameID)
		}

		if pg.IsDirty() || isDirty {
			pg.SetIsDirty(true)
		}

		return nil
	}

	return ErrPageNotFound
}

// FlushPage Flushes the target page to disk.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		data := pg.Data()
		if err := b.diskManager.WritePage(pageID, data[:]); err != nil {
			return err
		}
		pg.SetIsDirty(false)
		return nil
	}

	return ErrPageNotFound
}

// NewPage allocates a new page in the buffer pool with the disk manager help.
// The page comes back pinned and dirty so it reaches disk even if it is
// evicted before anyone writes to it.
func (b *BufferPoolManager) NewPage() (*page.Page, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frameID, isFromFreeList := b.getFrameID()
	if frameID == nil {
		return nil, ErrBufferPoolFull // the buffer is full, it can't find a frame
	}

	if err := b.evict(*frameID, isFromFreeList); err != nil {
		b.returnFrame(*frameID, isFromFreeList)
		return nil, err
	}

	// allocates new page
	pageID := b.diskManager.AllocatePage()
	pg := page.NewEmpty(pageID)
	pg.SetIsDirty(true)

	b.pageTable[pageID] = *frameID
	b.pages[*frameID] = pg

	return pg, nil
}

// DeletePage drops a page from the buffer pool and hands its space back to
// the disk manager.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		pg := b.pages[frameID]
		if pg.PinCount() > 0 {
			return ErrPagePinned
		}
		delete(b.pageTable, pageID)
		b.pages[frameID] = nil
		b.replacer.Pin(frameID)
		b.freeList = append(b.freeList, frameID)
	}

	b.diskManager.DeallocatePage(pageID)
	return nil
}

// FlushAllPages flushes all the pages in the buffer pool to disk.
func (b *BufferPoolManager) FlushAllPages() error {
	b.mutex.Lock()
	ids := make([]types.PageID, 0, len(b.pageTable))
	for pageID := range b.pageTable {
		ids = append(ids, pageID)
	}
	b.mutex.Unlock()

	for _, pageID := range ids {
		if err := b.FlushPage(pageID); err != nil {
			return err
		}
	}
	return nil
}

// GetPinCount returns the pin count of a resident page, 0 when not resident
func (b *BufferPoolManager) GetPinCount(pageID types.PageID) int32 {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if frameID, ok := b.pageTable[pageID]; ok {
		return b.pages[frameID].PinCount()
	}
	return 0
}

// PinnedPageCount counts resident pages with a positive pin count
func (b *BufferPoolManager) PinnedPageCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	cnt := 0
	for _, frameID := range b.pageTable {
		if b.pages[frameID].PinCount() > 0 {
			cnt++
		}
	}
	return cnt
}

func (b *BufferPoolManager) GetDiskManager() disk.DiskManager {
	return b.diskManager
}

// evict writes back and forgets the page currently held by frameID
func (b *BufferPoolManager) evict(frameID FrameID, isFromFreeList bool) error {
	if isFromFreeList {
		return nil
	}
	currentPage := b.pages[frameID]
	if currentPage == nil {
		return nil
	}
	if currentPage.IsDirty() {
		data := currentPage.Data()
		if err := b.diskManager.WritePage(currentPage.GetPageId(), data[:]); err != nil {
			return err
		}
		currentPage.SetIsDirty(false)
	}
	if common.EnableDebug {
		common.ShPrintf(common.DEBUG_INFO_DETAIL, "BufferPoolManager: evict page %d from frame %d\n", currentPage.GetPageId(), frameID)
	}
	delete(b.pageTable, currentPage.GetPageId())
	b.pages[frameID] = nil
	return nil
}

// returnFrame undoes getFrameID after a failed fetch
func (b *BufferPoolManager) returnFrame(frameID FrameID, isFromFreeList bool) {
	if isFromFreeList || b.pages[frameID] == nil {
		b.freeList = append(b.freeList, frameID)
		return
	}
	b.replacer.Unpin(frameID)
}

func (b *BufferPoolManager) getFrameID() (*FrameID, bool) {
	if len(b.freeList) > 0 {
		frameID, newFreeList := b.freeList[0], b.freeList[1:]
		b.freeList = newFreeList

		return &frameID, true
	}

	return b.replacer.Victim(), false
}

//NewBufferPoolManager returns a empty buffer pool manager
func NewBufferPoolManager(poolSize uint32, DiskManager disk.DiskManager) *BufferPoolManager {
	freeList := make([]FrameID, poolSize)
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList[i] = FrameID(i)
		pages[i] = nil
	}

	replacer := NewClockReplacer(poolSize)
	return &BufferPoolManager{DiskManager, pages, replacer, freeList, make(map[types.PageID]FrameID), new(deadlock.Mutex)}
}
