package disk

import (
	"github.com/spaolacci/murmur3"

	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/types"
)

const ErrPastEOF = errors.Error("I/O error past end of file")
const ErrPageChecksum = errors.Error("page checksum mismatch")
const ErrShortWrite = errors.Error("bytes written not equals page size")

// DiskManager is responsible for interacting with disk.
// It is the physical space allocator of the storage engine: pages handed to
// DeallocatePage become reusable by later AllocatePage calls.
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	AllocatePage() types.PageID
	DeallocatePage(types.PageID)
	IsDeallocated(types.PageID) bool
	GetNumWrites() uint64
	ShutDown()
	Size() int64
	RemoveDBFile()
}

// pageChecksums remembers the checksum of every page written in this session
// so torn or foreign writes are detected when the page is read back
type pageChecksums map[types.PageID]uint32

func (c pageChecksums) record(pageID types.PageID, data []byte) {
	c[pageID] = murmur3.Sum32(data)
}

func (c pageChecksums) verify(pageID types.PageID, data []byte) error {
	sum, ok := c[pageID]
	if !ok {
		return nil
	}
	if sum != murmur3.Sum32(data) {
		return ErrPageChecksum
	}
	return nil
}

// freePageIDs is the reuse list shared by both implementations
type freePageIDs struct {
	reusable    []types.PageID
	deallocated map[types.PageID]bool
}

func newFreePageIDs() freePageIDs {
	return freePageIDs{make([]types.PageID, 0), make(map[types.PageID]bool)}
}

func (f *freePageIDs) pop() (types.PageID, bool) {
	if len(f.reusable) == 0 {
		return types.InvalidPageID, false
	}
	id := f.reusable[0]
	f.reusable = f.reusable[1:]
	delete(f.deallocated, id)
	return id, true
}

func (f *freePageIDs) push(id types.PageID) {
	if f.deallocated[id] {
		return
	}
	f.deallocated[id] = true
	f.reusable = append(f.reusable, id)
}
