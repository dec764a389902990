package disk

import (
	"sync"

	"github.com/dsnet/golib/memfile"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/types"
)

// VirtualDiskManagerImpl keeps the database file in memory
type VirtualDiskManagerImpl struct {
	db          *memfile.File
	fileName    string
	nextPageID  types.PageID
	numWrites   uint64
	size        int64
	dbFileMutex *sync.Mutex
	free        freePageIDs
	checksums   pageChecksums
}

func NewVirtualDiskManagerImpl(dbFilename string) DiskManager {
	return &VirtualDiskManagerImpl{
		db:          memfile.New(make([]byte, 0)),
		fileName:    dbFilename,
		nextPageID:  types.PageID(0),
		dbFileMutex: new(sync.Mutex),
		free:        newFreePageIDs(),
		checksums:   make(pageChecksums),
	}
}

// ShutDown closes of the database file
func (d *VirtualDiskManagerImpl) ShutDown() {
	// do nothing
}

// Write a page to the database file
func (d *VirtualDiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(pageId) * int64(common.PageSize)
	n, err := d.db.WriteAt(pageData, offset)
	if err != nil {
		return err
	}
	if n != common.PageSize {
		return ErrShortWrite
	}

	if offset >= d.size {
		d.size = offset + int64(len(pageData))
	}
	d.numWrites++
	d.checksums.record(pageId, pageData)
	return nil
}

// Read a page from the database file
func (d *VirtualDiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.free.deallocated[pageID] {
		return types.DeallocatedPageErr
	}
	if pageID < 0 || pageID >= d.nextPageID {
		return ErrPastEOF
	}

	offset := int64(pageID) * int64(common.PageSize)
	if offset+int64(len(pageData)) > d.size {
		// allocated but never written
		for i := range pageData {
			pageData[i] = 0
		}
		return nil
	}

	if _, err := d.db.ReadAt(pageData, offset); err != nil {
		return err
	}
	return d.checksums.verify(pageID, pageData)
}

// AllocatePage allocates a new page
func (d *VirtualDiskManagerImpl) AllocatePage() types.PageID {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if id, ok := d.free.pop(); ok {
		return id
	}
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

// DeallocatePage deallocates page
func (d *VirtualDiskManagerImpl) DeallocatePage(pageID types.PageID) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	d.free.push(pageID)
	delete(d.checksums, pageID)
}

func (d *VirtualDiskManagerImpl) IsDeallocated(pageID types.PageID) bool {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.free.deallocated[pageID]
}

// GetNumWrites returns the number of disk writes
func (d *VirtualDiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the file in disk
func (d *VirtualDiskManagerImpl) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *VirtualDiskManagerImpl) RemoveDBFile() {
	// do nothing
}

// Corrupt flips one byte of a stored page without updating its checksum.
// Only tests use it.
func (d *VirtualDiskManagerImpl) Corrupt(pageID types.PageID, at int) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	b := d.db.Bytes()
	b[int64(pageID)*common.PageSize+int64(at)] ^= 0xFF
}
