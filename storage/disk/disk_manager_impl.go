// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"io"
	"os"
	"sync"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/types"
)

//DiskManagerImpl is the disk implementation of DiskManager
type DiskManagerImpl struct {
	db         *os.File
	fileName   string
	nextPageID types.PageID
	numWrites  uint64
	size       int64
	dbMutex    *sync.Mutex
	free       freePageIDs
	checksums  pageChecksums
}

// NewDiskManagerImpl returns a DiskManager instance
func NewDiskManagerImpl(dbFilename string) (DiskManager, error) {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	fileSize := fileInfo.Size()
	nPages := fileSize / common.PageSize

	return &DiskManagerImpl{
		db:         file,
		fileName:   dbFilename,
		nextPageID: types.PageID(int32(nPages)),
		size:       fileSize,
		dbMutex:    new(sync.Mutex),
		free:       newFreePageIDs(),
		checksums:  make(pageChecksums),
	}, nil
}

// ShutDown closes of the database file
func (d *DiskManagerImpl) ShutDown() {
	d.db.Sync()
	d.db.Close()
}

// Write a page to the database file
func (d *DiskManagerImpl) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()

	offset := int64(pageId) * common.PageSize
	bytesWritten, err := d.db.WriteAt(pageData, offset)
	if err != nil {
		return err
	}

	if bytesWritten != common.PageSize {
		return ErrShortWrite
	}

	if offset >= d.size {
		d.size = offset + int64(bytesWritten)
	}
	d.numWrites++
	d.checksums.record(pageId, pageData)
	return nil
}

// Read a page from the database file
func (d *DiskManagerImpl) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()

	if d.free.deallocated[pageID] {
		return types.DeallocatedPageErr
	}

	offset := int64(pageID) * common.PageSize
	if pageID >= d.nextPageID {
		return ErrPastEOF
	}

	bytesRead, err := d.db.ReadAt(pageData, offset)
	if err != nil && err != io.EOF {
		return err
	}

	// allocated but never written
	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
		return nil
	}
	return d.checksums.verify(pageID, pageData)
}

// AllocatePage hands out a deallocated page first, else extends the file
func (d *DiskManagerImpl) AllocatePage() types.PageID {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()

	if id, ok := d.free.pop(); ok {
		return id
	}
	ret := d.nextPageID
	d.nextPageID++
	return ret
}

// DeallocatePage makes pageID reusable. The free list is kept in memory only.
func (d *DiskManagerImpl) DeallocatePage(pageID types.PageID) {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()
	d.free.push(pageID)
	delete(d.checksums, pageID)
}

func (d *DiskManagerImpl) IsDeallocated(pageID types.PageID) bool {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()
	return d.free.deallocated[pageID]
}

// GetNumWrites returns the number of disk writes
func (d *DiskManagerImpl) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the file in disk
func (d *DiskManagerImpl) Size() int64 {
	d.dbMutex.Lock()
	defer d.dbMutex.Unlock()
	return d.size
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *DiskManagerImpl) RemoveDBFile() {
	os.Remove(d.fileName)
}
