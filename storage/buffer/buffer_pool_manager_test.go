package buffer

import (
	"crypto/rand"
	"testing"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/storage/disk"
	testingpkg "github.com/noidwasavailable/Odysseus/testing/testing_assert"
	"github.com/noidwasavailable/Odysseus/types"
)

func TestBinaryData(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(poolSize, dm)

	page0, err := bpm.NewPage()
	testingpkg.Ok(t, err)

	// Scenario: The buffer pool is empty. We should be able to create a new page.
	testingpkg.Equals(t, types.PageID(0), page0.GetPageId())

	// Generate random binary data
	randomBinaryData := make([]byte, common.PageSize)
	rand.Read(randomBinaryData)

	// Insert terminal characters both in the middle and at end
	randomBinaryData[common.PageSize/2] = '0'
	randomBinaryData[common.PageSize-1] = '0'

	var fixedRandomBinaryData [common.PageSize]byte
	copy(fixedRandomBinaryData[:], randomBinaryData[:common.PageSize])

	// Scenario: Once we have a page, we should be able to read and write content.
	page0.Copy(0, randomBinaryData)
	testingpkg.Equals(t, fixedRandomBinaryData, *page0.Data())

	// Scenario: We should be able to create new pages until we fill up the buffer pool.
	for i := uint32(1); i < poolSize; i++ {
		p, err := bpm.NewPage()
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, types.PageID(i), p.GetPageId())
	}

	// Scenario: Once the buffer pool is full, we should not be able to create any new pages.
	for i := poolSize; i < poolSize*2; i++ {
		_, err := bpm.NewPage()
		testingpkg.ErrorIs(t, err, ErrBufferPoolFull)
	}

	// Scenario: After unpinning pages {0, 1, 2, 3, 4} and pinning another 4 new pages,
	// there would still be one cache frame left for reading page 0.
	for i := 0; i < 5; i++ {
		testingpkg.Ok(t, bpm.UnpinPage(types.PageID(i), true))
		testingpkg.Ok(t, bpm.FlushPage(types.PageID(i)))
	}
	for i := 0; i < 4; i++ {
		p, err := bpm.NewPage()
		testingpkg.Ok(t, err)
		testingpkg.Ok(t, bpm.UnpinPage(p.GetPageId(), false))
	}

	// Scenario: We should be able to fetch the data we wrote a while ago.
	page0, err = bpm.FetchPage(types.PageID(0))
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, fixedRandomBinaryData, *page0.Data())
	testingpkg.Ok(t, bpm.UnpinPage(types.PageID(0), true))
}

func TestSample(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(poolSize, dm)

	page0, err := bpm.NewPage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(0), page0.GetPageId())

	page0.Copy(0, []byte("Hello"))
	testingpkg.Equals(t, [common.PageSize]byte{'H', 'e', 'l', 'l', 'o'}, *page0.Data())

	for i := uint32(1); i < poolSize; i++ {
		p, err := bpm.NewPage()
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, types.PageID(i), p.GetPageId())
	}

	// Scenario: After unpinning pages {0, 1, 2, 3, 4} and pinning another 4 new pages,
	// there would still be one cache frame left for reading page 0.
	for i := 0; i < 5; i++ {
		testingpkg.Ok(t, bpm.UnpinPage(types.PageID(i), true))
	}
	for i := 0; i < 4; i++ {
		_, err := bpm.NewPage()
		testingpkg.Ok(t, err)
	}

	// Scenario: We should be able to fetch the data we wrote a while ago.
	page0, err = bpm.FetchPage(types.PageID(0))
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, [common.PageSize]byte{'H', 'e', 'l', 'l', 'o'}, *page0.Data())

	// Scenario: If we unpin page 0 and then make a new page, all the buffer pages should
	// now be pinned. Fetching page 0 should fail.
	testingpkg.Ok(t, bpm.UnpinPage(types.PageID(0), true))

	p, err := bpm.NewPage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(14), p.GetPageId())
	_, err = bpm.NewPage()
	testingpkg.ErrorIs(t, err, ErrBufferPoolFull)
	_, err = bpm.FetchPage(types.PageID(0))
	testingpkg.ErrorIs(t, err, ErrBufferPoolFull)
}

func TestUnpinUnknownPage(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(2, dm)

	testingpkg.ErrorIs(t, bpm.UnpinPage(types.PageID(7), false), ErrPageNotFound)
	testingpkg.ErrorIs(t, bpm.FlushPage(types.PageID(7)), ErrPageNotFound)
}

func TestFetchFailureKeepsFrame(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(1, dm)

	// nothing was ever allocated at page 5
	_, err := bpm.FetchPage(types.PageID(5))
	testingpkg.Nok(t, err)

	// the frame went back to the free list
	p, err := bpm.NewPage()
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.PageID(0), p.GetPageId())
}

func TestDeletePage(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(2, dm)

	p, err := bpm.NewPage()
	testingpkg.Ok(t, err)
	pid := p.GetPageId()

	testingpkg.ErrorIs(t, bpm.DeletePage(pid), ErrPagePinned)
	testingpkg.Ok(t, bpm.UnpinPage(pid, true))
	testingpkg.Ok(t, bpm.DeletePage(pid))
	testingpkg.Assert(t, dm.IsDeallocated(pid), "deleted page should be deallocated on disk")

	_, err = bpm.FetchPage(pid)
	testingpkg.ErrorIs(t, err, types.DeallocatedPageErr)
}

func TestPageGuardReleaseOnce(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(4, dm)

	g, err := bpm.NewPageGuard()
	testingpkg.Ok(t, err)
	pid := g.PageID()
	testingpkg.Equals(t, int32(1), bpm.GetPinCount(pid))

	g2, err := bpm.FetchPageGuard(pid)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, int32(2), bpm.GetPinCount(pid))

	copy(g2.Data(), []byte("guarded"))
	g2.MarkDirty()
	testingpkg.Ok(t, g2.Release())
	testingpkg.Ok(t, g2.Release())
	testingpkg.Equals(t, int32(1), bpm.GetPinCount(pid))

	var err2 error
	g.ReleaseInto(&err2)
	testingpkg.Ok(t, err2)
	testingpkg.Equals(t, 0, bpm.PinnedPageCount())

	testingpkg.Ok(t, bpm.FlushAllPages())
	buf := make([]byte, common.PageSize)
	testingpkg.Ok(t, dm.ReadPage(pid, buf))
	testingpkg.Equals(t, []byte("guarded"), buf[:7])
}

func TestPageGuardReleaseIntoCollectsError(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := NewBufferPoolManager(4, dm)

	// a guard over a page the pool never saw fails to unpin
	g := &PageGuard{bpm: bpm, pageID: types.PageID(9)}
	var err error
	g.ReleaseInto(&err)
	testingpkg.ErrorIs(t, err, ErrPageNotFound)
}
