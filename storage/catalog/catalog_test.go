package catalog

import (
	"fmt"
	"testing"

	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/disk"
	"github.com/noidwasavailable/Odysseus/storage/page"
	testingpkg "github.com/noidwasavailable/Odysseus/testing/testing_assert"
	"github.com/noidwasavailable/Odysseus/types"
)

func TestCreateAndReloadCatalog(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := buffer.NewBufferPoolManager(8, dm)

	c, err := BootstrapCatalog(bpm, types.VolumeID(1))
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, CatalogPageId, c.FirstPage())

	// enough files to spill onto a second catalog page
	for i := 0; i < 120; i++ {
		_, err := c.CreateFile(fmt.Sprintf("file-%03d", i))
		testingpkg.Ok(t, err)
	}
	_, err = c.CreateFile("file-000")
	testingpkg.ErrorIs(t, err, ErrFileExists)
	testingpkg.Assert(t, c.lastPage != c.firstPage, "catalog should span several pages")
	testingpkg.Equals(t, 0, bpm.PinnedPageCount())

	testingpkg.Ok(t, bpm.FlushAllPages())
	bpm2 := buffer.NewBufferPoolManager(8, dm)
	c2, err := GetCatalog(bpm2, types.VolumeID(1), c.FirstPage())
	testingpkg.Ok(t, err)

	files := c2.Files()
	testingpkg.Equals(t, 120, len(files))
	testingpkg.Equals(t, uint32(1), files[0].FileID)
	testingpkg.Equals(t, "file-000", files[0].Name)
	testingpkg.Equals(t, c.GetFileByName("file-077").OID, c2.GetFileByID(78).OID)

	obj, err := c2.CreateFile("late")
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, uint32(121), obj.FileID)
}

func TestOpenEntry(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := buffer.NewBufferPoolManager(8, dm)

	c, err := BootstrapCatalog(bpm, types.VolumeID(0))
	testingpkg.Ok(t, err)
	obj, err := c.CreateFile("objects")
	testingpkg.Ok(t, err)

	g, e, err := OpenEntry(bpm, obj)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, obj.FileID, e.FileID())
	testingpkg.Equals(t, "objects", e.Name())
	testingpkg.Equals(t, uint16(100), e.Eff())
	testingpkg.Assert(t, e.FirstPage().IsNone(), "new file has no pages")
	for b := 0; b < 5; b++ {
		testingpkg.Assert(t, e.AvailSpaceList(b).IsNone(), "new file has empty buckets")
	}

	// writes land in the pinned catalog page
	e.SetLastPage(types.LinkTo(12))
	e.SetAvailSpaceList(3, types.LinkTo(12))
	g.MarkDirty()
	testingpkg.Ok(t, g.Release())

	g, e, err = OpenEntry(bpm, obj)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, types.LinkTo(12), e.LastPage())
	testingpkg.Equals(t, types.LinkTo(12), e.AvailSpaceList(3))
	testingpkg.Ok(t, g.Release())
	testingpkg.Equals(t, 0, bpm.PinnedPageCount())
}

func TestOpenEntryRejectsStaleObject(t *testing.T) {
	dm := disk.NewVirtualDiskManagerImpl("test.db")
	defer dm.ShutDown()
	bpm := buffer.NewBufferPoolManager(8, dm)

	c, err := BootstrapCatalog(bpm, types.VolumeID(0))
	testingpkg.Ok(t, err)
	obj, err := c.CreateFile("objects")
	testingpkg.Ok(t, err)

	stale := *obj
	stale.OID.Unique++
	_, _, err = OpenEntry(bpm, &stale)
	testingpkg.ErrorIs(t, err, errors.ErrBadCatalogObject)
	testingpkg.Assert(t, errors.IsInvalidArgument(err), "stale object is an argument error")

	missing := *obj
	missing.OID = *page.NewObjectID(0, obj.OID.Page, 40, 0)
	_, _, err = OpenEntry(bpm, &missing)
	testingpkg.ErrorIs(t, err, errors.ErrBadCatalogObject)

	_, _, err = OpenEntry(bpm, nil)
	testingpkg.ErrorIs(t, err, errors.ErrBadCatalogObject)

	// the pin taken before the checks failed was given back
	testingpkg.Equals(t, 0, bpm.PinnedPageCount())
}
