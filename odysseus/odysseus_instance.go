package odysseus

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/conf"
	"github.com/noidwasavailable/Odysseus/storage/access"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/dealloc"
	"github.com/noidwasavailable/Odysseus/storage/disk"
	"github.com/noidwasavailable/Odysseus/types"
)

type OdysseusInstance struct {
	disk_manager   disk.DiskManager
	bpm            *buffer.BufferPoolManager
	catalog        *catalog.Catalog
	object_manager *access.ObjectManager
	cursor         *access.Cursor
	dealloc_pool   *dealloc.Pool
}

func NewOdysseusInstanceForTesting() (*OdysseusInstance, error) {
	cfg := conf.Default()
	cfg.Storage.VirtualDisk = true
	cfg.Storage.BufferPoolSize = common.BufferPoolMaxFrameNumForTest
	return NewOdysseusInstance(cfg)
}

// NewOdysseusInstance opens the database described by cfg. A database file
// with pages in it is reopened from its catalog, anything else is
// bootstrapped.
func NewOdysseusInstance(cfg *conf.Config) (*OdysseusInstance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Apply()

	var disk_manager disk.DiskManager
	if cfg.Storage.VirtualDisk {
		disk_manager = disk.NewVirtualDiskManagerImpl(cfg.Storage.DBFile)
	} else {
		var err error
		if disk_manager, err = disk.NewDiskManagerImpl(cfg.Storage.DBFile); err != nil {
			return nil, pkgerrors.Wrapf(err, "open %s", cfg.Storage.DBFile)
		}
	}

	bpm := buffer.NewBufferPoolManager(uint32(cfg.Storage.BufferPoolSize), disk_manager)
	vol := types.VolumeID(cfg.Storage.Volume)

	var cat *catalog.Catalog
	var err error
	if disk_manager.Size() > 0 {
		cat, err = catalog.GetCatalog(bpm, vol, catalog.CatalogPageId)
	} else {
		cat, err = catalog.BootstrapCatalog(bpm, vol)
	}
	if err != nil {
		disk_manager.ShutDown()
		return nil, pkgerrors.Wrap(err, "load catalog")
	}

	common.ShPrintf(common.INFO, "Odysseus: %s opened with %d files, %d buffer frames\n", cfg.Storage.DBFile, len(cat.Files()), cfg.Storage.BufferPoolSize)

	return &OdysseusInstance{
		disk_manager:   disk_manager,
		bpm:            bpm,
		catalog:        cat,
		object_manager: access.NewObjectManager(bpm),
		cursor:         access.NewCursor(bpm),
		dealloc_pool:   dealloc.NewPool(0),
	}, nil
}

func (oi *OdysseusInstance) GetDiskManager() disk.DiskManager {
	return oi.disk_manager
}

func (oi *OdysseusInstance) GetBufferPoolManager() *buffer.BufferPoolManager {
	return oi.bpm
}

func (oi *OdysseusInstance) GetCatalog() *catalog.Catalog {
	return oi.catalog
}

func (oi *OdysseusInstance) GetObjectManager() *access.ObjectManager {
	return oi.object_manager
}

func (oi *OdysseusInstance) GetCursor() *access.Cursor {
	return oi.cursor
}

func (oi *OdysseusInstance) GetDeallocPool() *dealloc.Pool {
	return oi.dealloc_pool
}

// CommitDeallocations gives back the space of every page queued on list.
// This is the transaction boundary the object manager defers to.
func (oi *OdysseusInstance) CommitDeallocations(list *dealloc.List) error {
	return list.Drain(oi.dealloc_pool, func(e *dealloc.Elem) error {
		switch e.Kind {
		case dealloc.PAGE:
			common.ShPrintf(common.DEBUG_INFO, "Odysseus: deallocate page %d\n", e.PageID)
			return oi.bpm.DeletePage(e.PageID)
		default:
			// segments are never queued by the object manager
			return pkgerrors.Errorf("cannot deallocate %v", e)
		}
	})
}

// Shutdown flushes dirty pages and closes the disk manager
func (oi *OdysseusInstance) Shutdown(IsRemoveFiles bool) error {
	err := oi.bpm.FlushAllPages()
	oi.disk_manager.ShutDown()
	if IsRemoveFiles {
		oi.disk_manager.RemoveDBFile()
	}
	return err
}
