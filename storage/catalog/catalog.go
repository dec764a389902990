package catalog

import (
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/noidwasavailable/Odysseus/common"
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/buffer"
	"github.com/noidwasavailable/Odysseus/storage/page"
	"github.com/noidwasavailable/Odysseus/types"
)

// CatalogPageId indicates the page where the catalog can be found on a
// freshly created database
const CatalogPageId = types.PageID(0)

const ErrFileExists = errors.Error("file name is already registered")

// Object identifies a file through the catalog object holding its entry
type Object struct {
	Volume types.VolumeID
	OID    page.ObjectID
	FileID uint32
	Name   string
}

// Catalog registers files. Entries live as objects on a chain of slotted
// catalog pages; name and id lookups are served from memory.
type Catalog struct {
	bpm        *buffer.BufferPoolManager
	vol        types.VolumeID
	fileIds    map[uint32]*Object
	fileNames  map[string]*Object
	nextFileId uint32
	firstPage  types.PageID
	lastPage   types.PageID
}

// BootstrapCatalog formats the first catalog page on a new database
func BootstrapCatalog(bpm *buffer.BufferPoolManager, vol types.VolumeID) (_ *Catalog, err error) {
	g, err := bpm.NewPageGuard()
	if err != nil {
		return nil, err
	}
	defer g.ReleaseInto(&err)

	if _, err = page.InitSlottedPage(g.Data(), g.PageID(), vol, 0); err != nil {
		return nil, err
	}
	g.MarkDirty()

	return &Catalog{
		bpm:        bpm,
		vol:        vol,
		fileIds:    make(map[uint32]*Object),
		fileNames:  make(map[string]*Object),
		nextFileId: 1,
		firstPage:  g.PageID(),
		lastPage:   g.PageID(),
	}, nil
}

// GetCatalog reads every entry on the catalog chain starting at firstPage
func GetCatalog(bpm *buffer.BufferPoolManager, vol types.VolumeID, firstPage types.PageID) (*Catalog, error) {
	c := &Catalog{
		bpm:        bpm,
		vol:        vol,
		fileIds:    make(map[uint32]*Object),
		fileNames:  make(map[string]*Object),
		nextFileId: 1,
		firstPage:  firstPage,
		lastPage:   firstPage,
	}

	link := types.LinkTo(firstPage)
	for !link.IsNone() {
		pid, _ := link.Get()
		next, err := c.loadPage(pid)
		if err != nil {
			return nil, err
		}
		c.lastPage = pid
		link = next
	}
	return c, nil
}

func (c *Catalog) loadPage(pid types.PageID) (_ types.PageLink, err error) {
	g, err := c.bpm.FetchPageGuard(pid)
	if err != nil {
		return types.NoPage, err
	}
	defer g.ReleaseInto(&err)

	sp, err := page.DecodeSlottedPage(g.Data())
	if err != nil {
		return types.NoPage, err
	}
	for i := uint16(0); i < sp.GetSlotCount(); i++ {
		s := sp.Slot(i)
		if s.IsEmpty() {
			continue
		}
		e, err := NewEntry(sp.ObjectPayload(uint16(s.Offset)))
		if err != nil {
			return types.NoPage, err
		}
		c.register(&Object{
			Volume: c.vol,
			OID:    *page.NewObjectID(c.vol, pid, i, s.Unique),
			FileID: e.FileID(),
			Name:   e.Name(),
		})
	}
	return sp.GetNextPage(), nil
}

func (c *Catalog) register(obj *Object) {
	c.fileIds[obj.FileID] = obj
	c.fileNames[obj.Name] = obj
	if obj.FileID >= c.nextFileId {
		c.nextFileId = obj.FileID + 1
	}
}

// CreateFile registers an empty file and returns its catalog object
func (c *Catalog) CreateFile(name string) (_ *Object, err error) {
	if _, ok := c.fileNames[name]; ok {
		return nil, pkgerrors.Wrap(ErrFileExists, name)
	}
	fileID := c.nextFileId
	payload := formatEntry(fileID, common.DefaultExtentFillFactor, name)

	g, err := c.bpm.FetchPageGuard(c.lastPage)
	if err != nil {
		return nil, err
	}
	defer g.ReleaseInto(&err)

	sp, err := page.DecodeSlottedPage(g.Data())
	if err != nil {
		return nil, err
	}

	if !sp.FitsContiguous(uint32(len(payload))) {
		// catalog page is full, chain a new one
		var ng *buffer.PageGuard
		if ng, err = c.bpm.NewPageGuard(); err != nil {
			return nil, err
		}
		defer ng.ReleaseInto(&err)

		var nsp *page.SlottedPage
		if nsp, err = page.InitSlottedPage(ng.Data(), ng.PageID(), c.vol, 0); err != nil {
			return nil, err
		}
		nsp.SetPrevPage(types.LinkTo(sp.GetPageId()))
		sp.SetNextPage(types.LinkTo(ng.PageID()))
		g.MarkDirty()
		ng.MarkDirty()
		c.lastPage = ng.PageID()
		sp = nsp
	}

	slot, unique := sp.PlaceObject(page.ObjectHeader{}, payload)
	if sp.GetPageId() == g.PageID() {
		g.MarkDirty()
	}

	obj := &Object{
		Volume: c.vol,
		OID:    *page.NewObjectID(c.vol, sp.GetPageId(), slot, unique),
		FileID: fileID,
		Name:   name,
	}
	c.register(obj)

	common.ShPrintf(common.DEBUG_INFO, "Catalog::CreateFile: file %d %q at %v\n", fileID, name, obj.OID)
	return obj, nil
}

func (c *Catalog) GetFileByName(name string) *Object {
	if obj, ok := c.fileNames[name]; ok {
		return obj
	}
	return nil
}

func (c *Catalog) GetFileByID(fileID uint32) *Object {
	if obj, ok := c.fileIds[fileID]; ok {
		return obj
	}
	return nil
}

// Files returns every registered file ordered by file id
func (c *Catalog) Files() []*Object {
	ids := maps.Keys(c.fileIds)
	slices.Sort(ids)
	ret := make([]*Object, 0, len(ids))
	for _, id := range ids {
		ret = append(ret, c.fileIds[id])
	}
	return ret
}

func (c *Catalog) FirstPage() types.PageID {
	return c.firstPage
}

// OpenEntry pins the page holding obj's entry and returns a view over it.
// On success the caller owns the guard and must release it; the entry is
// valid until then.
func OpenEntry(bpm *buffer.BufferPoolManager, obj *Object) (_ *buffer.PageGuard, _ *Entry, err error) {
	if obj == nil {
		return nil, nil, errors.InvalidArgument("OpenEntry", errors.ErrBadCatalogObject)
	}
	g, err := bpm.FetchPageGuard(obj.OID.Page)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			g.ReleaseInto(&err)
		}
	}()

	sp, err := page.DecodeSlottedPage(g.Data())
	if err != nil {
		return nil, nil, err
	}
	if !sp.HasSlot(obj.OID.Slot) {
		return nil, nil, errors.InvalidArgument("OpenEntry", pkgerrors.Wrapf(errors.ErrBadCatalogObject, "no slot %d on page %d", obj.OID.Slot, obj.OID.Page))
	}
	s := sp.Slot(obj.OID.Slot)
	if s.IsEmpty() || s.Unique != obj.OID.Unique {
		return nil, nil, errors.InvalidArgument("OpenEntry", pkgerrors.Wrapf(errors.ErrBadCatalogObject, "stale catalog object %v", obj.OID))
	}
	e, err := NewEntry(sp.ObjectPayload(uint16(s.Offset)))
	if err != nil {
		return nil, nil, errors.InvalidArgument("OpenEntry", err)
	}
	return g, e, nil
}
