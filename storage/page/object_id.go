package page

import (
	"fmt"

	"github.com/noidwasavailable/Odysseus/types"
)

// ObjectID is the external handle of an object. Unique tells apart objects
// which occupied the same slot at different times.
type ObjectID struct {
	Volume types.VolumeID
	Page   types.PageID
	Slot   uint16
	Unique uint32
}

func NewObjectID(vol types.VolumeID, pageID types.PageID, slot uint16, unique uint32) *ObjectID {
	return &ObjectID{vol, pageID, slot, unique}
}

// GetPageId gets the page id
func (oid *ObjectID) GetPageId() types.PageID {
	return oid.Page
}

// GetSlotNum gets the slot number
func (oid *ObjectID) GetSlotNum() uint16 {
	return oid.Slot
}

func (oid ObjectID) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", oid.Volume, oid.Page, oid.Slot, oid.Unique)
}
