// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noidwasavailable/Odysseus/errors"
)

// PageID is the type of the page identifier (page number within a volume)
type PageID int32

// VolumeID identifies the volume a page belongs to
type VolumeID uint16

const DeallocatedPageErr = errors.Error("dellocated Page ID is passed.")

// InvalidPageID is the on-disk encoding of "no page"
const InvalidPageID = PageID(-1)

// IsValid checks if id is valid
func (id PageID) IsValid() bool {
	return id != InvalidPageID && id >= 0
}

// Serialize casts it to []byte
func (id PageID) Serialize() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, id)
	return buf.Bytes()
}

func (id PageID) String() string {
	if !id.IsValid() {
		return "none"
	}
	return fmt.Sprintf("%d", int32(id))
}

// NewPageIDFromBytes creates a page id from []byte
func NewPageIDFromBytes(data []byte) (ret PageID) {
	binary.Read(bytes.NewBuffer(data), binary.LittleEndian, &ret)
	return ret
}
