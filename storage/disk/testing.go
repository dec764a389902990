// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"os"
	"path/filepath"
)

// DiskManagerTest is a file backed DiskManager living in its own temporary
// directory, which ShutDown removes
type DiskManagerTest struct {
	dir string
	DiskManager
}

// NewDiskManagerTest returns a DiskManager on a fresh volume file. It panics
// when the temporary directory cannot be created.
func NewDiskManagerTest() DiskManager {
	dir, err := os.MkdirTemp("", "odysseus-")
	if err != nil {
		panic(err)
	}
	dm, err := NewDiskManagerImpl(filepath.Join(dir, "volume.db"))
	if err != nil {
		os.RemoveAll(dir)
		panic(err)
	}
	return &DiskManagerTest{dir, dm}
}

// ShutDown closes the volume file and drops its directory
func (d *DiskManagerTest) ShutDown() {
	defer os.RemoveAll(d.dir)
	d.DiskManager.ShutDown()
}
