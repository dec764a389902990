// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

var EnableDebug bool = false

const (
	// invalid page id
	InvalidPageID = -1
	// size of a data page in byte
	PageSize = 4096
	// objects are stored at lengths rounded up to this unit
	AlignmentUnit = 4
	// number of free space buckets (10%, 20%, ..., 50% of the data region)
	NumFreeSpaceBuckets = 5
	// extent fill factor stored in new catalog entries
	DefaultExtentFillFactor = 100
	// default number of frames in the buffer pool
	DefaultBufferPoolSize = 64
	BufferPoolMaxFrameNumForTest = 32
)

// AlignedLength rounds length up to the alignment unit
func AlignedLength(length uint32) uint32 {
	return (length + AlignmentUnit - 1) &^ (AlignmentUnit - 1)
}
