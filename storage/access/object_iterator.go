package access

import (
	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/storage/catalog"
	"github.com/noidwasavailable/Odysseus/storage/page"
)

// ObjectIterator is the access method for the objects of a file
//
// It iterates through a file when Next is called, forward or backward.
// The object that it is being pointed to can be accessed with the method Current
type ObjectIterator struct {
	cursor   *Cursor
	catObj   *catalog.Object
	backward bool
	oid      *page.ObjectID
	hdr      page.ObjectHeader
	err      error
}

// NewObjectIterator creates an iterator pointing to the first object in scan
// direction
func NewObjectIterator(cursor *Cursor, catObj *catalog.Object, backward bool) *ObjectIterator {
	it := &ObjectIterator{cursor: cursor, catObj: catObj, backward: backward}
	it.advance(nil)
	return it
}

// Current points to the current object
func (it *ObjectIterator) Current() *page.ObjectID {
	return it.oid
}

// Header is the header of the current object
func (it *ObjectIterator) Header() page.ObjectHeader {
	return it.hdr
}

// End checks if the iterator is at the end, or stopped on an error
func (it *ObjectIterator) End() bool {
	return it.Current() == nil
}

// Err returns the error which stopped the iteration. Reaching the end of
// the file is not an error.
func (it *ObjectIterator) Err() error {
	return it.err
}

// Next advances the iterator
func (it *ObjectIterator) Next() *page.ObjectID {
	if it.End() {
		return nil
	}
	it.advance(it.oid)
	return it.oid
}

func (it *ObjectIterator) advance(from *page.ObjectID) {
	var err error
	if it.backward {
		it.oid, it.hdr, err = it.cursor.PrevObject(it.catObj, from)
	} else {
		it.oid, it.hdr, err = it.cursor.NextObject(it.catObj, from)
	}
	if err != nil {
		it.oid = nil
		if !errors.IsEndOfScan(err) {
			it.err = err
		}
	}
}
