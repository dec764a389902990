// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"fmt"
	"strings"
)

// node is one frame on the clock ring. ref is the reference bit.
type node struct {
	frame FrameID
	ref   bool
	next  *node
	prev  *node
}

// circularList is a doubly linked ring of frames with an index by frame id
type circularList struct {
	head     *node
	size     uint32
	capacity uint32
	index    map[FrameID]*node
}

func (c *circularList) hasKey(frame FrameID) bool {
	_, ok := c.index[frame]
	return ok
}

func (c *circularList) find(frame FrameID) *node {
	return c.index[frame]
}

// insert adds frame just behind head, or refreshes its reference bit when
// it is already on the ring
func (c *circularList) insert(frame FrameID, ref bool) {
	if n, ok := c.index[frame]; ok {
		n.ref = ref
		return
	}
	if c.size == c.capacity {
		panic("circularList::insert capacity is full")
	}

	n := &node{frame: frame, ref: ref}
	if c.head == nil {
		n.next = n
		n.prev = n
		c.head = n
	} else {
		tail := c.head.prev
		n.prev = tail
		n.next = c.head
		tail.next = n
		c.head.prev = n
	}
	c.size++
	c.index[frame] = n
}

func (c *circularList) remove(frame FrameID) {
	n, ok := c.index[frame]
	if !ok {
		return
	}
	delete(c.index, frame)
	c.size--

	if c.size == 0 {
		c.head = nil
		return
	}
	if n == c.head {
		c.head = n.next
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
}

func (c *circularList) isFull() bool {
	return c.size == c.capacity
}

func (c *circularList) String() string {
	if c.size == 0 {
		return "circularList is empty."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "circularList size:%d index len:%d |", c.size, len(c.index))
	ptr := c.head
	for i := uint32(0); i < c.size; i++ {
		fmt.Fprintf(&sb, "-%v,%v,%v,%v-", ptr.frame, ptr.ref, ptr.prev.frame, ptr.next.frame)
		ptr = ptr.next
	}
	return sb.String()
}

func newCircularList(capacity uint32) *circularList {
	return &circularList{capacity: capacity, index: make(map[FrameID]*node)}
}
