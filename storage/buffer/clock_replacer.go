// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

//FrameID is the type for frame id
type FrameID uint32

// ClockReplacer picks eviction victims among unpinned frames with the
// second chance (clock) policy
type ClockReplacer struct {
	ring *circularList
	hand *node
}

// Victim removes and returns the next frame to evict, or nil when every
// frame is pinned
func (c *ClockReplacer) Victim() *FrameID {
	if c.ring.size == 0 {
		return nil
	}
	if c.hand == nil {
		c.hand = c.ring.head
	}

	for {
		cur := c.hand
		if cur.ref {
			cur.ref = false
			c.hand = cur.next
			continue
		}

		victim := cur.frame
		if c.ring.size == 1 {
			c.hand = nil
		} else {
			c.hand = cur.next
		}
		c.ring.remove(victim)
		return &victim
	}
}

//Unpin unpins a frame, indicating that it can now be victimized
func (c *ClockReplacer) Unpin(id FrameID) {
	if c.ring.hasKey(id) {
		return
	}
	c.ring.insert(id, true)
	if c.hand == nil {
		c.hand = c.ring.head
	}
}

//Pin pins a frame, indicating that it should not be victimized until it is unpinned
func (c *ClockReplacer) Pin(id FrameID) {
	n := c.ring.find(id)
	if n == nil {
		return
	}
	if c.hand == n {
		if c.ring.size == 1 {
			c.hand = nil
		} else {
			c.hand = n.next
		}
	}
	c.ring.remove(id)
}

//Size returns the size of the clock
func (c *ClockReplacer) Size() uint32 {
	return c.ring.size
}

//NewClockReplacer instantiates a new clock replacer
func NewClockReplacer(poolSize uint32) *ClockReplacer {
	return &ClockReplacer{ring: newCircularList(poolSize)}
}
