package dealloc

import (
	"fmt"

	stack "github.com/golang-collections/collections/stack"

	"github.com/noidwasavailable/Odysseus/errors"
	"github.com/noidwasavailable/Odysseus/types"
)

const ErrPoolExhausted = errors.Error("deallocation element pool is exhausted")

type ElemKind int

const (
	PAGE ElemKind = iota
	SEGMENT
)

func (k ElemKind) String() string {
	switch k {
	case PAGE:
		return "PAGE"
	case SEGMENT:
		return "SEGMENT"
	}
	return fmt.Sprintf("ElemKind(%d)", int(k))
}

// Elem records one page or segment whose space is given back when the
// owning transaction finishes
type Elem struct {
	Kind      ElemKind
	PageID    types.PageID
	SegmentID uint32
	next      *Elem
}

func (e *Elem) String() string {
	if e.Kind == PAGE {
		return fmt.Sprintf("{%v %d}", e.Kind, e.PageID)
	}
	return fmt.Sprintf("{%v %d}", e.Kind, e.SegmentID)
}

// Pool hands out list elements and recycles the ones given back with Put.
// A limit of 0 means unbounded.
type Pool struct {
	free  *stack.Stack
	limit int
	live  int
}

func NewPool(limit int) *Pool {
	return &Pool{free: stack.New(), limit: limit}
}

// Get returns a zeroed element
func (p *Pool) Get() (*Elem, error) {
	if p.free.Len() > 0 {
		e := p.free.Pop().(*Elem)
		*e = Elem{}
		p.live++
		return e, nil
	}
	if p.limit > 0 && p.live >= p.limit {
		return nil, ErrPoolExhausted
	}
	p.live++
	return &Elem{}, nil
}

// Put gives e back to the pool. e must not be on a list.
func (p *Pool) Put(e *Elem) {
	if e == nil {
		return
	}
	e.next = nil
	p.live--
	p.free.Push(e)
}

// Live is the number of elements handed out and not yet put back
func (p *Pool) Live() int {
	return p.live
}

// List is the head of a caller owned deallocation list
type List struct {
	head *Elem
	size int
}

func NewList() *List {
	return &List{}
}

// Push puts e at the head of the list. The list owns e from now on.
func (l *List) Push(e *Elem) {
	e.next = l.head
	l.head = e
	l.size++
}

func (l *List) Len() int {
	return l.size
}

// Elems returns the elements from the head, newest first
func (l *List) Elems() []*Elem {
	ret := make([]*Elem, 0, l.size)
	for e := l.head; e != nil; e = e.next {
		ret = append(ret, e)
	}
	return ret
}

// Drain hands every element to fn, newest first, and returns it to pool.
// It stops at the first error; the failed element and the rest stay on
// the list.
func (l *List) Drain(pool *Pool, fn func(*Elem) error) error {
	for l.head != nil {
		e := l.head
		if err := fn(e); err != nil {
			return err
		}
		l.head = e.next
		l.size--
		pool.Put(e)
	}
	return nil
}
