package types

// PageLink is a link to a neighbor page which may be absent.
// The zero value is NoPage.
type PageLink struct {
	id    PageID
	valid bool
}

// NoPage is the absent link
var NoPage = PageLink{}

// LinkTo returns a link to id. An invalid id yields NoPage.
func LinkTo(id PageID) PageLink {
	if !id.IsValid() {
		return NoPage
	}
	return PageLink{id, true}
}

// Get returns the linked page and whether the link is present
func (l PageLink) Get() (PageID, bool) {
	return l.id, l.valid
}

func (l PageLink) IsNone() bool {
	return !l.valid
}

// Is reports whether the link points at id
func (l PageLink) Is(id PageID) bool {
	return l.valid && l.id == id
}

// Encode returns the on-disk representation (-1 for NoPage)
func (l PageLink) Encode() PageID {
	if !l.valid {
		return InvalidPageID
	}
	return l.id
}

// DecodePageLink reads a link from its on-disk representation
func DecodePageLink(raw PageID) PageLink {
	return LinkTo(raw)
}

func (l PageLink) String() string {
	if !l.valid {
		return "none"
	}
	return l.id.String()
}
