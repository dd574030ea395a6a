package retriever

import (
	"menu_rag/internal/store"
)

// ResultSet is an ordered list of documents without duplicate ids. Every
// method returns a new set and leaves the receiver untouched.
type ResultSet struct {
	docs []store.Document
}

// NewResultSet keeps the first occurrence of each id.
func NewResultSet(docs []store.Document) ResultSet {
	var rs ResultSet
	for _, d := range docs {
		rs = rs.Append(d)
	}
	return rs
}

func (rs ResultSet) Len() int {
	return len(rs.docs)
}

// Index returns the position of id, or -1.
func (rs ResultSet) Index(id string) int {
	for i, d := range rs.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (rs ResultSet) Contains(id string) bool {
	return rs.Index(id) != -1
}

// Docs returns a copy of the ordered documents.
func (rs ResultSet) Docs() []store.Document {
	out := make([]store.Document, len(rs.docs))
	copy(out, rs.docs)
	return out
}

// Prepend puts d first. A document already present is left where it is.
func (rs ResultSet) Prepend(d store.Document) ResultSet {
	if rs.Contains(d.ID) {
		return rs
	}
	out := make([]store.Document, 0, len(rs.docs)+1)
	out = append(out, d)
	out = append(out, rs.docs...)
	return ResultSet{docs: out}
}

// Append puts d last. A document already present is left where it is.
func (rs ResultSet) Append(d store.Document) ResultSet {
	if rs.Contains(d.ID) {
		return rs
	}
	out := make([]store.Document, 0, len(rs.docs)+1)
	out = append(out, rs.docs...)
	out = append(out, d)
	return ResultSet{docs: out}
}

// MoveToFront puts d first, removing any earlier occurrence.
func (rs ResultSet) MoveToFront(d store.Document) ResultSet {
	out := make([]store.Document, 0, len(rs.docs)+1)
	out = append(out, d)
	for _, x := range rs.docs {
		if x.ID != d.ID {
			out = append(out, x)
		}
	}
	return ResultSet{docs: out}
}

// Truncate keeps the first k documents.
func (rs ResultSet) Truncate(k int) ResultSet {
	if k < 0 {
		k = 0
	}
	if len(rs.docs) <= k {
		return rs
	}
	out := make([]store.Document, k)
	copy(out, rs.docs[:k])
	return ResultSet{docs: out}
}

// TruncateKeeping caps the set at k but keeps the documents with the pinned
// ids, best first, in up to k-1 slots. The first slot is never given up and
// the kept documents stay in set order.
func (rs ResultSet) TruncateKeeping(k int, pinned ...string) ResultSet {
	if len(rs.docs) <= k {
		return rs
	}
	if k < 2 {
		return rs.Truncate(k)
	}

	keep := map[string]bool{rs.docs[0].ID: true}
	for _, id := range pinned {
		if len(keep) == k {
			break
		}
		if rs.Contains(id) {
			keep[id] = true
		}
	}

	free := k - len(keep)
	out := make([]store.Document, 0, k)
	for _, d := range rs.docs {
		switch {
		case keep[d.ID]:
			out = append(out, d)
		case free > 0:
			out = append(out, d)
			free--
		}
	}
	return ResultSet{docs: out}
}
