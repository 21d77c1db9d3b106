// Package tsindex provides an in-memory multimap from exact timestamps to
// the records carrying them.
//
// The index is an unbalanced binary search tree stored in an arena: nodes
// live in one slice and refer to their children by position. Every node
// owns the bucket of all records whose key equals the node key, kept in
// insertion order; equal keys never create a second node.
//
// There is no rebalancing. Insert and Lookup cost O(h) where h is the tree
// height, and a dataset inserted in monotonic key order degrades h to n.
// Datasets here are small and the index is built once per load, so this is
// accepted. Both operations walk the tree iteratively, so a degenerate tree
// costs time but never stack.
//
// An Index is not safe for concurrent mutation. Once built it may be read
// from any number of goroutines.
package tsindex

import (
	"fmt"
	"iter"
	"slices"

	"auditview/internal/record"
)

// none marks an absent child.
const none int32 = -1

type node struct {
	key    int64
	bucket []record.Record
	left   int32
	right  int32
}

// Index is a timestamp-keyed multimap of records.
type Index struct {
	nodes []node
	root  int32
	size  int
}

// ParseError reports a record whose date could not be turned into a key.
type ParseError struct {
	RecordID int64  // id of the skipped record
	Value    string // the date text as loaded
	Err      error  // underlying error, wraps record.ErrInvalidDate
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("record %d: date %q: %v", e.RecordID, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// New returns an empty index.
func New() *Index {
	return &Index{root: none}
}

// Build indexes records by their parsed Date (Unix milliseconds).
//
// A record whose date does not parse is left out of the index and reported
// as a *ParseError; the rest of the dataset is still indexed. The returned
// error list is nil when every record was indexed.
func Build(records []record.Record) (*Index, []error) {
	idx := New()
	idx.nodes = make([]node, 0, len(records))
	var errs []error
	for _, r := range records {
		key, err := record.ParseTimestamp(r.Date)
		if err != nil {
			errs = append(errs, &ParseError{RecordID: r.ID, Value: r.Date, Err: err})
			continue
		}
		idx.Insert(r, key)
	}
	return idx, errs
}

// Insert adds r under key. If a node with key exists, r is appended to its
// bucket; otherwise a new leaf is created.
func (idx *Index) Insert(r record.Record, key int64) {
	idx.size++
	if idx.root == none {
		idx.root = idx.newNode(r, key)
		return
	}

	cur := idx.root
	for {
		n := &idx.nodes[cur]
		switch {
		case key == n.key:
			n.bucket = append(n.bucket, r)
			return
		case key > n.key:
			if n.right == none {
				// newNode may grow the arena, so n must not be used after it.
				child := idx.newNode(r, key)
				idx.nodes[cur].right = child
				return
			}
			cur = n.right
		default:
			if n.left == none {
				child := idx.newNode(r, key)
				idx.nodes[cur].left = child
				return
			}
			cur = n.left
		}
	}
}

func (idx *Index) newNode(r record.Record, key int64) int32 {
	idx.nodes = append(idx.nodes, node{
		key:    key,
		bucket: []record.Record{r},
		left:   none,
		right:  none,
	})
	return int32(len(idx.nodes) - 1)
}

// Lookup returns the records stored under exactly key, in insertion order.
// The result is a copy; callers may reorder it freely. It is empty when no
// node carries key.
func (idx *Index) Lookup(key int64) []record.Record {
	cur := idx.root
	for cur != none {
		n := &idx.nodes[cur]
		switch {
		case key == n.key:
			return slices.Clone(n.bucket)
		case key > n.key:
			cur = n.right
		default:
			cur = n.left
		}
	}
	return nil
}

// Len returns the number of indexed records.
func (idx *Index) Len() int { return idx.size }

// Nodes returns the number of distinct keys.
func (idx *Index) Nodes() int { return len(idx.nodes) }

// Height returns the number of nodes on the longest root-to-leaf path.
func (idx *Index) Height() int {
	if idx.root == none {
		return 0
	}
	type frame struct {
		n     int32
		depth int
	}
	height := 0
	stack := []frame{{idx.root, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		height = max(height, f.depth)
		n := idx.nodes[f.n]
		if n.left != none {
			stack = append(stack, frame{n.left, f.depth + 1})
		}
		if n.right != none {
			stack = append(stack, frame{n.right, f.depth + 1})
		}
	}
	return height
}

// All yields every key with its bucket in ascending key order. Buckets are
// shared with the index and must not be modified.
func (idx *Index) All() iter.Seq2[int64, []record.Record] {
	return func(yield func(int64, []record.Record) bool) {
		var stack []int32
		cur := idx.root
		for cur != none || len(stack) > 0 {
			for cur != none {
				stack = append(stack, cur)
				cur = idx.nodes[cur].left
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := &idx.nodes[cur]
			if !yield(n.key, n.bucket) {
				return
			}
			cur = n.right
		}
	}
}

// Keys yields every distinct key in ascending order.
func (idx *Index) Keys() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for k := range idx.All() {
			if !yield(k) {
				return
			}
		}
	}
}
