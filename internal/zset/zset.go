// Package zset implements a sorted-set engine: a single record (ZNode)
// reachable through two indices — an avltree.Tree ordered by (score,
// name) for range queries, and a hashtable.Table keyed by name for O(1)
// amortized membership lookup. Uniqueness is enforced by name, not by
// (score, name): reinserting an existing name with a new score
// repositions the tree entry in place instead of creating a second
// member.
package zset

import (
	"github.com/xgzlucario/veloxd/internal/avltree"
	"github.com/xgzlucario/veloxd/internal/base"
	"github.com/xgzlucario/veloxd/internal/hashtable"
)

// ZNode is the record shared by both indices. Score is the primary sort
// key, Name the tie-break; Name is also the hash-index key.
type ZNode struct {
	Name  string
	Score float64

	hnode *hashtable.Node[*ZNode]
	anode *avltree.Node[*ZNode]
}

// less implements the (score, name) lexicographic order predicate.
func less(a, b *ZNode) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Name < b.Name
}

// ZSet composes the hash index and the ordered tree index over ZNodes.
type ZSet struct {
	tree  *avltree.Tree[*ZNode]
	table hashtable.Table[*ZNode]
}

// New returns an empty sorted set.
func New() *ZSet {
	return &ZSet{tree: avltree.New(less)}
}

func nameHash(name string) uint64 {
	return base.HashBytes(base.S2B(&name))
}

// Lookup finds a member by name in O(1) amortized.
func (z *ZSet) Lookup(name string) (*ZNode, bool) {
	n, ok := z.table.Lookup(nameHash(name), func(v *ZNode) bool { return v.Name == name })
	if !ok {
		return nil, false
	}
	return n.Value, true
}

// Insert adds name at score, or repositions an existing member of that
// name whose score changed. Returns true iff a new member was created.
func (z *ZSet) Insert(name string, score float64) bool {
	if existing, ok := z.Lookup(name); ok {
		if existing.Score == score {
			return false
		}
		z.tree.Delete(existing.anode)
		existing.Score = score
		existing.anode = avltree.NewNode(existing)
		z.tree.Insert(existing.anode)
		return false
	}

	znode := &ZNode{Name: name, Score: score}
	znode.hnode = hashtable.NewNode(nameHash(name), znode)
	z.table.Insert(znode.hnode)
	znode.anode = avltree.NewNode(znode)
	z.tree.Insert(znode.anode)
	return true
}

// Delete removes znode from both indices.
func (z *ZSet) Delete(znode *ZNode) {
	z.table.Delete(znode.hnode.Hash(), func(v *ZNode) bool { return v.Name == znode.Name })
	z.tree.Delete(znode.anode)
}

// SeekGE returns the least member not less than (score, name), i.e. a
// lower-bound descent over the ordered index.
func (z *ZSet) SeekGE(score float64, name string) *ZNode {
	key := &ZNode{Score: score, Name: name}
	var found *avltree.Node[*ZNode]
	for n := z.tree.Root; n != nil; {
		if less(n.Value, key) {
			n = n.Right()
		} else {
			found = n
			n = n.Left()
		}
	}
	if found == nil {
		return nil
	}
	return found.Value
}

// OffsetFrom walks k positions after (k>0) or before (k<0) znode in the
// ordered index, or returns nil if that runs off the tree.
func (z *ZSet) OffsetFrom(znode *ZNode, k int64) *ZNode {
	if znode == nil {
		return nil
	}
	n := avltree.Offset(znode.anode, k)
	if n == nil {
		return nil
	}
	return n.Value
}

// Rank returns znode's 1-based in-order position by score then name.
func (z *ZSet) Rank(znode *ZNode) uint64 {
	return avltree.Rank(znode.anode)
}

// Len reports the number of members.
func (z *ZSet) Len() int {
	return z.table.Size()
}

// Clear drops every member from both indices.
func (z *ZSet) Clear() {
	z.tree.Clear()
	z.table.Clear()
}
