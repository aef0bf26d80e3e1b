/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package vfs

import "sort"

// Node is a single VFS tree entry: a file or a directory. Directories own
// their children; a Node never owns its parent, only references it for
// upward traversal.
type Node struct {
	name   string
	relPath string
	kind   NodeKind
	parent *Node

	children *childSet // nil for files

	hasOrder bool
	order    uint64
	insSeq   uint64

	lockCount int

	// Meta carries the format-specific file entry (IMG or ZIP meta-data).
	// The VFS itself never interprets it.
	Meta interface{}
}

func (n *Node) Name() string    { return n.name }
func (n *Node) IsDir() bool     { return n.kind == KindDir }
func (n *Node) Kind() NodeKind  { return n.kind }
func (n *Node) Parent() *Node   { return n.parent }
func (n *Node) Locked() bool    { return n.lockCount > 0 }
func (n *Node) LockCount() int  { return n.lockCount }
func (n *Node) HasOrder() bool  { return n.hasOrder }
func (n *Node) Order() uint64   { return n.order }

// RelPath returns the cached absolute-from-root path, rebuilding it if a
// prior rename invalidated the cache.
func (n *Node) RelPath() string {
	if n.relPath != "" || n.parent == nil {
		return n.relPath
	}
	n.relPath = joinPath(n.parent.RelPath(), n.name)
	return n.relPath
}

func (n *Node) invalidateRelPath() {
	n.relPath = ""
	if n.kind == KindDir && n.children != nil {
		for _, c := range n.children.all() {
			c.invalidateRelPath()
		}
	}
}

// SetOrder assigns an explicit serialization-order key.
func (n *Node) SetOrder(order uint64) {
	n.hasOrder = true
	n.order = order
}

// ClearOrder drops the serialization-order key, falling the node back to
// unordered (sorts after every ordered node).
func (n *Node) ClearOrder() {
	n.hasOrder = false
	n.order = 0
}

func (n *Node) Lock() {
	n.lockCount++
}

func (n *Node) Unlock() {
	if n.lockCount > 0 {
		n.lockCount--
	}
}

func joinPath(parent, name string) string {
	if parent == "" || parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// childKey is the sort key a childSet orders by: name first, then kind, so
// a file and a directory of the same name sit adjacent but distinguishable.
type childKey struct {
	name string
	kind NodeKind
}

// childSet indexes a directory's children both by (name, kind) and by
// serialization order. Both indices are rebuilt together so they never
// diverge; mutations always go through insert/remove.
type childSet struct {
	byName  []*Node // sorted by (fold(name), kind)
	byOrder []*Node // sorted by serialization order, stable
	nextSeq uint64
	fold    func(string) string // identity if case-sensitive
}

func newChildSet(fold func(string) string) *childSet {
	return &childSet{fold: fold}
}

func (c *childSet) all() []*Node {
	out := make([]*Node, len(c.byName))
	copy(out, c.byName)
	return out
}

func (c *childSet) nameIndex(key childKey) int {
	fk := c.fold(key.name)
	return sort.Search(len(c.byName), func(i int) bool {
		n := c.byName[i]
		fn := c.fold(n.name)
		if fn != fk {
			return fn >= fk
		}
		return n.kind >= key.kind
	})
}

func (c *childSet) find(name string, kind NodeKind) *Node {
	key := childKey{name: name, kind: kind}
	i := c.nameIndex(key)
	if i < len(c.byName) && c.fold(c.byName[i].name) == c.fold(name) && c.byName[i].kind == kind {
		return c.byName[i]
	}
	return nil
}

// findAny returns whichever child (file or directory) matches name,
// preferring a file match first; used by AmbivalentFile lookups.
func (c *childSet) findAny(name string) *Node {
	if f := c.find(name, KindFile); f != nil {
		return f
	}
	return c.find(name, KindDir)
}

func (c *childSet) insert(n *Node) {
	n.insSeq = c.nextSeq
	c.nextSeq++

	key := childKey{name: n.name, kind: n.kind}
	i := c.nameIndex(key)
	c.byName = append(c.byName, nil)
	copy(c.byName[i+1:], c.byName[i:])
	c.byName[i] = n

	c.insertOrder(n)
}

func (c *childSet) insertOrder(n *Node) {
	i := sort.Search(len(c.byOrder), func(i int) bool {
		return nodeLess(n, c.byOrder[i])
	})
	c.byOrder = append(c.byOrder, nil)
	copy(c.byOrder[i+1:], c.byOrder[i:])
	c.byOrder[i] = n
}

// nodeLess implements "ordered before unordered, ascending order among
// ordered nodes, stable on ties" using the insertion sequence as the
// stable tie-breaker.
func nodeLess(a, b *Node) bool {
	if a.hasOrder != b.hasOrder {
		return a.hasOrder
	}
	if a.hasOrder && a.order != b.order {
		return a.order < b.order
	}
	return a.insSeq < b.insSeq
}

func (c *childSet) remove(n *Node) {
	key := childKey{name: n.name, kind: n.kind}
	i := c.nameIndex(key)
	for i < len(c.byName) && c.byName[i] != n {
		i++
	}
	if i < len(c.byName) {
		c.byName = append(c.byName[:i], c.byName[i+1:]...)
	}

	for j, v := range c.byOrder {
		if v == n {
			c.byOrder = append(c.byOrder[:j], c.byOrder[j+1:]...)
			break
		}
	}
}

// reindex removes and reinserts n, keeping both indices consistent after a
// name or order mutation. Both indices are rebuilt atomically: no reader
// observes a state where only one index reflects the change.
func (c *childSet) reindex(n *Node, fn func()) {
	c.remove(n)
	fn()
	c.insert(n)
}

func (c *childSet) len() int {
	return len(c.byName)
}
