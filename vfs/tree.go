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

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sabouaram/archivefs/errors"
	"github.com/sabouaram/archivefs/stream"
	"github.com/sabouaram/archivefs/wildcard"
)

// StreamFactory is implemented by the owning translator (IMG or ZIP) to
// turn a resolved node into an actual readable/writable stream. The VFS
// itself never allocates bytes.
type StreamFactory interface {
	OpenStream(n *Node, mode stream.OpenMode) (stream.Stream, error)
}

// MetaCopier lets the owning translator clone format-specific meta-data
// when a node is duplicated by Copy. The returned value becomes the new
// node's Meta.
type MetaCopier interface {
	CopyMeta(meta interface{}) (interface{}, error)
}

// RemoveHook is notified after a node is deleted or after a failed copy's
// partially-constructed destination is torn down, so format-specific
// bookkeeping (presence sinks, allocator handles) can be released.
type RemoveHook interface {
	NotifyRemoved(n *Node)
}

// Tree is the in-memory directory/file tree for a single translator
// instance. It is not safe for concurrent use without external
// serialization, matching the single-threaded-cooperative contract.
type Tree struct {
	mu   sync.RWMutex
	root *Node
	cwd  *Node

	mode          PathProcessMode
	caseSensitive bool

	factory StreamFactory
	copier  MetaCopier
	remover RemoveHook
}

// New builds an empty tree rooted at "/".
func New(mode PathProcessMode, caseSensitive bool, factory StreamFactory) *Tree {
	t := &Tree{
		mode:          mode,
		caseSensitive: caseSensitive,
		factory:       factory,
	}
	t.root = &Node{name: "", relPath: "/", kind: KindDir, children: newChildSet(t.fold)}
	t.cwd = t.root
	return t
}

func (t *Tree) SetMetaCopier(c MetaCopier)   { t.copier = c }
func (t *Tree) SetRemoveHook(h RemoveHook)   { t.remover = h }
func (t *Tree) Root() *Node                  { return t.root }

func (t *Tree) fold(s string) string {
	if t.caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func splitComponents(path string) (comps []string, trailingSlash, absolute bool) {
	absolute = strings.HasPrefix(path, "/")
	trailingSlash = len(path) > 0 && strings.HasSuffix(path, "/")
	p := strings.Trim(path, "/")
	if p == "" {
		return nil, trailingSlash, absolute
	}
	for _, c := range strings.Split(p, "/") {
		if c != "" {
			comps = append(comps, c)
		}
	}
	return
}

// walkDir advances from a starting directory through components, treating
// the final component as a directory name. Used for CreateDir/ChangeDirectory.
func (t *Tree) walkDir(start *Node, comps []string, createParents bool) (*Node, errors.Error) {
	cur := start
	for _, c := range comps {
		switch c {
		case ".":
			continue
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}
		child := cur.children.find(c, KindDir)
		if child == nil {
			if !createParents {
				return nil, ErrorNotFound.Error(nil)
			}
			child = &Node{name: c, kind: KindDir, parent: cur, children: newChildSet(t.fold)}
			cur.children.insert(child)
		}
		cur = child
	}
	return cur, nil
}

// resolve walks to the node named by path, honoring the tree's
// path-process-mode for the final (possibly slashless) component.
func (t *Tree) resolve(path string) (*Node, errors.Error) {
	comps, trailingSlash, absolute := splitComponents(path)
	start := t.cwd
	if absolute {
		start = t.root
	}
	if len(comps) == 0 {
		return start, nil
	}

	cur := start
	for i, c := range comps {
		last := i == len(comps)-1
		switch c {
		case ".":
			continue
		case "..":
			if cur.parent != nil {
				cur = cur.parent
			}
			continue
		}

		if !last {
			child := cur.children.find(c, KindDir)
			if child == nil {
				return nil, ErrorNotFound.Error(nil)
			}
			cur = child
			continue
		}

		// final component: disambiguate per path-process-mode.
		wantDir := trailingSlash
		if t.mode == Distinguished {
			if wantDir {
				child := cur.children.find(c, KindDir)
				if child == nil {
					return nil, ErrorNotFound.Error(nil)
				}
				cur = child
			} else {
				child := cur.children.find(c, KindFile)
				if child == nil {
					return nil, ErrorNotFound.Error(nil)
				}
				cur = child
			}
		} else {
			if wantDir {
				child := cur.children.find(c, KindDir)
				if child == nil {
					return nil, ErrorNotFound.Error(nil)
				}
				cur = child
			} else if child := cur.children.findAny(c); child != nil {
				cur = child
			} else {
				return nil, ErrorNotFound.Error(nil)
			}
		}
	}
	return cur, nil
}

// CreateDir creates a directory at path, optionally creating missing
// parent components.
func (t *Tree) CreateDir(path string, createParents bool) (*Node, errors.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	comps, _, absolute := splitComponents(path)
	start := t.cwd
	if absolute {
		start = t.root
	}
	return t.walkDir(start, comps, createParents)
}

// Exists reports whether path resolves to a node.
func (t *Tree) Exists(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.resolve(path)
	return err == nil
}

// Lookup resolves path to its node, for translators that need direct
// access to the meta-data slot.
func (t *Tree) Lookup(path string) (*Node, errors.Error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolve(path)
}

// ChangeDirectory updates the current directory used to resolve relative
// paths.
func (t *Tree) ChangeDirectory(path string) errors.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.resolve(path)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return ErrorNotADirectory.Error(nil)
	}
	t.cwd = n
	return nil
}

// Delete removes the node at path from its parent. Refuses if the node
// (or, for a directory, any descendant) is locked.
func (t *Tree) Delete(path string) errors.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.resolve(path)
	if err != nil {
		return err
	}
	if n == t.root {
		return ErrorNotFound.Error(nil)
	}
	if anyLocked(n) {
		return ErrorLocked.Error(nil)
	}

	n.parent.children.remove(n)
	if t.remover != nil {
		t.remover.NotifyRemoved(n)
	}
	return nil
}

func anyLocked(n *Node) bool {
	if n.Locked() {
		return true
	}
	if n.IsDir() && n.children != nil {
		for _, c := range n.children.all() {
			if anyLocked(c) {
				return true
			}
		}
	}
	return false
}

// Size returns the byte size of the node at path by opening it for read
// through the translator's StreamFactory.
func (t *Tree) Size(path string) (int64, errors.Error) {
	t.mu.RLock()
	n, err := t.resolve(path)
	t.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	if n.IsDir() {
		return 0, ErrorNotAFile.Error(nil)
	}

	s, oerr := t.factory.OpenStream(n, stream.OpenMode{Disposition: stream.OpenExists, AllowRead: true})
	if oerr != nil {
		return 0, ErrorNotFound.ErrorParent(oerr)
	}
	defer s.Close()
	return s.GetSize(), nil
}

// QueryStats returns the os.FileInfo reported by the node's stream.
func (t *Tree) QueryStats(path string) (os.FileInfo, errors.Error) {
	t.mu.RLock()
	n, err := t.resolve(path)
	t.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	s, oerr := t.factory.OpenStream(n, stream.OpenMode{Disposition: stream.OpenExists, AllowRead: true})
	if oerr != nil {
		return nil, ErrorNotFound.ErrorParent(oerr)
	}
	defer s.Close()

	fi, ferr := s.QueryStats()
	if ferr != nil {
		return nil, ErrorNotFound.ErrorParent(ferr)
	}
	return fi, nil
}

// OpenStream resolves path (creating a file node first if the open mode's
// disposition requires it) and delegates stream construction to the
// translator's StreamFactory.
func (t *Tree) OpenStream(path string, mode stream.OpenMode) (stream.Stream, errors.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.resolve(path)
	if err != nil {
		switch mode.Disposition {
		case stream.CreateNoOverwrite, stream.CreateOverwrite, stream.OpenOrCreate:
			n, err = t.createFileNode(path, mode.CreateParentDirs)
			if err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	} else if n.IsDir() {
		return nil, ErrorNotAFile.Error(nil)
	} else if mode.Disposition == stream.CreateNoOverwrite {
		return nil, ErrorAlreadyExists.Error(nil)
	}

	s, oerr := t.factory.OpenStream(n, mode)
	if oerr != nil {
		return nil, ErrorNotFound.ErrorParent(oerr)
	}
	n.Lock()
	return &lockingStream{Stream: s, n: n}, nil
}

// lockingStream decrements the node's lock count on Close, matching the
// "open stream implies locked node" resource rule.
type lockingStream struct {
	stream.Stream
	n *Node
}

func (l *lockingStream) Close() error {
	l.n.Unlock()
	return l.Stream.Close()
}

// CreateFileNode inserts a bare file node at path without provisioning a
// stream, for translator load paths that populate Node.Meta directly from
// a parsed directory record before any byte access happens.
func (t *Tree) CreateFileNode(path string, createParents bool) (*Node, errors.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createFileNode(path, createParents)
}

func (t *Tree) createFileNode(path string, createParents bool) (*Node, errors.Error) {
	comps, _, absolute := splitComponents(path)
	if len(comps) == 0 {
		return nil, ErrorNotFound.Error(nil)
	}

	start := t.cwd
	if absolute {
		start = t.root
	}

	dirComps, leaf := comps[:len(comps)-1], comps[len(comps)-1]
	dir, err := t.walkDir(start, dirComps, createParents)
	if err != nil {
		return nil, err
	}

	if existing := dir.children.find(leaf, KindFile); existing != nil {
		return existing, nil
	}

	n := &Node{name: leaf, kind: KindFile, parent: dir}
	dir.children.insert(n)
	return n, nil
}

// Rename moves the node at src to dst, across directories if needed.
func (t *Tree) Rename(src, dst string) errors.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.resolve(src)
	if err != nil {
		return err
	}
	if n == t.root {
		return ErrorNotFound.Error(nil)
	}
	if n.Locked() {
		return ErrorLocked.Error(nil)
	}

	dstComps, _, absolute := splitComponents(dst)
	if len(dstComps) == 0 {
		return ErrorNotFound.Error(nil)
	}
	start := t.cwd
	if absolute {
		start = t.root
	}
	dirComps, leaf := dstComps[:len(dstComps)-1], dstComps[len(dstComps)-1]

	destParent, derr := t.walkDir(start, dirComps, true)
	if derr != nil {
		return derr
	}

	if n.IsDir() && isDescendant(destParent, n) {
		return ErrorCyclicRename.Error(nil)
	}
	if existing := destParent.children.find(leaf, n.kind); existing != nil {
		return ErrorAlreadyExists.Error(nil)
	}

	oldParent := n.parent
	oldParent.children.remove(n)

	n.name = leaf
	n.parent = destParent
	destParent.children.insert(n)
	n.invalidateRelPath()

	return nil
}

func isDescendant(candidate, ancestor *Node) bool {
	for cur := candidate; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Copy duplicates the node at src to dst: meta-data is cloned via
// MetaCopier, then bytes are streamed through the translator's
// StreamFactory (which is expected to route allocation through the
// presence manager). A partial failure removes the destination and
// notifies RemoveHook.
func (t *Tree) Copy(src, dst string) errors.Error {
	t.mu.Lock()
	srcNode, err := t.resolve(src)
	t.mu.Unlock()
	if err != nil {
		return err
	}
	if srcNode.IsDir() {
		return ErrorNotAFile.Error(nil)
	}

	var meta interface{}
	if t.copier != nil {
		m, cerr := t.copier.CopyMeta(srcNode.Meta)
		if cerr != nil {
			return ErrorCopyFailed.ErrorParent(cerr)
		}
		meta = m
	}

	t.mu.Lock()
	dstNode, derr := t.createFileNode(dst, true)
	if derr != nil {
		t.mu.Unlock()
		return derr
	}
	dstNode.Meta = meta
	t.mu.Unlock()

	in, oerr := t.factory.OpenStream(srcNode, stream.OpenMode{Disposition: stream.OpenExists, AllowRead: true})
	if oerr != nil {
		t.rollbackCopy(dstNode)
		return ErrorCopyFailed.ErrorParent(oerr)
	}
	defer in.Close()

	out, oerr := t.factory.OpenStream(dstNode, stream.OpenMode{Disposition: stream.CreateOverwrite, AllowWrite: true})
	if oerr != nil {
		t.rollbackCopy(dstNode)
		return ErrorCopyFailed.ErrorParent(oerr)
	}

	if _, cerr := io.Copy(out, in); cerr != nil {
		out.Close()
		t.rollbackCopy(dstNode)
		return ErrorCopyFailed.ErrorParent(cerr)
	}
	if cerr := out.Close(); cerr != nil {
		t.rollbackCopy(dstNode)
		return ErrorCopyFailed.ErrorParent(cerr)
	}

	return nil
}

func (t *Tree) rollbackCopy(n *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.parent != nil {
		n.parent.children.remove(n)
	}
	if t.remover != nil {
		t.remover.NotifyRemoved(n)
	}
}

// DirEntry is one reported entry from a directory listing: either a real
// child or a "." / ".." pseudo-entry.
type DirEntry struct {
	Name string
	Node *Node // nil for pseudo-entries
}

// ScanDirectory invokes dirCB for directory children and fileCB for file
// children, matched against an optional wildcard filter, in a stable
// order. "." and ".." are reported first unless includeDots is false.
// When recurse is true and dirCB is nil, directory names are not matched
// against the pattern at all (the scan cannot usefully filter directories
// it never visits); when both recurse and dirCB are set, directory names
// are tested like file names.
func (t *Tree) ScanDirectory(path string, pattern wildcard.Matcher, recurse bool, includeDots bool, dirCB func(*Node), fileCB func(*Node)) errors.Error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.resolve(path)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return ErrorNotADirectory.Error(nil)
	}
	if pattern == nil {
		pattern = wildcard.MatchAll
	}

	if includeDots && dirCB != nil {
		dirCB(n) // "."
		if n.parent != nil {
			dirCB(n.parent) // ".."
		} else {
			dirCB(n) // root's ".." is itself
		}
	}

	t.scanChildren(n, pattern, recurse, dirCB, fileCB)
	return nil
}

func (t *Tree) scanChildren(n *Node, pattern wildcard.Matcher, recurse bool, dirCB func(*Node), fileCB func(*Node)) {
	testDirNames := !recurse || dirCB != nil

	for _, c := range n.children.all() {
		if c.IsDir() {
			matched := !testDirNames || pattern.Match(c.Name())
			if matched && dirCB != nil {
				dirCB(c)
			}
			if recurse {
				t.scanChildren(c, pattern, recurse, dirCB, fileCB)
			}
		} else {
			if pattern.Match(c.Name()) && fileCB != nil {
				fileCB(c)
			}
		}
	}
}

// Listing is a materialized, stably-ordered snapshot of ScanDirectory,
// for callers that want a slice rather than callbacks.
func (t *Tree) Listing(path string, pattern wildcard.Matcher, recurse bool) ([]DirEntry, errors.Error) {
	var out []DirEntry
	err := t.ScanDirectory(path, pattern, recurse, true,
		func(n *Node) { out = append(out, DirEntry{Name: n.Name(), Node: n}) },
		func(n *Node) { out = append(out, DirEntry{Name: n.Name(), Node: n}) },
	)
	return out, err
}

// WalkSerializationOrder returns every node in the tree ordered per §3.1:
// ordered nodes ascending by key, then unordered nodes, ties broken
// stably by insertion sequence.
func (t *Tree) WalkSerializationOrder() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var all []*Node
	var collect func(*Node)
	collect = func(n *Node) {
		if n != t.root {
			all = append(all, n)
		}
		if n.IsDir() && n.children != nil {
			for _, c := range n.children.all() {
				collect(c)
			}
		}
	}
	collect(t.root)

	sort.SliceStable(all, func(i, j int) bool {
		return nodeLess(all[i], all[j])
	})
	return all
}
