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

package img

import (
	"context"
	"io"
	"os"

	"github.com/sabouaram/archivefs/blockalloc"
	"github.com/sabouaram/archivefs/errors"
	"github.com/sabouaram/archivefs/ioutils/mapCloser"
	"github.com/sabouaram/archivefs/presence"
	"github.com/sabouaram/archivefs/stream"
	"github.com/sabouaram/archivefs/stream/buffered"
	"github.com/sabouaram/archivefs/translator"
	"github.com/sabouaram/archivefs/vfs"
	"github.com/sabouaram/archivefs/wildcard"
)

// Translator implements translator.ArchiveTranslator and vfs.StreamFactory
// over an IMG v1 (twin-file) or v2 (single-file) archive.
type Translator struct {
	tree     *vfs.Tree
	path     *translator.PathTranslator
	presence presence.Manager
	alloc    blockalloc.Allocator
	closer   mapCloser.Closer

	version Version
	content ContentFile // v2: the .IMG file; v1: the .IMG content file
	registry ContentFile // v1 only: the .DIR file; nil for v2

	contentPath  string
	registryPath string

	codec    Codec
	liveMode bool
}

// Config is the construction-time parameter set for a Translator.
type Config struct {
	Version      Version
	ContentPath  string // v1 and v2: the .IMG path
	RegistryPath string // v1 only: the .DIR path
	Codec        Codec  // nil: entries stored raw
	LiveMode     bool
	Presence     presence.Manager
	PathMode     translator.ResolveMode
	Outbreak     bool
	CaseSensitive bool
}

// New constructs an empty Translator ready for Load or direct population.
func New(cfg Config) *Translator {
	tr := &Translator{
		path:         translator.NewPathTranslator(cfg.PathMode, cfg.Outbreak),
		presence:     cfg.Presence,
		alloc:        blockalloc.New(),
		closer:       mapCloser.New(context.Background()),
		version:      cfg.Version,
		contentPath:  cfg.ContentPath,
		registryPath: cfg.RegistryPath,
		codec:        cfg.Codec,
		liveMode:     cfg.LiveMode,
	}
	tr.tree = vfs.New(vfs.Distinguished, cfg.CaseSensitive, tr)
	tr.tree.SetMetaCopier(tr)
	tr.tree.SetRemoveHook(tr)
	return tr
}

var _ translator.ArchiveTranslator = (*Translator)(nil)

// Load reads the header and directory table, populating the VFS tree. Each
// entry's meta-data is attached in ARCHIVED state with its block placement
// registered in the allocator; overlapping placements are deferred to
// ResolveFixups rather than rejected outright.
func (t *Translator) Load() errors.Error {
	content, err := OpenContentFile(t.contentPath)
	if err != nil {
		return ErrorBadHeader.ErrorParent(err)
	}
	t.content = content

	var records []namedRecord
	switch t.version {
	case V2:
		records, err = t.loadV2Header(content)
	default:
		registry, rerr := OpenContentFile(t.registryPath)
		if rerr != nil {
			return ErrorBadHeader.ErrorParent(rerr)
		}
		t.registry = registry
		records, err = t.loadV1Registry(registry)
	}
	if err != nil {
		return ErrorBadRecord.ErrorParent(err)
	}

	size, serr := content.Size()
	if serr != nil {
		return ErrorBadHeader.ErrorParent(serr)
	}

	for i, r := range records {
		meta := newFileMeta()
		meta.archivedSize = r.blocks * BlockSize
		meta.compressed = t.codec != nil

		h := &blockalloc.Handle{}
		start := r.offset
		length := r.blocks
		if length == 0 {
			length = 1
		}
		if start+length > uint64(ceilBlocks(uint64(size))) || !t.alloc.ObtainSpaceAt(start, length) {
			t.alloc.Fixup(h, length)
		} else if perr := t.alloc.PutBlock(h, start, length); perr != nil {
			t.alloc.Fixup(h, length)
		}
		meta.handle = h

		node, nerr := t.tree.CreateFileNode(r.name, true)
		if nerr != nil {
			continue
		}
		node.Meta = meta
		node.SetOrder(uint64(i))
	}

	return t.alloc.ResolveFixups(1)
}

type namedRecord struct {
	name   string
	offset uint64
	blocks uint64
}

func (t *Translator) loadV2Header(content ContentFile) ([]namedRecord, error) {
	hdr := make([]byte, v2HeaderSize)
	if _, err := content.ReadAt(hdr, 0); err != nil && err != io.EOF {
		return nil, err
	}
	count, err := decodeV2Header(hdr)
	if err != nil {
		return nil, err
	}

	out := make([]namedRecord, 0, count)
	for i := uint32(0); i < count; i++ {
		off := int64(v2HeaderSize) + int64(i)*v2RecordSize
		buf := make([]byte, v2RecordSize)
		if _, err := content.ReadAt(buf, off); err != nil && err != io.EOF {
			return nil, err
		}
		rec, derr := decodeV2Record(buf)
		if derr != nil {
			return nil, derr
		}
		out = append(out, namedRecord{name: rec.Name, offset: uint64(rec.Offset), blocks: uint64(rec.blocks())})
	}
	return out, nil
}

func (t *Translator) loadV1Registry(registry ContentFile) ([]namedRecord, error) {
	size, err := registry.Size()
	if err != nil {
		return nil, err
	}
	count := size / v1RecordSize

	out := make([]namedRecord, 0, count)
	for i := int64(0); i < count; i++ {
		buf := make([]byte, v1RecordSize)
		if _, err := registry.ReadAt(buf, i*v1RecordSize); err != nil && err != io.EOF {
			return nil, err
		}
		rec, derr := decodeV1Record(buf)
		if derr != nil {
			return nil, derr
		}
		out = append(out, namedRecord{name: rec.Name, offset: uint64(rec.Offset), blocks: uint64(rec.Size)})
	}
	return out, nil
}

// OpenStream implements vfs.StreamFactory.
func (t *Translator) OpenStream(n *vfs.Node, mode stream.OpenMode) (stream.Stream, error) {
	meta, _ := n.Meta.(*fileMeta)
	if meta == nil {
		meta = newFileMeta()
		n.Meta = meta
	}

	if mode.AllowWrite && meta.state.State() == translator.Archived {
		if err := t.extract(meta); err != nil {
			return nil, err
		}
	}

	switch meta.state.State() {
	case translator.Archived:
		base := int64(meta.handle.Start) * BlockSize
		return newArchivedStream(t.content, base, int64(meta.archivedSize)), nil
	default:
		sink := meta.state.Sink()
		return buffered.New(sinkUnderlying{s: sink}, 0), nil
	}
}

// extract performs touch_data_extract_stream: decompress (if a codec is
// installed) the entry's archived bytes into a fresh presence sink and
// transition the entry to PRESENT.
func (t *Translator) extract(meta *fileMeta) error {
	base := int64(meta.handle.Start) * BlockSize
	raw := make([]byte, meta.archivedSize)
	if _, err := t.content.ReadAt(raw, base); err != nil && err != io.EOF {
		return err
	}

	var decoded []byte
	if meta.compressed && t.codec != nil {
		out, derr := t.codec.Decompress(nil, raw, 0)
		if derr != nil {
			return derr
		}
		decoded = out
	} else {
		decoded = raw
	}

	sink, serr := t.presence.AllocateTemporaryDataSink(uint64(len(decoded)))
	if serr != nil {
		return serr
	}
	if _, werr := sink.Write(decoded); werr != nil {
		return werr
	}
	if _, serr := sink.Seek(0, io.SeekStart); serr != nil {
		return serr
	}

	meta.state.EnterPresent(sink)
	return nil
}

// sinkUnderlying adapts a presence.Sink (a stream.Stream) to
// buffered.Underlying's positioned-I/O surface.
type sinkUnderlying struct {
	s presence.Sink
}

func (u sinkUnderlying) ReadAt(p []byte, off int64) (int, error) {
	if _, err := u.s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(u.s, p)
}

func (u sinkUnderlying) WriteAt(p []byte, off int64) (int, error) {
	if _, err := u.s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return u.s.Write(p)
}

func (u sinkUnderlying) Truncate(size int64) error {
	if _, err := u.s.Seek(size, io.SeekStart); err != nil {
		return err
	}
	return u.s.SetSeekEnd()
}

func (u sinkUnderlying) Size() (int64, error) { return u.s.GetSize(), nil }

// CopyMeta implements vfs.MetaCopier.
func (t *Translator) CopyMeta(meta interface{}) (interface{}, error) {
	src, _ := meta.(*fileMeta)
	if src == nil {
		return newFileMeta(), nil
	}
	dst := newFileMeta()
	dst.compressed = src.compressed
	return dst, nil
}

// NotifyRemoved implements vfs.RemoveHook.
func (t *Translator) NotifyRemoved(n *vfs.Node) {
	meta, _ := n.Meta.(*fileMeta)
	if meta == nil {
		return
	}
	if meta.handle != nil {
		_ = t.alloc.RemoveBlock(meta.handle)
	}
	if sink := meta.state.EnterArchived(); sink != nil {
		_ = sink.Close()
	}
}

// CreateDir implements translator.ArchiveTranslator.
func (t *Translator) CreateDir(path string, mode stream.OpenMode, createParents bool) bool {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return false
	}
	_, cerr := t.tree.CreateDir(resolved, createParents)
	return cerr == nil
}

func (t *Translator) currentDir() string { return "/" }

// Open implements translator.ArchiveTranslator.
func (t *Translator) Open(path string, mode stream.OpenMode) (stream.Stream, *stream.OpenFailureError) {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return nil, stream.NewOpenFailure(stream.PathOutOfScope, err)
	}
	s, serr := t.tree.OpenStream(resolved, mode)
	if serr != nil {
		return nil, stream.NewOpenFailure(stream.NotFound, serr)
	}
	t.closer.Add(s)
	return s, nil
}

// Close closes every stream this translator has handed out and that the
// caller never closed itself.
func (t *Translator) Close() error {
	return t.closer.Close()
}

// Exists implements translator.ArchiveTranslator.
func (t *Translator) Exists(path string) bool {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return false
	}
	return t.tree.Exists(resolved)
}

// Delete implements translator.ArchiveTranslator.
func (t *Translator) Delete(path string, mode stream.OpenMode) bool {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return false
	}
	return t.tree.Delete(resolved) == nil
}

// Copy implements translator.ArchiveTranslator.
func (t *Translator) Copy(src, dst string) bool {
	rs, err1 := t.path.Canonicalize(src, t.currentDir())
	rd, err2 := t.path.Canonicalize(dst, t.currentDir())
	if err1 != nil || err2 != nil {
		return false
	}
	return t.tree.Copy(rs, rd) == nil
}

// Rename implements translator.ArchiveTranslator.
func (t *Translator) Rename(src, dst string) bool {
	rs, err1 := t.path.Canonicalize(src, t.currentDir())
	rd, err2 := t.path.Canonicalize(dst, t.currentDir())
	if err1 != nil || err2 != nil {
		return false
	}
	return t.tree.Rename(rs, rd) == nil
}

// Size implements translator.ArchiveTranslator.
func (t *Translator) Size(path string) uint64 {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return 0
	}
	sz, serr := t.tree.Size(resolved)
	if serr != nil {
		return 0
	}
	return uint64(sz)
}

// QueryStats implements translator.ArchiveTranslator.
func (t *Translator) QueryStats(path string) (os.FileInfo, bool) {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return nil, false
	}
	fi, ferr := t.tree.QueryStats(resolved)
	return fi, ferr == nil
}

// ScanDirectory implements translator.ArchiveTranslator.
func (t *Translator) ScanDirectory(path string, pattern wildcard.Matcher, recurse bool, dirCB, fileCB func(name string)) bool {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return false
	}
	serr := t.tree.ScanDirectory(resolved, pattern, recurse, false,
		func(n *vfs.Node) {
			if dirCB != nil {
				dirCB(n.Name())
			}
		},
		func(n *vfs.Node) {
			if fileCB != nil {
				fileCB(n.Name())
			}
		},
	)
	return serr == nil
}

// BeginDirectoryListing implements translator.ArchiveTranslator.
func (t *Translator) BeginDirectoryListing(path string, pattern wildcard.Matcher, recurse bool) (translator.DirIter, bool) {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return nil, false
	}
	entries, lerr := t.tree.Listing(resolved, pattern, recurse)
	if lerr != nil {
		return nil, false
	}
	return &dirIter{entries: entries}, true
}

type dirIter struct {
	entries []vfs.DirEntry
	idx     int
}

func (d *dirIter) Next() (name string, isDir bool, ok bool) {
	if d.idx >= len(d.entries) {
		return "", false, false
	}
	e := d.entries[d.idx]
	d.idx++
	if e.Node == nil {
		return e.Name, true, true
	}
	return e.Name, e.Node.IsDir(), true
}

func (d *dirIter) Close() {}

// stagedEntry is one file entry carried through the save procedure.
type stagedEntry struct {
	node *vfs.Node
	meta *fileMeta
	data []byte // pre-read bytes when already PresentCompressed
}

// placedEntry is a stagedEntry after block-allocator placement and final
// encoding have been resolved.
type placedEntry struct {
	stagedEntry
	start uint64
	bytes []byte
}

// Save implements the 7-step save procedure described for IMG archives.
func (t *Translator) Save() bool {
	nodes := t.tree.WalkSerializationOrder()

	// Step 1: non-live mode rebuilds the layout strictly contiguously.
	if !t.liveMode {
		for _, n := range nodes {
			if n.IsDir() {
				continue
			}
			meta, _ := n.Meta.(*fileMeta)
			if meta == nil || meta.handle == nil {
				continue
			}
			_ = t.alloc.RemoveBlock(meta.handle)
		}
	}

	// Step 2: snapshot every ARCHIVED entry into PRESENT_COMPRESSED before
	// the content file is overwritten.
	var items []stagedEntry
	for _, n := range nodes {
		if n.IsDir() {
			continue
		}
		meta, _ := n.Meta.(*fileMeta)
		if meta == nil {
			meta = newFileMeta()
			n.Meta = meta
		}
		meta.name = n.Name()

		switch meta.state.State() {
		case translator.Archived:
			base := int64(meta.handle.Start) * BlockSize
			raw := make([]byte, meta.archivedSize)
			if _, err := t.content.ReadAt(raw, base); err != nil && err != io.EOF {
				return false
			}
			sink, serr := t.presence.AllocateTemporaryDataSink(uint64(len(raw)))
			if serr != nil {
				return false
			}
			if _, werr := sink.Write(raw); werr != nil {
				return false
			}
			meta.state.EnterPresentCompressed(sink)
			items = append(items, stagedEntry{node: n, meta: meta, data: raw})
		default:
			items = append(items, stagedEntry{node: n, meta: meta})
		}
	}

	// Step 3: reserve the header table at address 0.
	headerBlocks := ceilBlocks(uint64(headerTableSize(t.version, len(items))))
	headerHandle := &blockalloc.Handle{}
	if !t.alloc.ObtainSpaceAt(0, headerBlocks) {
		return false
	}
	if err := t.alloc.PutBlock(headerHandle, 0, headerBlocks); err != nil {
		return false
	}

	// Step 4: allocate placement for every entry, compressing PRESENT
	// entries through the installed codec if any.
	out := make([]placedEntry, 0, len(items))
	for _, it := range items {
		var bytesOut []byte
		switch it.meta.state.State() {
		case translator.PresentCompressed:
			bytesOut = it.data
		default:
			sink := it.meta.state.Sink()
			sz := sink.GetSize()
			buf := make([]byte, sz)
			if _, serr := sink.Seek(0, io.SeekStart); serr != nil {
				return false
			}
			if _, rerr := io.ReadFull(sink, buf); rerr != nil && rerr != io.EOF {
				return false
			}
			if t.codec != nil {
				enc, eerr := t.codec.Compress(nil, buf)
				if eerr != nil {
					return false
				}
				bytesOut = enc
				it.meta.compressed = true
			} else {
				bytesOut = buf
				it.meta.compressed = false
			}
		}

		blocks := ceilBlocks(uint64(len(bytesOut)))
		if blocks == 0 {
			blocks = 1
		}
		start, ferr := t.alloc.FindSpace(blocks, 1, headerBlocks)
		if ferr != nil {
			return false
		}
		h := &blockalloc.Handle{}
		if perr := t.alloc.PutBlock(h, start, blocks); perr != nil {
			return false
		}
		it.meta.handle = h
		it.meta.archivedSize = uint64(len(bytesOut))

		out = append(out, placedEntry{stagedEntry: it, start: start, bytes: bytesOut})
	}

	// Step 5: pre-extend the content file to the full span.
	spanBytes := int64(t.alloc.SpanSize()) * BlockSize
	if err := t.content.Truncate(spanBytes); err != nil {
		return false
	}

	// Step 6: write headers and entry bytes.
	if !t.writeHeaders(out) {
		return false
	}
	for _, p := range out {
		if _, err := t.content.WriteAt(p.bytes, int64(p.start)*BlockSize); err != nil {
			return false
		}
	}

	// Step 7: collapse PRESENT_COMPRESSED back to ARCHIVED and release
	// sinks.
	for _, p := range out {
		if p.meta.state.State() == translator.PresentCompressed {
			if sink := p.meta.state.EnterArchived(); sink != nil {
				_ = sink.Close()
			}
		}
	}

	return true
}

func (t *Translator) writeHeaders(items []placedEntry) bool {
	switch t.version {
	case V2:
		hdr := encodeV2Header(uint32(len(items)))
		if _, err := t.content.WriteAt(hdr, 0); err != nil {
			return false
		}
		for i, p := range items {
			rec := v2Record{Offset: uint32(p.start), Name: p.meta.name}
			blocks := ceilBlocks(uint64(len(p.bytes)))
			if blocks <= 0xFFFF {
				rec.Size = uint16(blocks)
			} else {
				rec.ExpandedSize = uint16(blocks)
			}
			buf, err := encodeV2Record(rec)
			if err != nil {
				return false
			}
			off := int64(v2HeaderSize) + int64(i)*v2RecordSize
			if _, err := t.content.WriteAt(buf, off); err != nil {
				return false
			}
		}
	default:
		regBuf := make([]byte, 0, len(items)*v1RecordSize)
		for _, p := range items {
			rec := v1Record{Offset: uint32(p.start), Size: uint32(ceilBlocks(uint64(len(p.bytes)))), Name: p.meta.name}
			buf, err := encodeV1Record(rec)
			if err != nil {
				return false
			}
			regBuf = append(regBuf, buf...)
		}
		if t.registry == nil {
			reg, err := OpenContentFile(t.registryPath)
			if err != nil {
				return false
			}
			t.registry = reg
		}
		if err := t.registry.Truncate(int64(len(regBuf))); err != nil {
			return false
		}
		if _, err := t.registry.WriteAt(regBuf, 0); err != nil {
			return false
		}
	}
	return true
}
