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

package zip

import (
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"os"

	"github.com/klauspost/compress/flate"

	"github.com/sabouaram/archivefs/errors"
	"github.com/sabouaram/archivefs/ioutils/bufferReadCloser"
	"github.com/sabouaram/archivefs/ioutils/mapCloser"
	"github.com/sabouaram/archivefs/ioutils/multi"
	"github.com/sabouaram/archivefs/presence"
	"github.com/sabouaram/archivefs/stream"
	"github.com/sabouaram/archivefs/stream/buffered"
	"github.com/sabouaram/archivefs/translator"
	"github.com/sabouaram/archivefs/vfs"
	"github.com/sabouaram/archivefs/wildcard"
)

// Translator implements translator.ArchiveTranslator and vfs.StreamFactory
// over a single ZIP archive file.
type Translator struct {
	tree     *vfs.Tree
	path     *translator.PathTranslator
	presence presence.Manager
	closer   mapCloser.Closer

	file        *fileStream
	archivePath string

	defaultMethod uint16
	comment       []byte
}

// Config is the construction-time parameter set for a Translator.
type Config struct {
	Path          string
	Presence      presence.Manager
	PathMode      translator.ResolveMode
	Outbreak      bool
	CaseSensitive bool
	// DefaultMethod selects the compression method (MethodStore or
	// MethodDeflate) used for entries that reach PRESENT state and were
	// never loaded from an archive (brand new entries).
	DefaultMethod uint16
}

// New constructs an empty Translator ready for Load or direct population.
func New(cfg Config) *Translator {
	tr := &Translator{
		path:          translator.NewPathTranslator(cfg.PathMode, cfg.Outbreak),
		presence:      cfg.Presence,
		closer:        mapCloser.New(context.Background()),
		archivePath:   cfg.Path,
		defaultMethod: cfg.DefaultMethod,
	}
	tr.tree = vfs.New(vfs.Distinguished, cfg.CaseSensitive, tr)
	tr.tree.SetMetaCopier(tr)
	tr.tree.SetRemoveHook(tr)
	return tr
}

var _ translator.ArchiveTranslator = (*Translator)(nil)

// Load reverse-scans for the EOCD, reads every central directory header in
// order, and for each entry validates its local header and records the
// payload's data_offset without decoding any bytes.
func (t *Translator) Load() errors.Error {
	f, err := openFileStream(t.archivePath)
	if err != nil {
		return ErrorNoEOCD.ErrorParent(err)
	}
	t.file = f

	size := f.GetSize()
	tail := size
	if tail > 65536+eocdFixedSize {
		tail = 65536 + eocdFixedSize
	}
	buf := make([]byte, tail)
	if _, rerr := f.ReadAt(buf, size-tail); rerr != nil && rerr != io.EOF {
		return ErrorNoEOCD.ErrorParent(rerr)
	}

	pos, ferr := findEOCD(buf)
	if ferr != nil {
		return ErrorNoEOCD.ErrorParent(ferr)
	}
	e, derr := decodeEOCD(buf[pos:])
	if derr != nil {
		return ErrorBadEOCD.ErrorParent(derr)
	}
	t.comment = e.comment

	centralBuf := make([]byte, e.centralDirSize)
	if _, rerr := f.ReadAt(centralBuf, int64(e.centralDirOffset)); rerr != nil && rerr != io.EOF {
		return ErrorBadCentralHeader.ErrorParent(rerr)
	}

	off := 0
	for i := 0; i < int(e.entriesTotal); i++ {
		if off+centralFixedSize > len(centralBuf) {
			return ErrorBadCentralHeader.Error(nil)
		}
		ch, cerr := decodeCentralHeader(centralBuf[off:])
		if cerr != nil {
			return ErrorBadCentralHeader.ErrorParent(cerr)
		}
		nameStart := off + centralFixedSize
		name := string(centralBuf[nameStart : nameStart+int(ch.nameLen)])
		off = nameStart + int(ch.nameLen) + int(ch.extraLen) + int(ch.commentLen)

		isDir := len(name) > 0 && name[len(name)-1] == '/'

		if isDir {
			dn, derr := t.tree.CreateDir(name, true)
			if derr != nil {
				continue
			}
			dn.SetOrder(uint64(i))
			continue
		}

		localBuf := make([]byte, localFixedSize)
		if _, rerr := f.ReadAt(localBuf, int64(ch.localHeaderOff)); rerr != nil && rerr != io.EOF {
			return ErrorBadLocalHeader.ErrorParent(rerr)
		}
		lh, lerr := decodeLocalHeader(localBuf)
		if lerr != nil {
			return ErrorBadLocalHeader.ErrorParent(lerr)
		}
		dataOffset := int64(ch.localHeaderOff) + localFixedSize + int64(lh.nameLen) + int64(lh.commentLen)

		meta := newFileMeta()
		meta.name = name
		meta.compression = ch.compression
		meta.flags = ch.flags
		meta.modTime = ch.modTime
		meta.modDate = ch.modDate
		meta.crc32 = ch.crc32
		meta.csize = ch.csize
		meta.usize = ch.usize
		meta.externalAttr = ch.externalAttr
		meta.diskID = ch.diskID
		meta.localHeaderOff = ch.localHeaderOff
		meta.dataOffset = dataOffset
		meta.haveOffsets = true
		meta.sizeRealIsVerified = ch.usize != 0 || ch.csize == 0

		node, nerr := t.tree.CreateFileNode(name, true)
		if nerr != nil {
			continue
		}
		node.Meta = meta
		node.SetOrder(uint64(i))
	}

	return nil
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
		if meta.compression != MethodStore && meta.compression != MethodDeflate {
			return nil, ErrorUnsupportedMethod.Error(nil)
		}
		return newCompressedStream(t.file, meta.compression, meta.dataOffset, int64(meta.usize)), nil
	default:
		sink := meta.state.Sink()
		return buffered.New(sinkUnderlying{s: sink}, 0), nil
	}
}

// extract performs the decompress-on-write transition: the full entry is
// decoded once into a fresh presence sink, and meta's archive-relative
// offsets are invalidated since the next save must re-encode the entry.
func (t *Translator) extract(meta *fileMeta) error {
	cs := newCompressedStream(t.file, meta.compression, meta.dataOffset, int64(meta.usize))
	decoded := make([]byte, meta.usize)
	if _, err := io.ReadFull(cs, decoded); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
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
	meta.haveOffsets = false
	meta.sizeRealIsVerified = false
	return nil
}

// sinkUnderlying adapts a presence.Sink to buffered.Underlying.
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
	dst.compression = src.compression
	dst.flags = src.flags
	dst.modTime = src.modTime
	dst.modDate = src.modDate
	dst.externalAttr = src.externalAttr
	return dst, nil
}

// NotifyRemoved implements vfs.RemoveHook.
func (t *Translator) NotifyRemoved(n *vfs.Node) {
	meta, _ := n.Meta.(*fileMeta)
	if meta == nil {
		return
	}
	if sink := meta.state.EnterArchived(); sink != nil {
		_ = sink.Close()
	}
}

func (t *Translator) currentDir() string { return "/" }

// CreateDir implements translator.ArchiveTranslator.
func (t *Translator) CreateDir(path string, mode stream.OpenMode, createParents bool) bool {
	resolved, err := t.path.Canonicalize(path, t.currentDir())
	if err != nil {
		return false
	}
	_, cerr := t.tree.CreateDir(resolved, createParents)
	return cerr == nil
}

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

// stagedEntry is one file entry carried through the save procedure's cache
// step: ARCHIVED entries copy their still-compressed bytes into sink before
// the archive file is overwritten.
type stagedEntry struct {
	node *vfs.Node
	meta *fileMeta
}

// Save rewrites the archive from scratch in serialization order, per the
// ZIP save procedure: cache step, per-entry local header + body, central
// directory, EOCD, final truncate.
func (t *Translator) Save() bool {
	nodes := t.tree.WalkSerializationOrder()

	// Step 1: cache every ARCHIVED entry's still-compressed bytes before
	// the file is overwritten.
	var items []stagedEntry
	for _, n := range nodes {
		meta, _ := n.Meta.(*fileMeta)
		if meta == nil {
			meta = newFileMeta()
			n.Meta = meta
		}
		meta.name = n.RelPath()

		if !n.IsDir() && meta.state.State() == translator.Archived {
			raw := make([]byte, meta.csize)
			if _, err := t.file.ReadAt(raw, meta.dataOffset); err != nil && err != io.EOF {
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
		}
		items = append(items, stagedEntry{node: n, meta: meta})
	}

	if err := t.file.Truncate(0); err != nil {
		return false
	}

	type centralRecord struct {
		header centralHeader
		name   []byte
	}
	var records []centralRecord

	cursor := int64(0)
	for _, it := range items {
		name := []byte(entryArchiveName(it.node, it.meta))

		if it.node.IsDir() {
			ch := centralHeader{externalAttr: externalAttrDir, localHeaderOff: uint32(cursor)}
			lh := localHeader{nameLen: uint16(len(name))}
			buf := encodeLocalHeader(lh, name, nil)
			if _, err := t.file.WriteAt(buf, cursor); err != nil {
				return false
			}
			cursor += int64(len(buf))
			records = append(records, centralRecord{header: ch, name: name})
			continue
		}

		meta := it.meta
		localOff := cursor

		switch meta.state.State() {
		case translator.PresentCompressed:
			lh := localHeader{
				compression: meta.compression,
				flags:       meta.flags,
				modTime:     meta.modTime,
				modDate:     meta.modDate,
				crc32:       meta.crc32,
				csize:       meta.csize,
				usize:       meta.usize,
				nameLen:     uint16(len(name)),
			}
			hdrBuf := encodeLocalHeader(lh, name, nil)
			if _, err := t.file.WriteAt(hdrBuf, cursor); err != nil {
				return false
			}
			cursor += int64(len(hdrBuf))

			sink := meta.state.Sink()
			if _, err := sink.Seek(0, io.SeekStart); err != nil {
				return false
			}
			body := make([]byte, meta.csize)
			if _, err := io.ReadFull(sink, body); err != nil && err != io.EOF {
				return false
			}
			if _, err := t.file.WriteAt(body, cursor); err != nil {
				return false
			}
			cursor += int64(len(body))

			ch := centralHeader{
				compression:    meta.compression,
				flags:          meta.flags,
				modTime:        meta.modTime,
				modDate:        meta.modDate,
				crc32:          meta.crc32,
				csize:          meta.csize,
				usize:          meta.usize,
				diskID:         meta.diskID,
				externalAttr:   meta.externalAttr,
				localHeaderOff: uint32(localOff),
			}
			records = append(records, centralRecord{header: ch, name: name})

		default: // Present: encode fresh
			method := meta.compression
			if method != MethodStore && method != MethodDeflate {
				method = t.defaultMethod
			}

			lh := localHeader{compression: method, modTime: meta.modTime, modDate: meta.modDate, nameLen: uint16(len(name))}
			hdrBuf := encodeLocalHeader(lh, name, nil)
			if _, err := t.file.WriteAt(hdrBuf, cursor); err != nil {
				return false
			}
			bodyStart := cursor + int64(len(hdrBuf))

			sink := meta.state.Sink()
			if _, err := sink.Seek(0, io.SeekStart); err != nil {
				return false
			}
			usize := sink.GetSize()
			src := make([]byte, usize)
			if _, err := io.ReadFull(sink, src); err != nil && err != io.EOF {
				return false
			}

			// crc32 is computed in the same pass as compression rather than
			// a separate scan over src: the hash and the flate writer are
			// both registered as broadcast destinations for one Write.
			hasher := crc32.NewIEEE()
			var encoded []byte
			if method == MethodDeflate {
				var raw bytes.Buffer
				buf := bufferReadCloser.NewBuffer(&raw, nil)
				fw, ferr := flate.NewWriter(buf, flate.DefaultCompression)
				if ferr != nil {
					return false
				}
				bcast := multi.New()
				bcast.AddWriter(hasher, fw)
				if _, err := bcast.Write(src); err != nil {
					return false
				}
				if err := fw.Close(); err != nil {
					return false
				}
				encoded = raw.Bytes()
			} else {
				_, _ = hasher.Write(src)
				encoded = src
			}
			crc := hasher.Sum32()

			if _, err := t.file.WriteAt(encoded, bodyStart); err != nil {
				return false
			}
			cursor = bodyStart + int64(len(encoded))

			lh.crc32 = crc
			lh.csize = uint32(len(encoded))
			lh.usize = uint32(usize)
			hdrBuf = encodeLocalHeader(lh, name, nil)
			if _, err := t.file.WriteAt(hdrBuf, localOff); err != nil {
				return false
			}

			meta.compression = method
			meta.crc32 = crc
			meta.csize = uint32(len(encoded))
			meta.usize = uint32(usize)
			meta.localHeaderOff = uint32(localOff)
			meta.dataOffset = bodyStart
			meta.haveOffsets = true
			meta.sizeRealIsVerified = true

			ch := centralHeader{
				compression:    method,
				modTime:        meta.modTime,
				modDate:        meta.modDate,
				crc32:          crc,
				csize:          uint32(len(encoded)),
				usize:          uint32(usize),
				diskID:         meta.diskID,
				externalAttr:   meta.externalAttr,
				localHeaderOff: uint32(localOff),
			}
			records = append(records, centralRecord{header: ch, name: name})
		}
	}

	centralStart := cursor
	for _, r := range records {
		buf := encodeCentralHeader(r.header, r.name, nil, nil)
		if _, err := t.file.WriteAt(buf, cursor); err != nil {
			return false
		}
		cursor += int64(len(buf))
	}
	centralSize := cursor - centralStart

	e := eocd{
		entriesThisDisk:  uint16(len(records)),
		entriesTotal:     uint16(len(records)),
		centralDirSize:   uint32(centralSize),
		centralDirOffset: uint32(centralStart),
		comment:          t.comment,
	}
	eocdBuf := encodeEOCD(e)
	if _, err := t.file.WriteAt(eocdBuf, cursor); err != nil {
		return false
	}
	cursor += int64(len(eocdBuf))

	if err := t.file.Truncate(cursor); err != nil {
		return false
	}

	// Step 7 analogue: collapse cached entries back to ARCHIVED now that
	// their bytes are committed to the rewritten file.
	for _, it := range items {
		if it.meta.state.State() == translator.PresentCompressed {
			if sink := it.meta.state.EnterArchived(); sink != nil {
				_ = sink.Close()
			}
		}
	}

	return true
}

func entryArchiveName(n *vfs.Node, meta *fileMeta) string {
	name := n.RelPath()
	if n.IsDir() && (len(name) == 0 || name[len(name)-1] != '/') {
		name += "/"
	}
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	return name
}

