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
	"bytes"
	"encoding/binary"
)

// Version selects which on-disk directory-record layout a Translator reads
// and writes.
type Version uint8

const (
	V1 Version = iota
	V2
)

const (
	nameFieldLen  = 24
	v1RecordSize  = 4 + 4 + nameFieldLen // 32
	v2RecordSize  = 4 + 2 + 2 + nameFieldLen
	v2HeaderSize  = 8
	v2Magic       = "VER2"
)

// v1Record mirrors one 32-byte NAME.DIR entry: offsets and sizes counted in
// BlockSize units.
type v1Record struct {
	Offset uint32
	Size   uint32
	Name   string
}

func decodeV1Record(buf []byte) (v1Record, error) {
	if len(buf) != v1RecordSize {
		return v1Record{}, ErrorBadRecord.Error(nil)
	}
	r := v1Record{
		Offset: binary.LittleEndian.Uint32(buf[0:4]),
		Size:   binary.LittleEndian.Uint32(buf[4:8]),
		Name:   decodeName(buf[8 : 8+nameFieldLen]),
	}
	return r, nil
}

func encodeV1Record(r v1Record) ([]byte, error) {
	buf := make([]byte, v1RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Offset)
	binary.LittleEndian.PutUint32(buf[4:8], r.Size)
	if err := encodeName(buf[8:8+nameFieldLen], r.Name); err != nil {
		return nil, err
	}
	return buf, nil
}

// v2Record mirrors one 32-byte VER2 directory entry. ExpandedSize, when
// non-zero, overrides Size as the authoritative block count.
type v2Record struct {
	Offset       uint32
	Size         uint16
	ExpandedSize uint16
	Name         string
}

func (r v2Record) blocks() uint32 {
	if r.ExpandedSize != 0 {
		return uint32(r.ExpandedSize)
	}
	return uint32(r.Size)
}

func decodeV2Record(buf []byte) (v2Record, error) {
	if len(buf) != v2RecordSize {
		return v2Record{}, ErrorBadRecord.Error(nil)
	}
	r := v2Record{
		Offset:       binary.LittleEndian.Uint32(buf[0:4]),
		Size:         binary.LittleEndian.Uint16(buf[4:6]),
		ExpandedSize: binary.LittleEndian.Uint16(buf[6:8]),
		Name:         decodeName(buf[8 : 8+nameFieldLen]),
	}
	return r, nil
}

func encodeV2Record(r v2Record) ([]byte, error) {
	buf := make([]byte, v2RecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], r.Offset)
	binary.LittleEndian.PutUint16(buf[4:6], r.Size)
	binary.LittleEndian.PutUint16(buf[6:8], r.ExpandedSize)
	if err := encodeName(buf[8:8+nameFieldLen], r.Name); err != nil {
		return nil, err
	}
	return buf, nil
}

func decodeV2Header(buf []byte) (count uint32, err error) {
	if len(buf) != v2HeaderSize || string(buf[0:4]) != v2Magic {
		return 0, ErrorBadHeader.Error(nil)
	}
	return binary.LittleEndian.Uint32(buf[4:8]), nil
}

func encodeV2Header(count uint32) []byte {
	buf := make([]byte, v2HeaderSize)
	copy(buf[0:4], v2Magic)
	binary.LittleEndian.PutUint32(buf[4:8], count)
	return buf
}

// decodeName trims zero padding from a fixed-width name field.
func decodeName(buf []byte) string {
	i := bytes.IndexByte(buf, 0)
	if i < 0 {
		i = len(buf)
	}
	return string(buf[:i])
}

// encodeName zero-pads or truncates name into a fixed-width field.
func encodeName(dst []byte, name string) error {
	if len(name) > len(dst) {
		return ErrorNameTooLong.Error(nil)
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, name)
	return nil
}

func headerTableSize(version Version, fileCount int) int {
	switch version {
	case V2:
		return v2HeaderSize + fileCount*v2RecordSize
	default:
		return fileCount * v1RecordSize
	}
}

func ceilBlocks(byteSize uint64) uint64 {
	return (byteSize + BlockSize - 1) / BlockSize
}
