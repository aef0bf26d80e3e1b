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

import "encoding/binary"

const (
	eocdSignature    = 0x06054B50
	centralSignature = 0x02014B50
	localSignature   = 0x04034B50

	eocdFixedSize    = 22 // signature + the 18 fixed bytes below
	centralFixedSize = 46
	localFixedSize   = 30

	MethodStore   = 0
	MethodDeflate = 8

	// externalAttrDir is the external-attribute value written for directory
	// entries, matching the DOS directory bit other tools set.
	externalAttrDir = 0x10
)

// eocd mirrors the end-of-central-directory record, minus its signature.
type eocd struct {
	diskNumber       uint16
	diskWithCentral  uint16
	entriesThisDisk  uint16
	entriesTotal     uint16
	centralDirSize   uint32
	centralDirOffset uint32
	comment          []byte
}

// findEOCD reverse-scans buf for the EOCD signature, returning its offset.
// ZIP readers must scan backward because the comment field has unbounded,
// attacker-or-tool-controlled length.
func findEOCD(buf []byte) (int, error) {
	limit := len(buf) - eocdFixedSize
	for i := limit; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:i+4]) == eocdSignature {
			return i, nil
		}
	}
	return -1, ErrorNoEOCD.Error(nil)
}

func decodeEOCD(buf []byte) (eocd, error) {
	if len(buf) < eocdFixedSize {
		return eocd{}, ErrorBadEOCD.Error(nil)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != eocdSignature {
		return eocd{}, ErrorBadEOCD.Error(nil)
	}
	e := eocd{
		diskNumber:       binary.LittleEndian.Uint16(buf[4:6]),
		diskWithCentral:  binary.LittleEndian.Uint16(buf[6:8]),
		entriesThisDisk:  binary.LittleEndian.Uint16(buf[8:10]),
		entriesTotal:     binary.LittleEndian.Uint16(buf[10:12]),
		centralDirSize:   binary.LittleEndian.Uint32(buf[12:16]),
		centralDirOffset: binary.LittleEndian.Uint32(buf[16:20]),
	}
	commentLen := int(binary.LittleEndian.Uint16(buf[20:22]))
	if len(buf) < eocdFixedSize+commentLen {
		return eocd{}, ErrorBadEOCD.Error(nil)
	}
	e.comment = append([]byte(nil), buf[eocdFixedSize:eocdFixedSize+commentLen]...)
	return e, nil
}

func encodeEOCD(e eocd) []byte {
	buf := make([]byte, eocdFixedSize+len(e.comment))
	binary.LittleEndian.PutUint32(buf[0:4], eocdSignature)
	binary.LittleEndian.PutUint16(buf[4:6], e.diskNumber)
	binary.LittleEndian.PutUint16(buf[6:8], e.diskWithCentral)
	binary.LittleEndian.PutUint16(buf[8:10], e.entriesThisDisk)
	binary.LittleEndian.PutUint16(buf[10:12], e.entriesTotal)
	binary.LittleEndian.PutUint32(buf[12:16], e.centralDirSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.centralDirOffset)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(len(e.comment)))
	copy(buf[eocdFixedSize:], e.comment)
	return buf
}

// centralHeader mirrors one central-directory file header, minus its
// signature and variable name/extra/comment (carried on entryMeta/fileMeta).
type centralHeader struct {
	version         uint16
	reqVersion      uint16
	flags           uint16
	compression     uint16
	modTime         uint16
	modDate         uint16
	crc32           uint32
	csize           uint32
	usize           uint32
	nameLen         uint16
	extraLen        uint16
	commentLen      uint16
	diskID          uint16
	internalAttr    uint16
	externalAttr    uint32
	localHeaderOff  uint32
}

func decodeCentralHeader(buf []byte) (centralHeader, error) {
	if len(buf) < centralFixedSize || binary.LittleEndian.Uint32(buf[0:4]) != centralSignature {
		return centralHeader{}, ErrorBadCentralHeader.Error(nil)
	}
	return centralHeader{
		version:        binary.LittleEndian.Uint16(buf[4:6]),
		reqVersion:     binary.LittleEndian.Uint16(buf[6:8]),
		flags:          binary.LittleEndian.Uint16(buf[8:10]),
		compression:    binary.LittleEndian.Uint16(buf[10:12]),
		modTime:        binary.LittleEndian.Uint16(buf[12:14]),
		modDate:        binary.LittleEndian.Uint16(buf[14:16]),
		crc32:          binary.LittleEndian.Uint32(buf[16:20]),
		csize:          binary.LittleEndian.Uint32(buf[20:24]),
		usize:          binary.LittleEndian.Uint32(buf[24:28]),
		nameLen:        binary.LittleEndian.Uint16(buf[28:30]),
		extraLen:       binary.LittleEndian.Uint16(buf[30:32]),
		commentLen:     binary.LittleEndian.Uint16(buf[32:34]),
		diskID:         binary.LittleEndian.Uint16(buf[34:36]),
		internalAttr:   binary.LittleEndian.Uint16(buf[36:38]),
		externalAttr:   binary.LittleEndian.Uint32(buf[38:42]),
		localHeaderOff: binary.LittleEndian.Uint32(buf[42:46]),
	}, nil
}

func encodeCentralHeader(h centralHeader, name, extra, comment []byte) []byte {
	buf := make([]byte, centralFixedSize+len(name)+len(extra)+len(comment))
	binary.LittleEndian.PutUint32(buf[0:4], centralSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.version)
	binary.LittleEndian.PutUint16(buf[6:8], h.reqVersion)
	binary.LittleEndian.PutUint16(buf[8:10], h.flags)
	binary.LittleEndian.PutUint16(buf[10:12], h.compression)
	binary.LittleEndian.PutUint16(buf[12:14], h.modTime)
	binary.LittleEndian.PutUint16(buf[14:16], h.modDate)
	binary.LittleEndian.PutUint32(buf[16:20], h.crc32)
	binary.LittleEndian.PutUint32(buf[20:24], h.csize)
	binary.LittleEndian.PutUint32(buf[24:28], h.usize)
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(len(extra)))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(len(comment)))
	binary.LittleEndian.PutUint16(buf[34:36], h.diskID)
	binary.LittleEndian.PutUint16(buf[36:38], h.internalAttr)
	binary.LittleEndian.PutUint32(buf[38:42], h.externalAttr)
	binary.LittleEndian.PutUint32(buf[42:46], h.localHeaderOff)
	n := centralFixedSize
	n += copy(buf[n:], name)
	n += copy(buf[n:], extra)
	copy(buf[n:], comment)
	return buf
}

// localHeader mirrors one local file header, minus its signature and
// variable name/comment (the data payload follows immediately after).
type localHeader struct {
	version     uint16
	flags       uint16
	compression uint16
	modTime     uint16
	modDate     uint16
	crc32       uint32
	csize       uint32
	usize       uint32
	nameLen     uint16
	commentLen  uint16
}

func decodeLocalHeader(buf []byte) (localHeader, error) {
	if len(buf) < localFixedSize || binary.LittleEndian.Uint32(buf[0:4]) != localSignature {
		return localHeader{}, ErrorBadLocalHeader.Error(nil)
	}
	return localHeader{
		version:     binary.LittleEndian.Uint16(buf[4:6]),
		flags:       binary.LittleEndian.Uint16(buf[6:8]),
		compression: binary.LittleEndian.Uint16(buf[8:10]),
		modTime:     binary.LittleEndian.Uint16(buf[10:12]),
		modDate:     binary.LittleEndian.Uint16(buf[12:14]),
		crc32:       binary.LittleEndian.Uint32(buf[14:18]),
		csize:       binary.LittleEndian.Uint32(buf[18:22]),
		usize:       binary.LittleEndian.Uint32(buf[22:26]),
		nameLen:     binary.LittleEndian.Uint16(buf[26:28]),
		commentLen:  binary.LittleEndian.Uint16(buf[28:30]),
	}, nil
}

func encodeLocalHeader(h localHeader, name, comment []byte) []byte {
	buf := make([]byte, localFixedSize+len(name)+len(comment))
	binary.LittleEndian.PutUint32(buf[0:4], localSignature)
	binary.LittleEndian.PutUint16(buf[4:6], h.version)
	binary.LittleEndian.PutUint16(buf[6:8], h.flags)
	binary.LittleEndian.PutUint16(buf[8:10], h.compression)
	binary.LittleEndian.PutUint16(buf[10:12], h.modTime)
	binary.LittleEndian.PutUint16(buf[12:14], h.modDate)
	binary.LittleEndian.PutUint32(buf[14:18], h.crc32)
	binary.LittleEndian.PutUint32(buf[18:22], h.csize)
	binary.LittleEndian.PutUint32(buf[22:26], h.usize)
	binary.LittleEndian.PutUint16(buf[26:28], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(len(comment)))
	n := localFixedSize
	n += copy(buf[n:], name)
	copy(buf[n:], comment)
	return buf
}
