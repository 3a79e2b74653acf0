// Copyright 2023 Linkall Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fileformat

import (
	// standard libraries.
	"encoding/binary"
)

// FileHeaderSize is the compiled size of FileHeader. Files may carry a larger
// value in their header field.
const FileHeaderSize = 80

const (
	magic1Offset            = 0
	magic2Offset            = 4
	creationIDOffset        = 8
	fileHeaderSizeOffset    = 16
	recordHeaderSizeOffset  = 20
	indexRecordOffset       = 24
	descriptionRecordOffset = 32
	firstUserRecordOffset   = 40
	future2Offset           = 48
	future3Offset           = 56
	future4Offset           = 64
	magic3Offset            = 72
	fileFormatVersionOffset = 76
)

// FileHeader is the structure that starts every record file.
type FileHeader struct {
	MagicHeader1 uint32
	MagicHeader2 uint32
	// CreationID is a hopefully-unique stamp, used to match a file with its
	// local details cache.
	CreationID       uint64
	FileHeaderSize   uint32
	RecordHeaderSize uint32
	// IndexRecordOffset is 0 until the index record is written.
	IndexRecordOffset       int64
	DescriptionRecordOffset int64
	// FirstUserRecordOffset is 0 in early files: the first user record then
	// starts right after the file header (and description record, if the
	// description record comes first).
	FirstUserRecordOffset int64
	Future2               uint64
	Future3               uint64
	Future4               uint64
	MagicHeader3          uint32
	FileFormatVersion     uint32
}

// Init sets the fixed values of a regular record file header.
func (h *FileHeader) Init() {
	h.InitWithMagic(MagicHeader1, MagicHeader2, MagicHeader3, OriginalFileFormatVersion)
}

// InitWithMagic sets the fixed values with explicit magic numbers, for
// sibling formats reusing the same header layout (e.g. details caches).
func (h *FileHeader) InitWithMagic(magic1, magic2, magic3, formatVersion uint32) {
	h.MagicHeader1 = magic1
	h.MagicHeader2 = magic2
	h.MagicHeader3 = magic3
	h.FileFormatVersion = formatVersion
	h.FileHeaderSize = FileHeaderSize
	h.RecordHeaderSize = RecordHeaderSize
}

// LooksLikeOurFiles checks the three magic values against expectations.
func (h *FileHeader) LooksLikeOurFiles(magic1, magic2, magic3 uint32) bool {
	return h.MagicHeader1 == magic1 && h.MagicHeader2 == magic2 && h.MagicHeader3 == magic3 &&
		h.FileHeaderSize >= FileHeaderSize && h.RecordHeaderSize >= RecordHeaderSize
}

// LooksLikeARecordFile tells if the header carries the record file signature.
func (h *FileHeader) LooksLikeARecordFile() bool {
	return h.LooksLikeOurFiles(MagicHeader1, MagicHeader2, MagicHeader3)
}

// IsFormatSupported tells if this engine can read the file.
func (h *FileHeader) IsFormatSupported() bool {
	switch h.FileFormatVersion {
	case OriginalFileFormatVersion, FrontIndexFileFormatVersion, ZstdFormatVersion:
		return true
	}
	return false
}

// EnableFrontIndexSupport bumps the format version when a head index record
// is preallocated, only if the current version doesn't already allow it.
func (h *FileHeader) EnableFrontIndexSupport() {
	if h.FileFormatVersion == OriginalFileFormatVersion {
		h.FileFormatVersion = FrontIndexFileFormatVersion
	}
}

// EndOfUserRecordsOffset tells where user records stop: at the index record
// when the index is at the tail, otherwise at the end of the file.
func (h *FileHeader) EndOfUserRecordsOffset(fileSize int64) int64 {
	if h.IndexRecordOffset >= h.FirstUserRecordOffset && h.IndexRecordOffset > 0 {
		return h.IndexRecordOffset
	}
	return fileSize
}

// MarshalTo packs the header into buf, which must hold FileHeaderSize bytes.
func (h *FileHeader) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[magic1Offset:], h.MagicHeader1)
	binary.LittleEndian.PutUint32(buf[magic2Offset:], h.MagicHeader2)
	binary.LittleEndian.PutUint64(buf[creationIDOffset:], h.CreationID)
	binary.LittleEndian.PutUint32(buf[fileHeaderSizeOffset:], h.FileHeaderSize)
	binary.LittleEndian.PutUint32(buf[recordHeaderSizeOffset:], h.RecordHeaderSize)
	binary.LittleEndian.PutUint64(buf[indexRecordOffset:], uint64(h.IndexRecordOffset))
	binary.LittleEndian.PutUint64(buf[descriptionRecordOffset:], uint64(h.DescriptionRecordOffset))
	binary.LittleEndian.PutUint64(buf[firstUserRecordOffset:], uint64(h.FirstUserRecordOffset))
	binary.LittleEndian.PutUint64(buf[future2Offset:], h.Future2)
	binary.LittleEndian.PutUint64(buf[future3Offset:], h.Future3)
	binary.LittleEndian.PutUint64(buf[future4Offset:], h.Future4)
	binary.LittleEndian.PutUint32(buf[magic3Offset:], h.MagicHeader3)
	binary.LittleEndian.PutUint32(buf[fileFormatVersionOffset:], h.FileFormatVersion)
}

// Unmarshal unpacks the header from buf, which must hold FileHeaderSize bytes.
func (h *FileHeader) Unmarshal(buf []byte) {
	h.MagicHeader1 = binary.LittleEndian.Uint32(buf[magic1Offset:])
	h.MagicHeader2 = binary.LittleEndian.Uint32(buf[magic2Offset:])
	h.CreationID = binary.LittleEndian.Uint64(buf[creationIDOffset:])
	h.FileHeaderSize = binary.LittleEndian.Uint32(buf[fileHeaderSizeOffset:])
	h.RecordHeaderSize = binary.LittleEndian.Uint32(buf[recordHeaderSizeOffset:])
	h.IndexRecordOffset = int64(binary.LittleEndian.Uint64(buf[indexRecordOffset:]))
	h.DescriptionRecordOffset = int64(binary.LittleEndian.Uint64(buf[descriptionRecordOffset:]))
	h.FirstUserRecordOffset = int64(binary.LittleEndian.Uint64(buf[firstUserRecordOffset:]))
	h.Future2 = binary.LittleEndian.Uint64(buf[future2Offset:])
	h.Future3 = binary.LittleEndian.Uint64(buf[future3Offset:])
	h.Future4 = binary.LittleEndian.Uint64(buf[future4Offset:])
	h.MagicHeader3 = binary.LittleEndian.Uint32(buf[magic3Offset:])
	h.FileFormatVersion = binary.LittleEndian.Uint32(buf[fileFormatVersionOffset:])
}
