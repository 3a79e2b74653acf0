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
	"math"

	// this project.
	"github.com/linkall-labs/vrs/internal/record"
)

// RecordHeaderSize is the compiled size of RecordHeader. Files may carry a
// larger value in their file header.
const RecordHeaderSize = 32

const (
	recordSizeOffset         = 0
	previousRecordSizeOffset = 4
	streamTypeOffset         = 8
	formatVersionOffset      = 12
	timestampOffset          = 16
	streamInstanceOffset     = 24
	recordTypeOffset         = 26
	compressionTypeOffset    = 27
	uncompressedSizeOffset   = 28
)

// RecordHeader starts every record on disk. The forward/backward size links
// (RecordSize/PreviousRecordSize) chain records together, which is what makes
// index reconstruction possible after a crash.
type RecordHeader struct {
	// RecordSize is the byte count to the next record: header plus payload.
	RecordSize uint32
	// PreviousRecordSize is the byte count to the previous record.
	PreviousRecordSize uint32
	StreamType         int32
	// FormatVersion is declared by the data producer, and keys the record
	// format lookup.
	FormatVersion  uint32
	Timestamp      float64
	StreamInstance uint16
	RecordType     uint8
	Compression    CompressionType
	// UncompressedSize is the payload size before compression, 0 when the
	// payload is stored raw.
	UncompressedSize uint32
}

func (h *RecordHeader) StreamID() record.StreamID {
	t := h.StreamType
	if t < 0 || t > int32(record.StreamTypeUndefined) {
		t = int32(record.StreamTypeUndefined)
	}
	return record.NewStreamID(record.StreamType(t), h.StreamInstance)
}

func (h *RecordHeader) SetStreamID(id record.StreamID) {
	h.StreamType = int32(id.Type)
	h.StreamInstance = id.Instance
}

func (h *RecordHeader) GetRecordType() record.Type {
	return record.Type(h.RecordType)
}

// InitIndexHeader prepares the header of an index record.
func (h *RecordHeader) InitIndexHeader(
	formatVersion, indexSize, previousRecordSize uint32, compression CompressionType,
) {
	h.RecordType = uint8(record.TypeData)
	h.RecordSize = RecordHeaderSize + indexSize
	h.PreviousRecordSize = previousRecordSize
	h.FormatVersion = formatVersion
	h.StreamType = int32(record.StreamTypeIndex)
	h.Timestamp = record.MaxTimestamp
	h.Compression = compression
}

// InitDescriptionHeader prepares the header of a description record.
func (h *RecordHeader) InitDescriptionHeader(
	formatVersion, descriptionRecordSize, previousRecordSize uint32,
) {
	h.RecordType = uint8(record.TypeData)
	h.RecordSize = descriptionRecordSize
	h.PreviousRecordSize = previousRecordSize
	h.FormatVersion = formatVersion
	h.StreamType = int32(record.StreamTypeDescription)
	h.Timestamp = record.MaxTimestamp
}

// SanityCheckOk runs the structural plausibility checks used both when
// reading an index record and when rescanning record headers during index
// reconstruction.
func (h *RecordHeader) SanityCheckOk() bool {
	if h.RecordSize < RecordHeaderSize {
		return false
	}
	if h.PreviousRecordSize != 0 && h.PreviousRecordSize < RecordHeaderSize {
		return false
	}
	if !record.Type(h.RecordType).IsValid() {
		return false
	}
	if h.UncompressedSize > 0 && record.StreamType(h.StreamType) != record.StreamTypeIndex {
		// Compression was not always checked for effectiveness, and small
		// payloads may grow a little, but a compressed payload much larger
		// than its uncompressed size means a corrupt header.
		compressedPayload := uint64(h.RecordSize) - RecordHeaderSize
		uncompressed := uint64(h.UncompressedSize)
		var maxIncrease uint64
		if uncompressed < 200 {
			maxIncrease = maxU64(50, uncompressed/2)
		} else {
			maxIncrease = maxU64(100, uncompressed*5/100)
		}
		if compressedPayload >= uncompressed+maxIncrease {
			return false
		}
	}
	return true
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// MarshalTo packs the header into buf, which must hold RecordHeaderSize bytes.
func (h *RecordHeader) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[recordSizeOffset:], h.RecordSize)
	binary.LittleEndian.PutUint32(buf[previousRecordSizeOffset:], h.PreviousRecordSize)
	binary.LittleEndian.PutUint32(buf[streamTypeOffset:], uint32(h.StreamType))
	binary.LittleEndian.PutUint32(buf[formatVersionOffset:], h.FormatVersion)
	binary.LittleEndian.PutUint64(buf[timestampOffset:], math.Float64bits(h.Timestamp))
	binary.LittleEndian.PutUint16(buf[streamInstanceOffset:], h.StreamInstance)
	buf[recordTypeOffset] = h.RecordType
	buf[compressionTypeOffset] = uint8(h.Compression)
	binary.LittleEndian.PutUint32(buf[uncompressedSizeOffset:], h.UncompressedSize)
}

// Unmarshal unpacks the header from buf, which must hold at least
// RecordHeaderSize bytes. Extra bytes of larger future headers are ignored.
func (h *RecordHeader) Unmarshal(buf []byte) {
	h.RecordSize = binary.LittleEndian.Uint32(buf[recordSizeOffset:])
	h.PreviousRecordSize = binary.LittleEndian.Uint32(buf[previousRecordSizeOffset:])
	h.StreamType = int32(binary.LittleEndian.Uint32(buf[streamTypeOffset:]))
	h.FormatVersion = binary.LittleEndian.Uint32(buf[formatVersionOffset:])
	h.Timestamp = math.Float64frombits(binary.LittleEndian.Uint64(buf[timestampOffset:]))
	h.StreamInstance = binary.LittleEndian.Uint16(buf[streamInstanceOffset:])
	h.RecordType = buf[recordTypeOffset]
	h.Compression = CompressionType(buf[compressionTypeOffset])
	h.UncompressedSize = binary.LittleEndian.Uint32(buf[uncompressedSizeOffset:])
}
