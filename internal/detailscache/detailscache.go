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

// Package detailscache saves a record file's details (stream ids, tags and
// record index) in a local sidecar file, so reopening a remote file does not
// need to fetch its description and index records again.
//
// A cache file reuses the regular file header layout with its own magic
// numbers:
//
//	FileHeader, with:
//	  DescriptionRecordOffset: offset of the description record.
//	  IndexRecordOffset: offset of the index data, in its cache-only format.
//	  FirstUserRecordOffset: offset past the index data, the end of the file.
//	  Future4 bit 0: set when the original file is known to have no index.
//	description record, same format as in a regular record file.
//	index data:
//	  u32 streamCount, then streamCount DiskStreamID structs
//	  u32 recordCount, then the entries, zstd-frame compressed
//
// Cache index entries carry absolute record offsets instead of record sizes,
// since the offsets are already resolved when the cache is written.
package detailscache

import (
	// standard libraries.
	"encoding/binary"
	"fmt"
	"math"

	// this project.
	"github.com/linkall-labs/vrs/internal/compression"
	"github.com/linkall-labs/vrs/internal/description"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/index"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/vrserrors"
)

var (
	magicHeader1 = fileformat.FourCharCode('V', 'R', 'S', 'D')
	magicHeader2 = fileformat.FourCharCode('e', 't', 'a', 'i')
	magicHeader3 = fileformat.FourCharCode('l', 's', 'C', 'a')

	formatVersion = fileformat.FourCharCode('V', 'R', 'S', 'a')
)

const (
	// flagFileHasNoIndex is set in the header's Future4 field when the
	// original file is known to have no index record.
	flagFileHasNoIndex uint64 = 1 << 0

	maxBatchSize = 50000

	compressionPreset = compression.PresetZstdMedium

	// cacheEntrySize is the packed size of one cache index entry:
	// f64 timestamp, i64 record offset, u16 stream type, u16 stream
	// instance, u8 record type.
	cacheEntrySize = 21

	maxRecordCount = 500000000
)

// Key names the cache entry of a file, from the identity stamps that survive
// copies: the creation id written in the file header and the file's size.
func Key(creationID uint64, totalSize int64) string {
	return fmt.Sprintf("vrs_details_%d_%d", creationID, totalSize)
}

// Details is everything a reader needs to know about a file short of its
// record payloads.
type Details struct {
	StreamIDs    []record.StreamID
	FileTags     map[string]string
	StreamTags   map[record.StreamID]*description.StreamTags
	Index        []record.Info
	FileHasIndex bool
}

func marshalCacheEntry(buf []byte, info *record.Info) {
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(info.Timestamp))
	binary.LittleEndian.PutUint64(buf[8:], uint64(info.FileOffset))
	binary.LittleEndian.PutUint16(buf[16:], uint16(info.StreamID.Type))
	binary.LittleEndian.PutUint16(buf[18:], info.StreamID.Instance)
	buf[20] = uint8(info.Type)
}

func unmarshalCacheEntry(buf []byte) record.Info {
	return record.Info{
		Timestamp:  math.Float64frombits(binary.LittleEndian.Uint64(buf[0:])),
		FileOffset: int64(binary.LittleEndian.Uint64(buf[8:])),
		StreamID: record.NewStreamID(
			record.StreamType(binary.LittleEndian.Uint16(buf[16:])),
			binary.LittleEndian.Uint16(buf[18:])),
		Type: record.Type(buf[20]),
	}
}

// Write saves the details to path, overwriting any previous cache file.
func Write(path string, details *Details) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var header fileformat.FileHeader
	header.InitWithMagic(magicHeader1, magicHeader2, magicHeader3, formatVersion)
	if !details.FileHasIndex {
		header.Future4 = flagFileHasNoIndex
	}
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	header.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}
	header.DescriptionRecordOffset = f.Pos()
	if _, err = description.WriteRecord(f, details.StreamTags, details.FileTags, 0); err != nil {
		return err
	}
	header.IndexRecordOffset = f.Pos()
	if err = writeIndexData(f, details.StreamIDs, details.Index); err != nil {
		return err
	}
	header.FirstUserRecordOffset = f.Pos()

	// Rewrite the header with the final offsets.
	if err = f.SetPos(0); err != nil {
		return err
	}
	header.MarshalTo(headerBuf)
	return f.Write(headerBuf)
}

func writeIndexData(
	f file.WriteHandler, streamIDs []record.StreamID, entries []record.Info,
) error {
	prelude := make([]byte, 4+len(streamIDs)*index.DiskStreamIDSize+4)
	binary.LittleEndian.PutUint32(prelude[0:], uint32(len(streamIDs)))
	for i, id := range streamIDs {
		index.NewDiskStreamID(id).MarshalTo(prelude[4+i*index.DiskStreamIDSize:])
	}
	binary.LittleEndian.PutUint32(prelude[len(prelude)-4:], uint32(len(entries)))
	if err := f.Write(prelude); err != nil {
		return err
	}
	compressor := compression.NewCompressor()
	defer compressor.Close()
	for len(entries) > 0 {
		batch := entries
		if len(batch) > maxBatchSize {
			batch = batch[:maxBatchSize]
		}
		buf := make([]byte, len(batch)*cacheEntrySize)
		for i := range batch {
			marshalCacheEntry(buf[i*cacheEntrySize:], &batch[i])
		}
		frame, err := compressor.CompressFrame(nil, buf, compressionPreset)
		if err != nil {
			return err
		}
		if err = f.Write(frame); err != nil {
			return err
		}
		entries = entries[len(batch):]
	}
	return nil
}

// Read loads the details saved at path. Any structural inconsistency yields
// ErrInvalidDiskData, the caller then falls back to reading the original
// file.
func Read(path string) (*Details, error) {
	f, err := file.OpenDiskFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	fileSize := f.TotalSize()
	if fileSize < fileformat.FileHeaderSize {
		return nil, vrserrors.ErrInvalidDiskData
	}
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	if err = f.Read(headerBuf); err != nil {
		return nil, err
	}
	var header fileformat.FileHeader
	header.Unmarshal(headerBuf)
	descriptionOffset := header.DescriptionRecordOffset
	indexOffset := header.IndexRecordOffset
	endOffset := header.FirstUserRecordOffset
	if !header.LooksLikeOurFiles(magicHeader1, magicHeader2, magicHeader3) ||
		header.FileFormatVersion != formatVersion ||
		descriptionOffset != fileformat.FileHeaderSize || descriptionOffset >= fileSize ||
		indexOffset <= descriptionOffset || indexOffset >= fileSize ||
		endOffset <= indexOffset || endOffset != fileSize {
		return nil, vrserrors.ErrInvalidDiskData
	}

	if err = f.SetPos(descriptionOffset); err != nil {
		return nil, err
	}
	descriptionSize, streamTags, fileTags, err := description.ReadRecord(f, header.RecordHeaderSize)
	if err != nil {
		return nil, err
	}
	if descriptionOffset+int64(descriptionSize) != indexOffset {
		return nil, vrserrors.ErrInvalidDiskData
	}

	details := &Details{
		FileTags:     fileTags,
		StreamTags:   streamTags,
		FileHasIndex: header.Future4&flagFileHasNoIndex == 0,
	}
	if err = readIndexData(f, details, endOffset-indexOffset); err != nil {
		return nil, err
	}
	return details, nil
}

func readIndexData(f file.Handler, details *Details, indexSize int64) error {
	var countBuf [4]byte
	if indexSize < 4 {
		return vrserrors.ErrInvalidDiskData
	}
	if err := f.Read(countBuf[:]); err != nil {
		return err
	}
	streamCount := binary.LittleEndian.Uint32(countBuf[:])
	preludeSize := int64(4) + int64(streamCount)*index.DiskStreamIDSize + 4
	if indexSize < preludeSize {
		return vrserrors.ErrInvalidDiskData
	}
	if streamCount > 0 {
		buf := make([]byte, int64(streamCount)*index.DiskStreamIDSize)
		if err := f.Read(buf); err != nil {
			return err
		}
		details.StreamIDs = make([]record.StreamID, streamCount)
		for i := range details.StreamIDs {
			var id index.DiskStreamID
			id.Unmarshal(buf[int64(i)*index.DiskStreamIDSize:])
			details.StreamIDs[i] = id.StreamID()
		}
	}
	if err := f.Read(countBuf[:]); err != nil {
		return err
	}
	recordCount := binary.LittleEndian.Uint32(countBuf[:])
	if recordCount == 0 {
		return nil
	}
	if recordCount > maxRecordCount {
		return vrserrors.ErrInvalidDiskData
	}
	buf := make([]byte, int64(recordCount)*cacheEntrySize)
	decompressor := compression.NewDecompressor()
	defer decompressor.Close()
	if err := decompressor.Decompress(
		file.LimitReader(f, indexSize-preludeSize), buf, fileformat.CompressionZstd,
	); err != nil {
		return vrserrors.ErrInvalidDiskData
	}
	details.Index = make([]record.Info, recordCount)
	for i := range details.Index {
		details.Index[i] = unmarshalCacheEntry(buf[int64(i)*cacheEntrySize:])
	}
	return nil
}
