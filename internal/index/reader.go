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

package index

import (
	// standard libraries.
	"context"
	"encoding/binary"
	"sort"

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/compression"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/vrserrors"
)

// maxRecordCount bounds how many index entries a file may declare, so a
// corrupt count cannot trigger a huge allocation.
const maxRecordCount = 500000000

const readChunkSize = 8 * 1024 * 1024

// Reader loads a file's index, either from its index record or by rescanning
// every record header when the index record is missing or damaged.
type Reader struct {
	file       file.Handler
	fileHeader *fileformat.FileHeader
	progress   progress.Logger

	totalFileSize int64

	streamIDs map[record.StreamID]struct{}
	index     []record.Info
	// diskIndex mirrors index as disk entries while rebuilding with the
	// intent of patching the file.
	diskIndex []DiskRecordInfo

	indexComplete     bool
	hasSplitHeadChunk bool
	sortErrorCount    int
	droppedCount      int

	decompressor *compression.Decompressor
}

func NewReader(h file.Handler, fileHeader *fileformat.FileHeader, p progress.Logger) *Reader {
	if p == nil {
		p = progress.Default
	}
	return &Reader{
		file:          h,
		fileHeader:    fileHeader,
		progress:      p,
		totalFileSize: h.TotalSize(),
		streamIDs:     make(map[record.StreamID]struct{}),
		decompressor:  compression.NewDecompressor(),
	}
}

// Index returns the loaded entries, sorted by timestamp.
func (r *Reader) Index() []record.Info {
	return r.index
}

// StreamIDs returns the ids of all streams seen in the index, sorted.
func (r *Reader) StreamIDs() []record.StreamID {
	ids := make([]record.StreamID, 0, len(r.streamIDs))
	for id := range r.streamIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// IsIndexComplete tells if the loaded index covers the whole file.
func (r *Reader) IsIndexComplete() bool {
	return r.indexComplete
}

// HasSplitHeadChunk tells if the file's first chunk only holds the header,
// description and index records.
func (r *Reader) HasSplitHeadChunk() bool {
	return r.hasSplitHeadChunk
}

// DroppedRecordCount is how many index entries were discarded because they
// point past the physical end of the file.
func (r *Reader) DroppedRecordCount() int {
	return r.droppedCount
}

func (r *Reader) Close() {
	r.decompressor.Close()
}

// ReadRecord loads the index record the file header points at. It returns
// the file size actually covered by indexed records.
func (r *Reader) ReadRecord(ctx context.Context, firstUserRecordOffset int64) (int64, error) {
	r.streamIDs = make(map[record.StreamID]struct{})
	r.index = nil
	r.diskIndex = nil
	r.indexComplete = false
	r.hasSplitHeadChunk = false
	r.sortErrorCount = 0
	r.droppedCount = 0
	usedFileSize, err := r.readRecordAt(
		ctx, r.fileHeader.IndexRecordOffset, firstUserRecordOffset)
	if err != nil {
		return usedFileSize, err
	}
	if r.sortErrorCount > 0 {
		log.Warning(ctx, "records not sorted properly, sorting index.", map[string]interface{}{
			"count": r.sortErrorCount,
		})
		sortIndex(r.index)
	}
	if r.droppedCount > 0 {
		log.Warning(ctx, "records are beyond the end of the file, dropping them.",
			map[string]interface{}{
				"count": r.droppedCount,
			})
	}
	return usedFileSize, nil
}

func (r *Reader) readRecordAt(
	ctx context.Context, indexRecordOffset, firstUserRecordOffset int64,
) (int64, error) {
	if indexRecordOffset == 0 {
		log.Warning(ctx,
			"file has no index. Was the recording interrupted by a crash or a full disk?", nil)
		return 0, vrserrors.ErrIndexRecord
	}
	if err := r.file.SetPos(indexRecordOffset); err != nil {
		log.Warning(ctx, "seek to index record failed.", map[string]interface{}{
			log.KeyError: err,
		})
		return 0, vrserrors.ErrIndexRecord
	}
	recordHeader, err := r.readRecordHeader()
	if err != nil {
		log.Warning(ctx, "can't read index record header.", map[string]interface{}{
			log.KeyError: err,
		})
		return 0, vrserrors.ErrIndexRecord
	}
	recordHeaderSize := r.fileHeader.RecordHeaderSize
	if recordHeader.RecordSize < recordHeaderSize || !recordHeader.SanityCheckOk() {
		log.Error(ctx, "index record header sanity check failed. Corrupt?", nil)
		return 0, vrserrors.ErrIndexRecord
	}
	indexByteSize := int64(recordHeader.RecordSize - recordHeaderSize)
	switch recordHeader.FormatVersion {
	case ClassicFormatVersion:
		return r.readClassicIndexRecord(
			ctx, indexByteSize, int64(recordHeader.UncompressedSize), firstUserRecordOffset)
	case SplitFormatVersion:
		return r.readSplitIndexRecord(
			ctx, indexByteSize, int64(recordHeader.UncompressedSize))
	}
	log.Warning(ctx, "unsupported index format.", map[string]interface{}{
		"format_version": recordHeader.FormatVersion,
	})
	return 0, vrserrors.ErrUnsupportedIndexFormat
}

// readRecordHeader reads a record header, honoring a possibly larger header
// size declared by the file.
func (r *Reader) readRecordHeader() (*fileformat.RecordHeader, error) {
	size := r.fileHeader.RecordHeaderSize
	if size < fileformat.RecordHeaderSize {
		return nil, vrserrors.ErrInvalidDiskData
	}
	buf := make([]byte, size)
	if err := r.file.Read(buf); err != nil {
		return nil, err
	}
	h := &fileformat.RecordHeader{}
	h.Unmarshal(buf)
	return h, nil
}

func (r *Reader) readClassicIndexRecord(
	ctx context.Context, indexByteSize, uncompressedSize, firstUserRecordOffset int64,
) (int64, error) {
	preludeSize := int64(8)
	if indexByteSize < preludeSize {
		log.Error(ctx, "index record way too small. Corrupt file or index?", nil)
		return 0, vrserrors.ErrIndexRecord
	}
	streamCount, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	if streamCount > 0 {
		readSize := int64(streamCount) * DiskStreamIDSize
		if readSize > indexByteSize-preludeSize {
			log.Error(ctx, "index record too small. Corrupt file or index?", nil)
			return 0, vrserrors.ErrIndexRecord
		}
		buf := make([]byte, readSize)
		if err = r.file.Read(buf); err != nil {
			return 0, err
		}
		preludeSize += readSize
		for i := uint32(0); i < streamCount; i++ {
			var id DiskStreamID
			id.Unmarshal(buf[int64(i)*DiskStreamIDSize:])
			r.streamIDs[id.StreamID()] = struct{}{}
		}
	}
	recordCount, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	var usedFileSize int64
	if recordCount > 0 {
		if recordCount > maxRecordCount {
			log.Error(ctx, "too many records in index. Corrupt index?", map[string]interface{}{
				"record_count": recordCount,
			})
			return 0, vrserrors.ErrIndexRecord
		}
		indexSize := indexByteSize - preludeSize
		entriesSize := int64(recordCount) * DiskRecordInfoSize
		buf := make([]byte, entriesSize)
		if uncompressedSize > 0 {
			if err = r.decompressor.Decompress(
				file.LimitReader(r.file, indexSize), buf, fileformat.CompressionZstd,
			); err != nil {
				log.Error(ctx, "can't decompress index data. Corrupt index?",
					map[string]interface{}{
						log.KeyError: err,
					})
				return 0, vrserrors.ErrIndexRecord
			}
		} else {
			if entriesSize > indexSize {
				log.Error(ctx,
					"more records expected than can fit in the index record. Corrupt index?",
					nil)
				return 0, vrserrors.ErrIndexRecord
			}
			if err = r.readRaw(buf); err != nil {
				return 0, err
			}
		}
		entries := unmarshalDiskInfos(buf)
		r.index = make([]record.Info, 0, len(entries))
		fileOffset := firstUserRecordOffset
		for i := range entries {
			entry := &entries[i]
			if !entry.Type().IsValid() {
				log.Error(ctx, "unexpected index record entry.", map[string]interface{}{
					"stream_id": entry.StreamID.StreamID().NumericName(),
					"type":      entry.RecordType,
					"size":      entry.RecordSize,
					"timestamp": entry.Timestamp,
				})
				return 0, vrserrors.ErrIndexRecord
			}
			nextFileOffset := fileOffset + int64(entry.RecordSize)
			if nextFileOffset > r.totalFileSize {
				// The file is too short, this record goes beyond the end.
				r.droppedCount = len(entries) - len(r.index)
				break
			}
			r.appendIndexEntry(record.Info{
				Timestamp:  entry.Timestamp,
				FileOffset: fileOffset,
				StreamID:   entry.StreamID.StreamID(),
				Type:       entry.Type(),
			})
			fileOffset = nextFileOffset
		}
		usedFileSize = fileOffset
	}
	r.indexComplete = true
	if pos := r.file.Pos(); pos > usedFileSize {
		usedFileSize = pos
	}
	return usedFileSize, nil
}

func (r *Reader) readSplitIndexRecord(
	ctx context.Context, indexByteSize, uncompressedSize int64,
) (int64, error) {
	// The split index record's size is only written once the file is
	// complete, so the first chunk's physical size is the fallback bound.
	firstUserRecordOffset := r.fileHeader.FirstUserRecordOffset
	noRecords := firstUserRecordOffset == r.totalFileSize
	currentPos := r.file.Pos()
	chunkStart, chunkSize, err := r.file.ChunkRange(currentPos)
	if err != nil || chunkSize <= 0 {
		if !(noRecords && currentPos == r.totalFileSize) {
			return 0, vrserrors.ErrIndexRecord
		}
		chunkStart, chunkSize = 0, currentPos
	}
	nextChunkStart := chunkStart + chunkSize
	r.indexComplete = (indexByteSize > 0 || noRecords) && firstUserRecordOffset > 0
	if chunkStart == 0 {
		chunkLeft := nextChunkStart - currentPos
		if indexByteSize == 0 {
			if nextChunkStart == r.totalFileSize && firstUserRecordOffset == 0 {
				// Single chunk, unknown index size, unknown first user
				// record: nothing to anchor a recovery on.
				log.Error(ctx,
					"file not recoverable: can't determine where the user records are.", nil)
				return 0, vrserrors.ErrIndexRecord
			}
			indexByteSize = chunkLeft
		} else if chunkLeft < indexByteSize {
			log.Warning(ctx, "index record too short.", map[string]interface{}{
				"missing_bytes": indexByteSize - chunkLeft,
			})
			indexByteSize = chunkLeft
			r.indexComplete = false
		}
		r.hasSplitHeadChunk = nextChunkStart < r.totalFileSize
		if firstUserRecordOffset == 0 {
			firstUserRecordOffset = nextChunkStart
		} else if nextChunkStart < firstUserRecordOffset {
			log.Warning(ctx, "index record too short to reach the first user record.",
				map[string]interface{}{
					"missing_bytes": firstUserRecordOffset - nextChunkStart,
				})
			r.indexComplete = false
			firstUserRecordOffset = nextChunkStart
		}
	} else {
		// Already in the next chunk: there is no data in the index.
		indexByteSize = 0
		r.indexComplete = false
		r.hasSplitHeadChunk = chunkStart < r.totalFileSize
		firstUserRecordOffset = currentPos
	}
	usedFileSize := firstUserRecordOffset
	sizeToRead := indexByteSize
	if uncompressedSize != 0 {
		sizeToRead = uncompressedSize
	}
	if extraBytes := sizeToRead % DiskRecordInfoSize; extraBytes > 0 {
		log.Warning(ctx, "the index record has extra bytes that will be ignored.",
			map[string]interface{}{
				"extra_bytes": extraBytes,
			})
		sizeToRead -= extraBytes
		r.indexComplete = false
	}
	maxInfoCount := sizeToRead / DiskRecordInfoSize
	if maxInfoCount == 0 {
		if !noRecords {
			log.Warning(ctx, "no index data to read.", nil)
		}
		return usedFileSize, nil
	}
	if maxInfoCount > maxRecordCount {
		log.Error(ctx, "too many records in index. Corrupt index?", map[string]interface{}{
			"record_count": maxInfoCount,
		})
		return 0, vrserrors.ErrIndexRecord
	}
	buf := make([]byte, sizeToRead)
	if uncompressedSize == 0 {
		if err = r.readRaw(buf); err != nil {
			log.Warning(ctx, "failed to read uncompressed index.", map[string]interface{}{
				log.KeyError: err,
			})
			return 0, err
		}
	} else {
		if err = r.decompressor.Start(
			file.LimitReader(r.file, indexByteSize), fileformat.CompressionZstd,
		); err != nil {
			return 0, err
		}
		n, err2 := r.decompressor.ReadAvailable(buf, fileformat.CompressionZstd)
		if err2 != nil {
			return 0, err2
		}
		if int64(n) < sizeToRead {
			log.Warning(ctx, "failed to read all compressed index records.",
				map[string]interface{}{
					"missing_count": (sizeToRead - int64(n)) / DiskRecordInfoSize,
					"total_count":   maxInfoCount,
				})
			r.indexComplete = false
			buf = buf[:n-n%DiskRecordInfoSize]
		}
	}
	entries := unmarshalDiskInfos(buf)
	r.index = make([]record.Info, 0, len(entries))
	recordHeaderSize := r.fileHeader.RecordHeaderSize
	for i := range entries {
		entry := &entries[i]
		if entry.RecordSize < recordHeaderSize || !entry.Type().IsValid() {
			log.Error(ctx, "unexpected index record entry.", map[string]interface{}{
				"stream_id": entry.StreamID.StreamID().NumericName(),
				"type":      entry.RecordType,
				"size":      entry.RecordSize,
				"timestamp": entry.Timestamp,
			})
			return 0, vrserrors.ErrIndexRecord
		}
		followingRecordOffset := usedFileSize + int64(entry.RecordSize)
		if r.droppedCount > 0 || followingRecordOffset > r.totalFileSize {
			r.droppedCount++
			continue
		}
		id := entry.StreamID.StreamID()
		r.appendIndexEntry(record.Info{
			Timestamp:  entry.Timestamp,
			FileOffset: usedFileSize,
			StreamID:   id,
			Type:       entry.Type(),
		})
		if r.diskIndex != nil {
			r.diskIndex = append(r.diskIndex, *entry)
		}
		r.streamIDs[id] = struct{}{}
		usedFileSize = followingRecordOffset
	}
	return usedFileSize, nil
}

func (r *Reader) appendIndexEntry(info record.Info) {
	r.index = append(r.index, info)
	if n := len(r.index); n > 1 && r.index[n-1].Less(&r.index[n-2]) {
		r.sortErrorCount++
	}
}

func (r *Reader) readUint32() (uint32, error) {
	var buf [4]byte
	if err := r.file.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readRaw reads uncompressed index data in slices, polling for cancellation.
func (r *Reader) readRaw(buf []byte) error {
	total := len(buf)
	completed := 0
	for completed < total {
		n := total - completed
		if n > readChunkSize {
			n = readChunkSize
		}
		if err := r.file.Read(buf[completed : completed+n]); err != nil {
			return err
		}
		completed += n
		r.progress.LogProgress("Reading index", completed*100/total)
		if !r.progress.KeepGoing() {
			return vrserrors.ErrOperationCancelled
		}
	}
	return nil
}

func sortIndex(index []record.Info) {
	sort.SliceStable(index, func(i, j int) bool { return index[i].Less(&index[j]) })
}
