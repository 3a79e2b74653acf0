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
	"github.com/linkall-labs/vrs/vrserrors"
)

// maxBatchSize bounds how many entries go in one compressed frame of a
// split index, and how many are serialized at once for a classic one.
const maxBatchSize = 100000

const defaultCompression = compression.PresetDefault

// compressionLevels is the escalation ladder used when a preallocated index
// record turns out too small for the actual index.
var compressionLevels = [...]compression.Preset{
	compression.PresetNone,
	compression.PresetZstdHigh,
	compression.PresetZstdTight,
}

// Compression cannot pay off under this entry count.
func firstCompressionPresetIndex(recordCount int) int {
	const minCompressionIndexSize = 100
	if recordCount < minCompressionIndexSize {
		return 0
	}
	return 1
}

// writeDiskInfos writes the index entries to file, compressed into a single
// frame unless preset is none. maxWriteSize, when positive, bounds the bytes
// written, overflowing it yields ErrTooMuchData.
func writeDiskInfos(
	w file.WriteHandler, records []DiskRecordInfo,
	compressor *compression.Compressor, preset compression.Preset, maxWriteSize int64,
) (uint32, error) {
	if preset != compression.PresetNone {
		frame, err := compressor.CompressFrame(nil, marshalDiskInfos(records), preset)
		if err != nil {
			return 0, err
		}
		if maxWriteSize > 0 && int64(len(frame)) > maxWriteSize {
			return 0, vrserrors.ErrTooMuchData
		}
		if err = w.Write(frame); err != nil {
			return 0, err
		}
		return uint32(len(frame)), nil
	}
	var written uint32
	for len(records) > 0 {
		batch := records
		if len(batch) > maxBatchSize {
			batch = batch[:maxBatchSize]
		}
		buf := marshalDiskInfos(batch)
		if maxWriteSize > 0 && int64(written)+int64(len(buf)) > maxWriteSize {
			return written, vrserrors.ErrTooMuchData
		}
		if err := w.Write(buf); err != nil {
			return written, err
		}
		written += uint32(len(buf))
		records = records[len(batch):]
	}
	return written, nil
}

// writeClassicIndexRecord writes a complete classic index record at the
// file's current position. lastRecordSize is the size of the record written
// before the index record, and the index record's own size is returned for
// the same purpose. preallocatedByteSize, when positive, is the fixed size
// the record must fit in.
func writeClassicIndexRecord(
	w file.WriteHandler, streamIDs []record.StreamID, records []DiskRecordInfo,
	lastRecordSize uint32, compressor *compression.Compressor,
	preset compression.Preset, preallocatedByteSize uint32,
) (uint32, error) {
	indexRecordOffset := w.Pos()
	preludeSize := uint32(4 + len(streamIDs)*DiskStreamIDSize + 4)
	if preallocatedByteSize > 0 && preallocatedByteSize < preludeSize {
		return 0, vrserrors.ErrTooMuchData
	}
	uncompressedSize := preludeSize + uint32(len(records)*DiskRecordInfoSize)
	var recordHeader fileformat.RecordHeader
	recordHeader.InitIndexHeader(
		ClassicFormatVersion, uncompressedSize, lastRecordSize, fileformat.CompressionNone)
	if preallocatedByteSize > 0 {
		// A preallocated record keeps its reserved size whatever it holds.
		recordHeader.RecordSize = preallocatedByteSize
	}
	// When compressing, the actual size is only known after writing, and the
	// header is rewritten below.
	headerBuf := make([]byte, fileformat.RecordHeaderSize)
	recordHeader.MarshalTo(headerBuf)
	if err := w.Write(headerBuf); err != nil {
		return 0, err
	}

	prelude := make([]byte, preludeSize)
	binary.LittleEndian.PutUint32(prelude[0:], uint32(len(streamIDs)))
	for i, id := range streamIDs {
		NewDiskStreamID(id).MarshalTo(prelude[4+i*DiskStreamIDSize:])
	}
	binary.LittleEndian.PutUint32(prelude[preludeSize-4:], uint32(len(records)))
	if err := w.Write(prelude); err != nil {
		return 0, err
	}

	var maxWriteSize int64
	if preallocatedByteSize > 0 {
		maxWriteSize = int64(preallocatedByteSize) - fileformat.RecordHeaderSize -
			int64(preludeSize)
	}
	writtenBytes, err := writeDiskInfos(w, records, compressor, preset, maxWriteSize)
	if err != nil {
		return 0, err
	}

	if preset != compression.PresetNone {
		// Rewrite the index record's header with the actual sizes.
		nextRecordOffset := w.Pos()
		recordHeader.InitIndexHeader(
			ClassicFormatVersion, preludeSize+writtenBytes, lastRecordSize,
			fileformat.CompressionZstd)
		if preallocatedByteSize > 0 {
			recordHeader.RecordSize = preallocatedByteSize
		}
		recordHeader.UncompressedSize = uncompressedSize
		recordHeader.MarshalTo(headerBuf)
		if err = w.SetPos(indexRecordOffset); err != nil {
			return 0, err
		}
		if err = w.Write(headerBuf); err != nil {
			return 0, err
		}
		if err = w.SetPos(nextRecordOffset); err != nil {
			return 0, err
		}
	}
	return recordHeader.RecordSize, nil
}

// Writer accumulates index entries while a file is being written, and
// persists them as a classic or split index record.
type Writer struct {
	fileHeader *fileformat.FileHeader

	// splitHeadFile is set when the file's head lives in its own chunk,
	// holding the growing split index.
	splitHeadFile          *file.DiskFile
	splitIndexRecordHeader fileformat.RecordHeader

	preallocatedIndexRecordSize uint32

	compressor     *compression.Compressor
	streamIDs      map[record.StreamID]struct{}
	writtenRecords []DiskRecordInfo

	// Cumulative counters of the partial split index already on disk.
	writtenBytesCount int64
	writtenIndexCount int
}

func NewWriter(fileHeader *fileformat.FileHeader) *Writer {
	return &Writer{
		fileHeader: fileHeader,
		compressor: compression.NewCompressor(),
		streamIDs:  make(map[record.StreamID]struct{}),
	}
}

func (w *Writer) Reset() {
	w.streamIDs = make(map[record.StreamID]struct{})
	w.writtenRecords = nil
	w.writtenBytesCount = 0
	w.writtenIndexCount = 0
	w.splitHeadFile = nil
}

// InitSplitHead attaches the head chunk file the split index is written to.
func (w *Writer) InitSplitHead(head *file.DiskFile) {
	w.splitHeadFile = head
}

func (w *Writer) SplitHead() *file.DiskFile {
	return w.splitHeadFile
}

func (w *Writer) AddStream(id record.StreamID) {
	w.streamIDs[id] = struct{}{}
}

// AddRecord registers a written record, flushing a split index batch when
// enough entries accumulated.
func (w *Writer) AddRecord(timestamp float64, size uint32, id record.StreamID, t record.Type) error {
	w.writtenRecords = append(w.writtenRecords, NewDiskRecordInfo(timestamp, size, id, t))
	if w.splitHeadFile != nil && len(w.writtenRecords) >= maxBatchSize {
		return w.appendToSplitIndexRecord()
	}
	return nil
}

func (w *Writer) sortedStreamIDs() []record.StreamID {
	ids := make([]record.StreamID, 0, len(w.streamIDs))
	for id := range w.streamIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// PreallocateClassicIndexRecord writes a classic index record from a
// preliminary index, reserving room to rewrite the final index in place when
// the file is complete.
func (w *Writer) PreallocateClassicIndexRecord(
	f file.WriteHandler, preliminaryIndex []DiskRecordInfo, lastRecordSize uint32,
) (uint32, error) {
	indexRecordOffset := f.Pos()
	w.fileHeader.EnableFrontIndexSupport()
	preset := compressionLevels[firstCompressionPresetIndex(len(preliminaryIndex))]
	newLastRecordSize, err := writeClassicIndexRecord(
		f, w.sortedStreamIDs(), preliminaryIndex, lastRecordSize, w.compressor, preset, 0)
	if err != nil {
		return 0, err
	}
	w.preallocatedIndexRecordSize = newLastRecordSize
	// Rewrite the file header immediately, in case writing is interrupted.
	w.fileHeader.FirstUserRecordOffset = f.Pos()
	if err = overwriteFileHeader(f, w.fileHeader); err != nil {
		return 0, err
	}
	if err = f.SetPos(w.fileHeader.FirstUserRecordOffset); err != nil {
		return 0, err
	}
	// The index record offset is kept in memory only until finalization.
	w.fileHeader.IndexRecordOffset = indexRecordOffset
	return newLastRecordSize, nil
}

// UseClassicIndexRecord forgets any preallocation, the index record will be
// appended at the end of the file.
func (w *Writer) UseClassicIndexRecord() {
	w.preallocatedIndexRecordSize = 0
}

// FinalizeClassicIndexRecord writes the definitive classic index record,
// reusing the preallocated room when possible, and updates the file header.
func (w *Writer) FinalizeClassicIndexRecord(
	ctx context.Context, f file.WriteHandler, endOfRecordsOffset int64, lastRecordSize uint32,
) (uint32, error) {
	indexRecordWritten := false
	var outLastRecordSize uint32
	descriptionToIndex :=
		w.fileHeader.IndexRecordOffset - w.fileHeader.DescriptionRecordOffset
	if w.preallocatedIndexRecordSize > 0 && descriptionToIndex > 0 {
		// The preliminary index is an approximation, so the reserved room may
		// turn out too small. Tighter presets are tried in turn, iterating is
		// fine since preallocation only happens for copy operations.
		for retry := firstCompressionPresetIndex(len(w.writtenRecords)); retry < len(compressionLevels); retry++ {
			if f.SetPos(w.fileHeader.IndexRecordOffset) != nil {
				break
			}
			size, err := writeClassicIndexRecord(
				f, w.sortedStreamIDs(), w.writtenRecords, uint32(descriptionToIndex),
				w.compressor, compressionLevels[retry], w.preallocatedIndexRecordSize)
			if err == nil {
				indexRecordWritten = true
				outLastRecordSize = size
				break
			}
			if err != vrserrors.ErrTooMuchData {
				log.Error(ctx, "failed to write preallocated index record.",
					map[string]interface{}{
						log.KeyError: err,
					})
				return 0, err
			}
		}
	}
	if !indexRecordWritten {
		if err := f.SetPos(endOfRecordsOffset); err != nil {
			return 0, err
		}
		w.fileHeader.IndexRecordOffset = endOfRecordsOffset
		size, err := writeClassicIndexRecord(
			f, w.sortedStreamIDs(), w.writtenRecords, lastRecordSize,
			w.compressor, defaultCompression, 0)
		if err != nil {
			return 0, err
		}
		outLastRecordSize = size
	}
	if err := overwriteFileHeader(f, w.fileHeader); err != nil {
		return 0, err
	}
	return outLastRecordSize, nil
}

// CreateSplitIndexRecord writes the header of the head-located index record,
// whose body will be appended while records are written.
func (w *Writer) CreateSplitIndexRecord(lastRecordSize uint32) (uint32, error) {
	f := w.splitHeadFile
	startOfIndex := f.Pos()
	w.splitIndexRecordHeader = fileformat.RecordHeader{}
	w.splitIndexRecordHeader.InitIndexHeader(
		SplitFormatVersion, 0, lastRecordSize, fileformat.CompressionZstd)
	headerBuf := make([]byte, fileformat.RecordHeaderSize)
	w.splitIndexRecordHeader.MarshalTo(headerBuf)
	if err := f.Write(headerBuf); err != nil {
		return 0, err
	}
	w.fileHeader.IndexRecordOffset = startOfIndex
	if err := overwriteFileHeader(f, w.fileHeader); err != nil {
		return 0, err
	}
	if err := f.SetPos(startOfIndex + fileformat.RecordHeaderSize); err != nil {
		return 0, err
	}
	return w.splitIndexRecordHeader.RecordSize, nil
}

func (w *Writer) appendToSplitIndexRecord() error {
	written, err := writeDiskInfos(
		w.splitHeadFile, w.writtenRecords, w.compressor, defaultCompression, 0)
	if err != nil {
		return err
	}
	w.writtenBytesCount += int64(written)
	w.writtenIndexCount += len(w.writtenRecords)
	w.writtenRecords = w.writtenRecords[:0]
	return nil
}

func (w *Writer) completeSplitIndexRecord(ctx context.Context) error {
	f := w.splitHeadFile
	offset := f.Pos()
	if len(w.writtenRecords) > 0 {
		if err := w.appendToSplitIndexRecord(); err != nil {
			log.Warning(ctx, "failed to write index details.", map[string]interface{}{
				log.KeyError: err,
			})
			if offset > 0 {
				// Cut back what was just written, the file may still be
				// recoverable by reindexing.
				if f.SetPos(offset) == nil && f.Truncate(offset) == nil {
					log.Warning(ctx,
						"truncated the file head, the file should be recoverable.", nil)
				} else {
					log.Error(ctx,
						"could not truncate the file head, the file is likely lost.", nil)
				}
			}
			return err
		}
	}
	// The index body is complete, its final size can go in the record header
	// and the first user record's offset in the file header.
	endOfIndexOffset := f.Pos()
	w.splitIndexRecordHeader.RecordSize =
		fileformat.RecordHeaderSize + uint32(w.writtenBytesCount)
	if w.splitIndexRecordHeader.Compression != fileformat.CompressionNone {
		w.splitIndexRecordHeader.UncompressedSize =
			uint32(w.writtenIndexCount * DiskRecordInfoSize)
	}
	if err := f.SetPos(w.fileHeader.IndexRecordOffset); err != nil {
		return err
	}
	headerBuf := make([]byte, fileformat.RecordHeaderSize)
	w.splitIndexRecordHeader.MarshalTo(headerBuf)
	if err := f.Write(headerBuf); err != nil {
		return err
	}
	if endOfIndexOffset <= 0 {
		return vrserrors.ErrIndexRecord
	}
	w.fileHeader.FirstUserRecordOffset = endOfIndexOffset
	return overwriteFileHeader(f, w.fileHeader)
}

// FinalizeSplitIndexRecord flushes the remaining entries and closes the head
// chunk file.
func (w *Writer) FinalizeSplitIndexRecord(ctx context.Context) error {
	finalizeErr := w.completeSplitIndexRecord(ctx)
	closeErr := w.splitHeadFile.Close()
	if closeErr != nil {
		log.Warning(ctx, "split head file closed with error.", map[string]interface{}{
			log.KeyError: closeErr,
		})
	}
	if finalizeErr != nil {
		return finalizeErr
	}
	return closeErr
}

func (w *Writer) Close() {
	w.compressor.Close()
}

func overwriteFileHeader(f file.WriteHandler, h *fileformat.FileHeader) error {
	pos := f.Pos()
	if err := f.SetPos(0); err != nil {
		return err
	}
	buf := make([]byte, fileformat.FileHeaderSize)
	h.MarshalTo(buf)
	if err := f.Write(buf); err != nil {
		return err
	}
	return f.SetPos(pos)
}
