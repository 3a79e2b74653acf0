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
	"time"

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/compression"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/vrserrors"
)

// RebuildIndex reconstructs the index by scanning every record header from
// the first user record, following the record size chain. The scan stops at
// the first header that fails validation, keeping the records found so far.
// With writeFixedIndex, the rebuilt index is patched back into the file when
// the underlying store can be reopened for updates.
func (r *Reader) RebuildIndex(ctx context.Context, writeFixedIndex bool) error {
	var writeFile file.WriteHandler
	if writeFixedIndex {
		wf, ok := r.file.(file.WriteHandler)
		if !ok {
			log.Warning(ctx, "file modifications not supported by this store.", nil)
			writeFixedIndex = false
		} else {
			writeFile = wf
		}
	}
	start := time.Now()
	fileHeaderSize := int64(r.fileHeader.FileHeaderSize)
	if fileHeaderSize < fileformat.FileHeaderSize {
		log.Error(ctx, "reindexing: file header too small.", nil)
		return vrserrors.ErrReindexing
	}
	recordHeaderSize := r.fileHeader.RecordHeaderSize
	if recordHeaderSize < fileformat.RecordHeaderSize {
		log.Error(ctx, "reindexing: record header too small.", nil)
		return vrserrors.ErrReindexing
	}
	// Scan from the first record header, just past the file header.
	absolutePosition := fileHeaderSize
	if err := r.file.SetPos(absolutePosition); err != nil {
		return err
	}
	if r.hasSplitHeadChunk {
		// User records start at the second chunk.
		chunkStart, chunkSize, err := r.file.ChunkRange(r.file.Pos())
		if err != nil || chunkSize <= 0 || chunkStart != 0 {
			return vrserrors.ErrReindexing
		}
		absolutePosition = chunkSize
		if err = r.file.SetPos(absolutePosition); err != nil {
			return err
		}
	}
	r.streamIDs = make(map[record.StreamID]struct{})
	r.index = nil
	r.sortErrorCount = 0
	if writeFixedIndex {
		r.diskIndex = make([]DiskRecordInfo, 0, 10000)
	} else {
		r.diskIndex = nil
	}

	r.progress.LogNewStep("Reindexing")
	var previousRecordSize uint32
	distrustLastRecord := false
	var scanErr error
	var recordHeader *fileformat.RecordHeader
	for {
		var err error
		recordHeader, err = r.readRecordHeader()
		if err != nil {
			if r.file.IsEOF() {
				log.Info(ctx, "reindexing: end of file.", map[string]interface{}{
					"record_count": len(r.index),
				})
				break
			}
			log.Warning(ctx, "reindexing: can't read record header.", map[string]interface{}{
				"record_count": len(r.index),
				log.KeyError:   err,
			})
			scanErr = vrserrors.ErrReindexing
			break
		}
		if recordHeader.PreviousRecordSize != previousRecordSize &&
			!(r.hasSplitHeadChunk && len(r.index) == 0) {
			log.Warning(ctx, "reindexing: previous record size mismatch.",
				map[string]interface{}{
					"record_count": len(r.index),
					"found":        recordHeader.PreviousRecordSize,
					"expected":     previousRecordSize,
				})
			distrustLastRecord = true
			scanErr = vrserrors.ErrReindexing
			break
		}
		recordSize := recordHeader.RecordSize
		if recordSize < recordHeaderSize {
			log.Warning(ctx, "reindexing: record too small.", map[string]interface{}{
				"record_count": len(r.index),
				"record_size":  recordSize,
			})
			distrustLastRecord = true
			scanErr = vrserrors.ErrReindexing
			break
		}
		if !recordHeader.SanityCheckOk() {
			log.Warning(ctx, "reindexing: record header sanity check failed.",
				map[string]interface{}{
					"record_count": len(r.index),
				})
			scanErr = vrserrors.ErrReindexing
			break
		}
		streamType := record.StreamType(recordHeader.StreamType)
		dataSize := recordSize - recordHeaderSize
		if streamType == record.StreamTypeIndex &&
			recordHeader.FormatVersion == SplitFormatVersion {
			// A split index found mid-scan can vouch for the records it
			// already covers, so the scan may fast-forward past them.
			fileSizeUsed, _ := r.readSplitIndexRecord(
				ctx, 0, int64(recordHeader.UncompressedSize))
			if len(r.index) > 0 {
				log.Warning(ctx, "found records in the split index.", map[string]interface{}{
					"record_count": len(r.index),
				})
				absolutePosition = fileSizeUsed
				previousRecordSize =
					uint32(absolutePosition - r.index[len(r.index)-1].FileOffset)
			} else {
				// Reading the split index failed, reindex from scratch.
				r.streamIDs = make(map[record.StreamID]struct{})
				r.index = nil
				if fileSizeUsed > 0 {
					absolutePosition = fileSizeUsed
				} else {
					absolutePosition += int64(recordSize)
				}
				previousRecordSize = recordHeaderSize
			}
			if err = r.file.SetPos(absolutePosition); err != nil {
				scanErr = err
				break
			}
			continue
		} else if dataSize > 0 {
			if absolutePosition+int64(recordSize) > r.totalFileSize {
				log.Warning(ctx, "reindexing: record truncated.", map[string]interface{}{
					"record_count":  len(r.index),
					"missing_bytes": absolutePosition + int64(recordSize) - r.totalFileSize,
					"record_size":   recordSize,
				})
				scanErr = vrserrors.ErrReindexing
				break
			}
			if err = r.file.Skip(int64(dataSize)); err != nil {
				log.Warning(ctx, "reindexing: can't skip record data.", map[string]interface{}{
					"record_count": len(r.index),
					"data_size":    dataSize,
					log.KeyError:   err,
				})
				scanErr = err
				break
			}
		}
		if streamType != record.StreamTypeIndex && streamType != record.StreamTypeDescription {
			// The record was read or skipped whole, so as far as we can
			// tell it is good, index it.
			recordType := recordHeader.GetRecordType()
			if !recordType.IsValid() {
				log.Warning(ctx, "reindexing: invalid record type.", map[string]interface{}{
					"record_count": len(r.index),
					"record_type":  recordHeader.RecordType,
				})
				distrustLastRecord = true
				scanErr = vrserrors.ErrReindexing
				break
			}
			id := recordHeader.StreamID()
			r.streamIDs[id] = struct{}{}
			r.appendIndexEntry(record.Info{
				Timestamp:  recordHeader.Timestamp,
				FileOffset: absolutePosition,
				StreamID:   id,
				Type:       recordType,
			})
			if r.diskIndex != nil {
				r.diskIndex = append(r.diskIndex,
					NewDiskRecordInfo(recordHeader.Timestamp, recordSize, id, recordType))
			}
		}
		absolutePosition += int64(recordSize)
		previousRecordSize = recordSize

		if r.totalFileSize > 0 {
			r.progress.LogProgress("Reindexing",
				int(absolutePosition*100/r.totalFileSize))
		}
		if !r.progress.KeepGoing() {
			return vrserrors.ErrOperationCancelled
		}
	}
	if (scanErr != nil || distrustLastRecord) && recordHeader != nil {
		log.Info(ctx, "reindexing stopped at a suspect record header.",
			map[string]interface{}{
				"record_count":         len(r.index),
				"record_size":          recordHeader.RecordSize,
				"previous_record_size": recordHeader.PreviousRecordSize,
				"compression_type":     recordHeader.Compression,
				"uncompressed_size":    recordHeader.UncompressedSize,
				"timestamp":            recordHeader.Timestamp,
				"stream_id":            recordHeader.StreamID().NumericName(),
				"record_type":          recordHeader.RecordType,
				"format_version":       recordHeader.FormatVersion,
			})
	}
	if distrustLastRecord && len(r.index) > 0 {
		log.Warning(ctx, "reindexing: discarding last record, because it's suspicious.",
			map[string]interface{}{
				"record_count": len(r.index),
			})
		if r.diskIndex != nil && len(r.diskIndex) == len(r.index) {
			r.diskIndex = r.diskIndex[:len(r.diskIndex)-1]
		}
		r.index = r.index[:len(r.index)-1]
		absolutePosition -= int64(previousRecordSize)
	}
	sortIndex(r.index)
	log.Info(ctx, "indexing complete.", map[string]interface{}{
		"duration":     time.Since(start).String(),
		"record_count": len(r.index),
		"stream_count": len(r.streamIDs),
	})
	if !writeFixedIndex {
		_ = r.file.ForgetFurtherChunks(absolutePosition)
		return scanErr
	}
	if err := r.patchIndex(ctx, writeFile, absolutePosition, previousRecordSize); err != nil {
		log.Error(ctx,
			"file index reconstruction failed: the file is probably in a bad shape.",
			map[string]interface{}{
				log.KeyError: err,
			})
		return err
	}
	return scanErr
}

// patchIndex writes the rebuilt index back into the file, in place of the
// head index for split files, appended after the last verified record
// otherwise.
func (r *Reader) patchIndex(
	ctx context.Context, writeFile file.WriteHandler,
	absolutePosition int64, previousRecordSize uint32,
) error {
	if err := writeFile.ReopenForUpdates(); err != nil {
		return err
	}
	compressor := compression.NewCompressor()
	defer compressor.Close()
	if r.hasSplitHeadChunk {
		// Rewrite the index body in the first chunk and update both headers.
		if err := writeFile.SetPos(r.fileHeader.IndexRecordOffset); err != nil {
			return err
		}
		recordHeader, err := r.readRecordHeader()
		if err != nil {
			return err
		}
		if record.StreamType(recordHeader.StreamType) != record.StreamTypeIndex {
			return vrserrors.ErrReindexing
		}
		if err = writeFile.SetPos(r.fileHeader.IndexRecordOffset); err != nil {
			return err
		}
		headerBuf := make([]byte, fileformat.RecordHeaderSize)
		recordHeader.MarshalTo(headerBuf)
		if err = writeFile.Write(headerBuf); err != nil {
			return err
		}
		writtenIndexSize, err := writeDiskInfos(
			writeFile, r.diskIndex, compressor, defaultCompression, 0)
		if err != nil {
			return err
		}
		if err = writeFile.Truncate(writeFile.Pos()); err != nil {
			return err
		}
		r.fileHeader.FirstUserRecordOffset = writeFile.Pos()
		if err = overwriteFileHeader(writeFile, r.fileHeader); err != nil {
			return err
		}
		recordHeader.Compression = fileformat.CompressionZstd
		recordHeader.RecordSize = fileformat.RecordHeaderSize + writtenIndexSize
		recordHeader.UncompressedSize = uint32(len(r.index) * DiskRecordInfoSize)
		if err = writeFile.SetPos(r.fileHeader.IndexRecordOffset); err != nil {
			return err
		}
		recordHeader.MarshalTo(headerBuf)
		if err = writeFile.Write(headerBuf); err != nil {
			return err
		}
		log.Info(ctx, "successfully updated the split index.", map[string]interface{}{
			"record_count": len(r.diskIndex),
		})
		return nil
	}
	// absolutePosition is the first byte after the last verified record.
	// The index record goes there, whatever was past it is cut off.
	if err := writeFile.SetPos(absolutePosition); err != nil {
		return err
	}
	if _, err := writeClassicIndexRecord(
		writeFile, r.StreamIDs(), r.diskIndex, previousRecordSize,
		compressor, defaultCompression, 0,
	); err != nil {
		return err
	}
	if err := writeFile.Truncate(writeFile.Pos()); err != nil {
		return err
	}
	r.fileHeader.IndexRecordOffset = absolutePosition
	if err := overwriteFileHeader(writeFile, r.fileHeader); err != nil {
		return err
	}
	log.Info(ctx, "successfully created an index.", map[string]interface{}{
		"record_count": len(r.diskIndex),
	})
	return nil
}
