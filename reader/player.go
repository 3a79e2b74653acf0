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

// Package reader opens record files and plays their records back to stream
// players: the index is loaded (or rebuilt) when the file is opened, then
// records are read on demand and handed to the player attached to their
// stream.
package reader

import (
	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/record"
)

// CurrentRecord describes the record being read while its payload is still
// pending. Reader gives access to the payload, already decompressed; it is
// only valid during the two player callbacks.
type CurrentRecord struct {
	Timestamp     float64
	StreamID      record.StreamID
	RecordType    record.Type
	FormatVersion uint32
	// RecordSize is the payload size after decompression.
	RecordSize uint32

	Reader     file.RecordReader
	RecordInfo *record.Info
	FileReader *RecordFileReader
}

// StreamPlayer receives the records of a stream, in two phases per record:
// ProcessRecordHeader decides whether the payload is wanted, and may point
// ref at buffers to preload; ProcessRecord is then called with the payload
// available through rec.Reader, readSize telling how much ref preloaded.
type StreamPlayer interface {
	ProcessRecordHeader(rec *CurrentRecord, ref *file.DataReference) bool
	ProcessRecord(rec *CurrentRecord, readSize uint32)

	// OnAttachedToFileReader runs once when the player is connected to a
	// stream, before any record is read.
	OnAttachedToFileReader(r *RecordFileReader, id record.StreamID)
	// RecordReadComplete runs after each record, wanted or not.
	RecordReadComplete(rec *CurrentRecord)
}

// BasePlayer is a no-op StreamPlayer meant to be embedded, so players only
// implement the callbacks they care about.
type BasePlayer struct{}

var _ StreamPlayer = (*BasePlayer)(nil)

func (*BasePlayer) ProcessRecordHeader(*CurrentRecord, *file.DataReference) bool { return false }

func (*BasePlayer) ProcessRecord(*CurrentRecord, uint32) {}

func (*BasePlayer) OnAttachedToFileReader(*RecordFileReader, record.StreamID) {}

func (*BasePlayer) RecordReadComplete(*CurrentRecord) {}

// skipBlock discards size payload bytes of the current record, so the next
// content block lines up. Logs and reports read failures.
func skipBlock(rec *CurrentRecord, size uint32) bool {
	if size == 0 {
		return true
	}
	buf := make([]byte, size)
	if err := rec.Reader.Read(buf); err != nil {
		log.Warning(nil, "failed to skip a content block", map[string]interface{}{
			"streamID":    rec.StreamID.String(),
			"blockSize":   size,
			log.KeyError:  err,
		})
		return false
	}
	return true
}
