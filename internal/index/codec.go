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

// Package index reads and writes the index record of a record file, and
// rebuilds it from the data records when it is missing or damaged.
package index

import (
	// standard libraries.
	"encoding/binary"
	"math"

	// this project.
	"github.com/linkall-labs/vrs/internal/record"
)

const (
	// ClassicFormatVersion marks a single index record holding the whole
	// index, written when the file is closed.
	ClassicFormatVersion = 2
	// SplitFormatVersion marks a head-located index record grown
	// incrementally while records are written.
	SplitFormatVersion = 3
)

const (
	// DiskStreamIDSize is the packed size of DiskStreamID.
	DiskStreamIDSize = 6
	// DiskRecordInfoSize is the packed size of DiskRecordInfo.
	DiskRecordInfoSize = 19
)

// DiskStreamID is the packed form of a stream id in index data.
// The stream type is stored as a signed 32-bit value for compatibility with
// files written by older tools.
type DiskStreamID struct {
	TypeID     int32
	InstanceID uint16
}

func NewDiskStreamID(id record.StreamID) DiskStreamID {
	return DiskStreamID{TypeID: int32(id.Type), InstanceID: id.Instance}
}

func (d DiskStreamID) StreamID() record.StreamID {
	t := d.TypeID
	if t < 0 || t > int32(record.StreamTypeUndefined) {
		t = int32(record.StreamTypeUndefined)
	}
	return record.NewStreamID(record.StreamType(t), d.InstanceID)
}

func (d DiskStreamID) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(d.TypeID))
	binary.LittleEndian.PutUint16(buf[4:], d.InstanceID)
}

func (d *DiskStreamID) Unmarshal(buf []byte) {
	d.TypeID = int32(binary.LittleEndian.Uint32(buf[0:]))
	d.InstanceID = binary.LittleEndian.Uint16(buf[4:])
}

// DiskRecordInfo is one index entry as stored in index data. Entries carry
// record sizes rather than offsets, offsets are recomputed by walking the
// entries from the first user record.
type DiskRecordInfo struct {
	Timestamp  float64
	RecordSize uint32
	RecordType uint8
	StreamID   DiskStreamID
}

func NewDiskRecordInfo(
	timestamp float64, recordSize uint32, id record.StreamID, t record.Type,
) DiskRecordInfo {
	return DiskRecordInfo{
		Timestamp:  timestamp,
		RecordSize: recordSize,
		RecordType: uint8(t),
		StreamID:   NewDiskStreamID(id),
	}
}

func (d DiskRecordInfo) Type() record.Type {
	return record.Type(d.RecordType)
}

func (d DiskRecordInfo) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(d.Timestamp))
	binary.LittleEndian.PutUint32(buf[8:], d.RecordSize)
	buf[12] = d.RecordType
	d.StreamID.MarshalTo(buf[13:])
}

func (d *DiskRecordInfo) Unmarshal(buf []byte) {
	d.Timestamp = math.Float64frombits(binary.LittleEndian.Uint64(buf[0:]))
	d.RecordSize = binary.LittleEndian.Uint32(buf[8:])
	d.RecordType = buf[12]
	d.StreamID.Unmarshal(buf[13:])
}

func marshalDiskInfos(records []DiskRecordInfo) []byte {
	buf := make([]byte, len(records)*DiskRecordInfoSize)
	for i := range records {
		records[i].MarshalTo(buf[i*DiskRecordInfoSize:])
	}
	return buf
}

func unmarshalDiskInfos(buf []byte) []DiskRecordInfo {
	records := make([]DiskRecordInfo, len(buf)/DiskRecordInfoSize)
	for i := range records {
		records[i].Unmarshal(buf[i*DiskRecordInfoSize:])
	}
	return records
}
