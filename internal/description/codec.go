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

package description

import (
	// standard libraries.
	"bytes"
	"encoding/binary"

	// this project.
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/index"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/vrserrors"
)

// Wire format of a description record, current version:
//
//	u32 streamCount
//	streamCount times:
//	  DiskStreamID id
//	  u32 userTagCount, then userTagCount (string name, string value) pairs
//	  u32 vrsTagCount, then vrsTagCount (string name, string value) pairs
//	u32 fileTagCount, then fileTagCount (string name, string value) pairs
//
// Strings are u32 length followed by raw bytes. The legacy version stored
// per-stream json descriptions and a json file tag blob instead.

func writeString(buf *bytes.Buffer, s string) {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(s)))
	buf.Write(size[:])
	buf.WriteString(s)
}

func writeCount(buf *bytes.Buffer, n int) {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(n))
	buf.Write(size[:])
}

func writeTagMap(buf *bytes.Buffer, tags map[string]string) {
	writeCount(buf, len(tags))
	for _, name := range sortedKeys(tags) {
		writeString(buf, name)
		writeString(buf, tags[name])
	}
}

// WriteRecord writes a description record at the file's current position and
// returns its size.
func WriteRecord(
	f file.WriteHandler,
	streamTags map[record.StreamID]*StreamTags,
	fileTags map[string]string,
	previousRecordSize uint32,
) (uint32, error) {
	var payload bytes.Buffer
	writeCount(&payload, len(streamTags))
	var idBuf [index.DiskStreamIDSize]byte
	for _, id := range SortedStreamIDs(streamTags) {
		index.NewDiskStreamID(id).MarshalTo(idBuf[:])
		payload.Write(idBuf[:])
		writeTagMap(&payload, streamTags[id].User)
		writeTagMap(&payload, streamTags[id].VRS)
	}
	writeTagMap(&payload, fileTags)

	recordSize := uint32(fileformat.RecordHeaderSize + payload.Len())
	var recordHeader fileformat.RecordHeader
	recordHeader.InitDescriptionHeader(FormatVersion, recordSize, previousRecordSize)
	headerBuf := make([]byte, fileformat.RecordHeaderSize)
	recordHeader.MarshalTo(headerBuf)
	if err := f.Write(headerBuf); err != nil {
		return 0, err
	}
	if err := f.Write(payload.Bytes()); err != nil {
		return 0, err
	}
	return recordSize, nil
}

// descriptionReader tracks how much record data is left while decoding, so a
// corrupt length field cannot read past the record.
type descriptionReader struct {
	file     file.Handler
	sizeLeft uint32
}

func (r *descriptionReader) readCount() (uint32, error) {
	var buf [4]byte
	if r.sizeLeft < 4 {
		return 0, vrserrors.ErrNotEnoughData
	}
	if err := r.file.Read(buf[:]); err != nil {
		return 0, err
	}
	r.sizeLeft -= 4
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (r *descriptionReader) readString() (string, error) {
	charCount, err := r.readCount()
	if err != nil {
		return "", err
	}
	if r.sizeLeft < charCount {
		return "", vrserrors.ErrNotEnoughData
	}
	r.sizeLeft -= charCount
	if charCount == 0 {
		return "", nil
	}
	buf := make([]byte, charCount)
	if err = r.file.Read(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *descriptionReader) readStreamID() (record.StreamID, error) {
	var buf [index.DiskStreamIDSize]byte
	if r.sizeLeft < index.DiskStreamIDSize {
		return record.UndefinedStreamID, vrserrors.ErrNotEnoughData
	}
	if err := r.file.Read(buf[:]); err != nil {
		return record.UndefinedStreamID, err
	}
	r.sizeLeft -= index.DiskStreamIDSize
	var id index.DiskStreamID
	id.Unmarshal(buf[:])
	return id.StreamID(), nil
}

func (r *descriptionReader) readTagMap(tags map[string]string) error {
	count, err := r.readCount()
	if err != nil {
		return err
	}
	for ; count > 0; count-- {
		name, err := r.readString()
		if err != nil {
			return err
		}
		value, err := r.readString()
		if err != nil {
			return err
		}
		tags[name] = value
	}
	return nil
}

// ReadRecord reads the description record at the file's current position.
// It returns the record's size, so the caller can skip it, along with the
// decoded stream and file tags.
func ReadRecord(
	f file.Handler, recordHeaderSize uint32,
) (uint32, map[record.StreamID]*StreamTags, map[string]string, error) {
	headerBuf := make([]byte, recordHeaderSize)
	if err := f.Read(headerBuf); err != nil {
		return 0, nil, nil, err
	}
	var recordHeader fileformat.RecordHeader
	recordHeader.Unmarshal(headerBuf)
	recordSize := recordHeader.RecordSize
	if recordSize < recordHeaderSize+4 {
		return 0, nil, nil, vrserrors.ErrNotEnoughData
	}
	r := &descriptionReader{file: f, sizeLeft: recordSize - recordHeaderSize}
	streamTags := make(map[record.StreamID]*StreamTags)
	fileTags := make(map[string]string)
	switch recordHeader.FormatVersion {
	case LegacyFormatVersion:
		count, err := r.readCount()
		if err != nil {
			return recordSize, nil, nil, err
		}
		for ; count > 0; count-- {
			id, err := r.readStreamID()
			if err != nil {
				return recordSize, nil, nil, err
			}
			jsonStr, err := r.readString()
			if err != nil {
				return recordSize, nil, nil, err
			}
			tags := NewStreamTags()
			var originalName string
			originalName, tags.User = parseLegacyStreamDescription(jsonStr)
			tags.VRS[TagOriginalStreamName] = stripInstanceID(originalName)
			streamTags[id] = tags
		}
		jsonTags, err := r.readString()
		if err != nil {
			return recordSize, nil, nil, err
		}
		fileTags = parseLegacyFileTags(jsonTags)
	case FormatVersion:
		count, err := r.readCount()
		if err != nil {
			return recordSize, nil, nil, err
		}
		for ; count > 0; count-- {
			id, err := r.readStreamID()
			if err != nil {
				return recordSize, nil, nil, err
			}
			tags := NewStreamTags()
			if err = r.readTagMap(tags.User); err != nil {
				return recordSize, nil, nil, err
			}
			if err = r.readTagMap(tags.VRS); err != nil {
				return recordSize, nil, nil, err
			}
			UpgradeStreamTags(tags.VRS)
			streamTags[id] = tags
		}
		if err = r.readTagMap(fileTags); err != nil {
			return recordSize, nil, nil, err
		}
	default:
		return recordSize, nil, nil, vrserrors.ErrUnsupportedVersion
	}
	CreateStreamSerialNumbers(fileTags, streamTags)
	return recordSize, streamTags, fileTags, nil
}
