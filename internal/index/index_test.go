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

package index_test

import (
	// standard libraries.
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	// third-party libraries.
	. "github.com/golang/mock/gomock"
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/index"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/vrserrors"
)

type testRecord struct {
	timestamp float64
	size      uint32
	id        record.StreamID
	typ       record.Type
}

// makeTestRecords fabricates n data records over two streams, in timestamp
// order.
func makeTestRecords(n int) []testRecord {
	records := make([]testRecord, 0, n)
	for i := 0; i < n; i++ {
		id := record.NewStreamID(record.StreamTypeImage, 1)
		if i%3 == 0 {
			id = record.NewStreamID(record.StreamTypeAudio, 1)
		}
		records = append(records, testRecord{
			timestamp: float64(i) / 10,
			size:      fileformat.RecordHeaderSize + uint32(i%50),
			id:        id,
			typ:       record.TypeData,
		})
	}
	return records
}

// writeRecordFile lays out a complete file: file header, one record per
// entry, and a classic index record at the tail. indexed tells which records
// go in the index; the bytes of every record are written either way.
func writeRecordFile(path string, records []testRecord, indexed func(i int) bool) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var fileHeader fileformat.FileHeader
	fileHeader.Init()
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	fileHeader.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}

	w := index.NewWriter(&fileHeader)
	defer w.Close()
	recordHeaderBuf := make([]byte, fileformat.RecordHeaderSize)
	lastRecordSize := uint32(0)
	for i, r := range records {
		recordHeader := fileformat.RecordHeader{
			RecordSize:         r.size,
			PreviousRecordSize: lastRecordSize,
			FormatVersion:      1,
			Timestamp:          r.timestamp,
			RecordType:         uint8(r.typ),
		}
		recordHeader.SetStreamID(r.id)
		recordHeader.MarshalTo(recordHeaderBuf)
		if err = f.Write(recordHeaderBuf); err != nil {
			return err
		}
		if payload := r.size - fileformat.RecordHeaderSize; payload > 0 {
			if err = f.Write(make([]byte, payload)); err != nil {
				return err
			}
		}
		if indexed == nil || indexed(i) {
			w.AddStream(r.id)
			if err = w.AddRecord(r.timestamp, r.size, r.id, r.typ); err != nil {
				return err
			}
		}
		lastRecordSize = r.size
	}
	_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), lastRecordSize)
	return err
}

func openIndex(path string) (*index.Reader, *file.DiskFile, error) {
	f, err := file.OpenDiskFile(path)
	if err != nil {
		return nil, nil, err
	}
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	if err = f.Read(headerBuf); err != nil {
		f.Close()
		return nil, nil, err
	}
	fileHeader := &fileformat.FileHeader{}
	fileHeader.Unmarshal(headerBuf)
	return index.NewReader(f, fileHeader, progress.Silent{}), f, nil
}

func TestClassicIndexRoundTrip(t *testing.T) {
	ctx := context.Background()

	// 99 entries stay raw, 100 cross into compression, 100001 spill into a
	// second compressed batch
	for _, count := range []int{0, 1, 99, 100, 100001} {
		count := count
		Convey(fmt.Sprintf("an index of %d records reads back", count), t, func() {
			path := filepath.Join(t.TempDir(), "records.vrs")
			records := makeTestRecords(count)
			So(writeRecordFile(path, records, nil), ShouldBeNil)

			idx, f, err := openIndex(path)
			So(err, ShouldBeNil)
			defer f.Close()
			defer idx.Close()

			usedSize, err := idx.ReadRecord(ctx, fileformat.FileHeaderSize)
			So(err, ShouldBeNil)
			So(idx.IsIndexComplete(), ShouldBeTrue)
			So(idx.HasSplitHeadChunk(), ShouldBeFalse)
			So(idx.DroppedRecordCount(), ShouldEqual, 0)

			entries := idx.Index()
			So(entries, ShouldHaveLength, count)
			expected := make([]record.Info, len(records))
			offset := int64(fileformat.FileHeaderSize)
			for i, r := range records {
				expected[i] = record.Info{
					Timestamp:  r.timestamp,
					FileOffset: offset,
					StreamID:   r.id,
					Type:       r.typ,
				}
				offset += int64(r.size)
			}
			if count > 0 {
				So(entries, ShouldResemble, expected)
				So(usedSize, ShouldBeGreaterThanOrEqualTo, offset)
				So(idx.StreamIDs(), ShouldResemble, []record.StreamID{
					record.NewStreamID(record.StreamTypeAudio, 1),
					record.NewStreamID(record.StreamTypeImage, 1),
				})
			}
		})
	}
}

func TestClassicIndexUnordered(t *testing.T) {
	Convey("out-of-order entries are sorted while loading", t, func() {
		path := filepath.Join(t.TempDir(), "unordered.vrs")
		records := makeTestRecords(20)
		// scramble the timestamps, the on-disk order stays by offset
		for i := range records {
			records[i].timestamp = float64((i * 7) % 20)
		}
		So(writeRecordFile(path, records, nil), ShouldBeNil)

		idx, f, err := openIndex(path)
		So(err, ShouldBeNil)
		defer f.Close()
		defer idx.Close()

		_, err = idx.ReadRecord(context.Background(), fileformat.FileHeaderSize)
		So(err, ShouldBeNil)
		entries := idx.Index()
		So(entries, ShouldHaveLength, 20)
		for i := 1; i < len(entries); i++ {
			So(entries[i-1].Less(&entries[i]), ShouldBeTrue)
		}
	})
}

func TestClassicIndexTruncatedFile(t *testing.T) {
	Convey("entries past the end of the file are dropped", t, func() {
		path := filepath.Join(t.TempDir(), "truncated.vrs")
		records := makeTestRecords(5)
		for i := range records {
			records[i].size = 1000
		}

		// the index claims 5 records, only 3 were actually written
		f, err := file.CreateDiskFile(path)
		So(err, ShouldBeNil)
		var fileHeader fileformat.FileHeader
		fileHeader.Init()
		headerBuf := make([]byte, fileformat.FileHeaderSize)
		fileHeader.MarshalTo(headerBuf)
		So(f.Write(headerBuf), ShouldBeNil)
		w := index.NewWriter(&fileHeader)
		for i, r := range records {
			if i < 3 {
				So(f.Write(make([]byte, r.size)), ShouldBeNil)
			}
			w.AddStream(r.id)
			So(w.AddRecord(r.timestamp, r.size, r.id, r.typ), ShouldBeNil)
		}
		_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), 1000)
		So(err, ShouldBeNil)
		w.Close()
		So(f.Close(), ShouldBeNil)

		idx, rf, err := openIndex(path)
		So(err, ShouldBeNil)
		defer rf.Close()
		defer idx.Close()

		_, err = idx.ReadRecord(context.Background(), fileformat.FileHeaderSize)
		So(err, ShouldBeNil)
		So(idx.Index(), ShouldHaveLength, 3)
		So(idx.DroppedRecordCount(), ShouldEqual, 2)
	})
}

func TestRebuildIndex(t *testing.T) {
	ctx := context.Background()

	Convey("a file without an index record", t, func() {
		path := filepath.Join(t.TempDir(), "crashed.vrs")
		records := makeTestRecords(30)

		// write the records but never finalize the index, like a crash would
		f, err := file.CreateDiskFile(path)
		So(err, ShouldBeNil)
		var fileHeader fileformat.FileHeader
		fileHeader.Init()
		headerBuf := make([]byte, fileformat.FileHeaderSize)
		fileHeader.MarshalTo(headerBuf)
		So(f.Write(headerBuf), ShouldBeNil)
		recordHeaderBuf := make([]byte, fileformat.RecordHeaderSize)
		lastRecordSize := uint32(0)
		for _, r := range records {
			recordHeader := fileformat.RecordHeader{
				RecordSize:         r.size,
				PreviousRecordSize: lastRecordSize,
				FormatVersion:      1,
				Timestamp:          r.timestamp,
				RecordType:         uint8(r.typ),
			}
			recordHeader.SetStreamID(r.id)
			recordHeader.MarshalTo(recordHeaderBuf)
			So(f.Write(recordHeaderBuf), ShouldBeNil)
			if payload := r.size - fileformat.RecordHeaderSize; payload > 0 {
				So(f.Write(make([]byte, payload)), ShouldBeNil)
			}
			lastRecordSize = r.size
		}
		So(f.Close(), ShouldBeNil)

		idx, rf, err := openIndex(path)
		So(err, ShouldBeNil)
		defer rf.Close()
		defer idx.Close()

		Convey("loading the index fails", func() {
			_, err = idx.ReadRecord(ctx, fileformat.FileHeaderSize)
			So(err, ShouldBeError, vrserrors.ErrIndexRecord)
			So(idx.IsIndexComplete(), ShouldBeFalse)
		})

		Convey("reindexing recovers every record", func() {
			_, _ = idx.ReadRecord(ctx, fileformat.FileHeaderSize)
			So(idx.RebuildIndex(ctx, false), ShouldBeNil)

			entries := idx.Index()
			So(entries, ShouldHaveLength, len(records))
			offset := int64(fileformat.FileHeaderSize)
			for i, r := range records {
				So(entries[i].Timestamp, ShouldEqual, r.timestamp)
				So(entries[i].FileOffset, ShouldEqual, offset)
				offset += int64(r.size)
			}
		})

		Convey("reindexing can patch the index back into the file", func() {
			_, _ = idx.ReadRecord(ctx, fileformat.FileHeaderSize)
			So(idx.RebuildIndex(ctx, true), ShouldBeNil)
			idx.Close()
			rf.Close()

			fixed, ff, err := openIndex(path)
			So(err, ShouldBeNil)
			defer ff.Close()
			defer fixed.Close()
			_, err = fixed.ReadRecord(ctx, fileformat.FileHeaderSize)
			So(err, ShouldBeNil)
			So(fixed.IsIndexComplete(), ShouldBeTrue)
			So(fixed.Index(), ShouldHaveLength, len(records))
		})
	})
}

func TestIndexReaderSeekFailure(t *testing.T) {
	Convey("a store that cannot seek yields an index error", t, func() {
		ctrl := NewController(t)
		defer ctrl.Finish()

		f := file.NewMockHandler(ctrl)
		f.EXPECT().TotalSize().Return(int64(1000))
		f.EXPECT().SetPos(int64(200)).Return(errors.New("connection reset"))

		var fileHeader fileformat.FileHeader
		fileHeader.Init()
		fileHeader.IndexRecordOffset = 200

		idx := index.NewReader(f, &fileHeader, progress.Silent{})
		defer idx.Close()
		_, err := idx.ReadRecord(context.Background(), fileformat.FileHeaderSize)
		So(err, ShouldBeError, vrserrors.ErrIndexRecord)
	})
}
