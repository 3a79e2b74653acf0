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
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/internal/record"
)

func TestRecordHeader(t *testing.T) {
	Convey("stream identity round trip", t, func() {
		var h RecordHeader
		id := record.NewStreamID(record.StreamTypeImage, 3)
		h.SetStreamID(id)
		So(h.StreamID(), ShouldResemble, id)

		Convey("negative stream types fold into undefined", func() {
			h.StreamType = -7
			So(h.StreamID().Type, ShouldEqual, record.StreamTypeUndefined)
		})
	})

	Convey("marshal and unmarshal round trip", t, func() {
		h := RecordHeader{
			RecordSize:         1234,
			PreviousRecordSize: 456,
			StreamType:         int32(record.StreamTypeAudio),
			FormatVersion:      7,
			Timestamp:          12.75,
			StreamInstance:     2,
			RecordType:         uint8(record.TypeData),
			Compression:        CompressionZstd,
			UncompressedSize:   4000,
		}
		buf := make([]byte, RecordHeaderSize)
		h.MarshalTo(buf)
		var h2 RecordHeader
		h2.Unmarshal(buf)
		So(h2, ShouldResemble, h)
	})

	Convey("index and description header init", t, func() {
		var h RecordHeader

		Convey("index header", func() {
			h.InitIndexHeader(2, 600, 32, CompressionZstd)
			So(h.RecordSize, ShouldEqual, RecordHeaderSize+600)
			So(h.PreviousRecordSize, ShouldEqual, 32)
			So(record.StreamType(h.StreamType), ShouldEqual, record.StreamTypeIndex)
			So(h.Timestamp, ShouldEqual, record.MaxTimestamp)
			So(h.Compression, ShouldEqual, CompressionZstd)
		})

		Convey("description header", func() {
			h.InitDescriptionHeader(1, 500, 32)
			So(h.RecordSize, ShouldEqual, 500)
			So(record.StreamType(h.StreamType), ShouldEqual, record.StreamTypeDescription)
			So(h.Compression, ShouldEqual, CompressionNone)
		})
	})

	Convey("sanity check", t, func() {
		good := RecordHeader{
			RecordSize:         200,
			PreviousRecordSize: 100,
			StreamType:         int32(record.StreamTypeImage),
			Timestamp:          1.5,
			RecordType:         uint8(record.TypeData),
		}
		So(good.SanityCheckOk(), ShouldBeTrue)

		Convey("rejects records smaller than the header", func() {
			h := good
			h.RecordSize = RecordHeaderSize - 1
			So(h.SanityCheckOk(), ShouldBeFalse)
		})

		Convey("rejects impossible previous record sizes", func() {
			h := good
			h.PreviousRecordSize = RecordHeaderSize - 1
			So(h.SanityCheckOk(), ShouldBeFalse)

			Convey("but zero means first record", func() {
				h.PreviousRecordSize = 0
				So(h.SanityCheckOk(), ShouldBeTrue)
			})
		})

		Convey("rejects invalid record types", func() {
			h := good
			h.RecordType = 200
			So(h.SanityCheckOk(), ShouldBeFalse)
		})

		Convey("small compressed payloads may grow a little", func() {
			h := good
			h.UncompressedSize = 100
			// payload up to uncompressed + max(50, 50) - 1
			h.RecordSize = RecordHeaderSize + 149
			So(h.SanityCheckOk(), ShouldBeTrue)
			h.RecordSize = RecordHeaderSize + 150
			So(h.SanityCheckOk(), ShouldBeFalse)
		})

		Convey("large compressed payloads only grow a few percent", func() {
			h := good
			h.UncompressedSize = 10000
			// payload up to uncompressed + max(100, 500) - 1
			h.RecordSize = RecordHeaderSize + 10499
			So(h.SanityCheckOk(), ShouldBeTrue)
			h.RecordSize = RecordHeaderSize + 10500
			So(h.SanityCheckOk(), ShouldBeFalse)
		})

		Convey("index records skip the compression plausibility check", func() {
			h := good
			h.StreamType = int32(record.StreamTypeIndex)
			h.UncompressedSize = 10
			h.RecordSize = RecordHeaderSize + 100000
			So(h.SanityCheckOk(), ShouldBeTrue)
		})
	})
}
