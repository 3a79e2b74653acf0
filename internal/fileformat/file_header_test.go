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
)

func TestFileHeader(t *testing.T) {
	Convey("an initialized file header", t, func() {
		var h FileHeader
		h.Init()

		Convey("looks like a record file", func() {
			So(h.LooksLikeARecordFile(), ShouldBeTrue)
			So(h.IsFormatSupported(), ShouldBeTrue)
			So(h.FileHeaderSize, ShouldEqual, FileHeaderSize)
			So(h.RecordHeaderSize, ShouldEqual, RecordHeaderSize)
		})

		Convey("marshals and unmarshals losslessly", func() {
			h.CreationID = 0x123456789abcdef0
			h.IndexRecordOffset = 4096
			h.DescriptionRecordOffset = 80
			h.FirstUserRecordOffset = 512

			buf := make([]byte, FileHeaderSize)
			h.MarshalTo(buf)
			var h2 FileHeader
			h2.Unmarshal(buf)
			So(h2, ShouldResemble, h)
		})

		Convey("rejects tampered magic values", func() {
			h.MagicHeader2++
			So(h.LooksLikeARecordFile(), ShouldBeFalse)
		})

		Convey("rejects unknown format versions", func() {
			h.FileFormatVersion = 0x46474858
			So(h.IsFormatSupported(), ShouldBeFalse)
		})
	})

	Convey("a zeroed header is not a record file", t, func() {
		var h FileHeader
		So(h.LooksLikeARecordFile(), ShouldBeFalse)
	})

	Convey("front index support", t, func() {
		var h FileHeader
		h.Init()
		So(h.FileFormatVersion, ShouldEqual, OriginalFileFormatVersion)
		h.EnableFrontIndexSupport()
		So(h.FileFormatVersion, ShouldEqual, FrontIndexFileFormatVersion)

		Convey("does not downgrade newer versions", func() {
			h.FileFormatVersion = ZstdFormatVersion
			h.EnableFrontIndexSupport()
			So(h.FileFormatVersion, ShouldEqual, ZstdFormatVersion)
		})
	})

	Convey("end of user records", t, func() {
		var h FileHeader
		h.Init()
		const fileSize = int64(100000)

		Convey("is the file size without an index record", func() {
			So(h.EndOfUserRecordsOffset(fileSize), ShouldEqual, fileSize)
		})

		Convey("is the index record offset when the index is at the tail", func() {
			h.FirstUserRecordOffset = FileHeaderSize
			h.IndexRecordOffset = 90000
			So(h.EndOfUserRecordsOffset(fileSize), ShouldEqual, 90000)
		})

		Convey("is the file size when the index is at the head", func() {
			h.IndexRecordOffset = FileHeaderSize
			h.FirstUserRecordOffset = 5000
			So(h.EndOfUserRecordsOffset(fileSize), ShouldEqual, fileSize)
		})
	})
}
