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
	"path/filepath"
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/record"
)

func TestStreamTagsHelpers(t *testing.T) {
	Convey("instance ids are stripped from legacy stream names", t, func() {
		cases := map[string]string{
			"Tracking Camera #1":  "Tracking Camera",
			"Tracking Camera #42": "Tracking Camera",
			"Tracking Camera":     "Tracking Camera",
			"Tracking Camera #":   "Tracking Camera #",
			"Camera #1a":          "Camera #1a",
			"#1":                  "#1",
		}
		for name, expected := range cases {
			vrsTags := map[string]string{TagOriginalStreamName: name}
			UpgradeStreamTags(vrsTags)
			So(vrsTags[TagOriginalStreamName], ShouldEqual, expected)
		}
	})

	Convey("flavor is read from the internal tags", t, func() {
		tags := NewStreamTags()
		So(tags.Flavor(), ShouldBeEmpty)
		tags.VRS[TagStreamFlavor] = "device/slam"
		So(tags.Flavor(), ShouldEqual, "device/slam")
	})

	Convey("stream ids sort by type then instance", t, func() {
		streamTags := map[record.StreamID]*StreamTags{
			record.NewStreamID(record.StreamTypeAudio, 1): NewStreamTags(),
			record.NewStreamID(record.StreamTypeImage, 2): NewStreamTags(),
			record.NewStreamID(record.StreamTypeImage, 1): NewStreamTags(),
		}
		So(SortedStreamIDs(streamTags), ShouldResemble, []record.StreamID{
			record.NewStreamID(record.StreamTypeImage, 1),
			record.NewStreamID(record.StreamTypeImage, 2),
			record.NewStreamID(record.StreamTypeAudio, 1),
		})
	})
}

func TestStreamSerialNumbers(t *testing.T) {
	Convey("serial numbers are derived from tags", t, func() {
		fileTags := map[string]string{"device_serial": "HMD0012"}
		newTags := func() map[record.StreamID]*StreamTags {
			streamTags := map[record.StreamID]*StreamTags{
				record.NewStreamID(record.StreamTypeImage, 1): NewStreamTags(),
				record.NewStreamID(record.StreamTypeImage, 2): NewStreamTags(),
			}
			streamTags[record.NewStreamID(record.StreamTypeImage, 1)].User["position"] = "left"
			streamTags[record.NewStreamID(record.StreamTypeImage, 2)].User["position"] = "right"
			return streamTags
		}

		streamTags := newTags()
		CreateStreamSerialNumbers(fileTags, streamTags)
		left := streamTags[record.NewStreamID(record.StreamTypeImage, 1)]
		right := streamTags[record.NewStreamID(record.StreamTypeImage, 2)]
		So(left.VRS[TagStreamSerialNumber], ShouldNotBeEmpty)
		So(right.VRS[TagStreamSerialNumber], ShouldNotBeEmpty)
		So(left.VRS[TagStreamSerialNumber],
			ShouldNotEqual, right.VRS[TagStreamSerialNumber])

		Convey("they are stable across runs", func() {
			again := newTags()
			CreateStreamSerialNumbers(fileTags, again)
			So(again[record.NewStreamID(record.StreamTypeImage, 1)].VRS[TagStreamSerialNumber],
				ShouldEqual, left.VRS[TagStreamSerialNumber])
		})

		Convey("existing serial numbers are kept", func() {
			streamTags[record.NewStreamID(record.StreamTypeImage, 1)].
				VRS[TagStreamSerialNumber] = "preset"
			CreateStreamSerialNumbers(fileTags, streamTags)
			So(left.VRS[TagStreamSerialNumber], ShouldEqual, "preset")
		})
	})
}

func TestDescriptionRecordRoundTrip(t *testing.T) {
	Convey("a description record written to disk reads back", t, func() {
		path := filepath.Join(t.TempDir(), "description.vrs")
		f, err := file.CreateDiskFile(path)
		So(err, ShouldBeNil)
		defer f.Close()

		imageID := record.NewStreamID(record.StreamTypeImage, 1)
		audioID := record.NewStreamID(record.StreamTypeAudio, 1)
		streamTags := map[record.StreamID]*StreamTags{
			imageID: NewStreamTags(),
			audioID: NewStreamTags(),
		}
		streamTags[imageID].User["position"] = "left"
		streamTags[imageID].VRS[TagOriginalStreamName] = "Tracking Camera #1"
		streamTags[audioID].VRS[TagStreamFlavor] = "device/mic"
		fileTags := map[string]string{"device_serial": "HMD0012", "capture_mode": "lab"}

		recordSize, err := WriteRecord(f, streamTags, fileTags, 0)
		So(err, ShouldBeNil)
		So(recordSize, ShouldBeGreaterThan, fileformat.RecordHeaderSize)
		So(f.Pos(), ShouldEqual, int64(recordSize))

		So(f.SetPos(0), ShouldBeNil)
		readSize, readStreamTags, readFileTags, err := ReadRecord(f, fileformat.RecordHeaderSize)
		So(err, ShouldBeNil)
		So(readSize, ShouldEqual, recordSize)
		So(readFileTags, ShouldResemble, fileTags)

		So(readStreamTags, ShouldContainKey, imageID)
		So(readStreamTags, ShouldContainKey, audioID)
		So(readStreamTags[imageID].User["position"], ShouldEqual, "left")
		So(readStreamTags[audioID].Flavor(), ShouldEqual, "device/mic")

		Convey("internal tags are upgraded on the way in", func() {
			So(readStreamTags[imageID].VRS[TagOriginalStreamName],
				ShouldEqual, "Tracking Camera")
		})

		Convey("serial numbers are synthesized on the way in", func() {
			So(readStreamTags[imageID].VRS[TagStreamSerialNumber], ShouldNotBeEmpty)
			So(readStreamTags[audioID].VRS[TagStreamSerialNumber], ShouldNotBeEmpty)
		})
	})
}
