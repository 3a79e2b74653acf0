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

package detailscache

import (
	// standard libraries.
	"os"
	"path/filepath"
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/internal/description"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/vrserrors"
)

func TestCacheKey(t *testing.T) {
	Convey("cache keys combine creation id and file size", t, func() {
		So(Key(12345, 67890), ShouldEqual, "vrs_details_12345_67890")
		So(Key(12345, 67890), ShouldNotEqual, Key(12345, 67891))
	})
}

func TestDetailsCacheRoundTrip(t *testing.T) {
	Convey("details written to a cache file read back", t, func() {
		path := filepath.Join(t.TempDir(), "vrs_details_1_2")

		imageID := record.NewStreamID(record.StreamTypeImage, 1)
		audioID := record.NewStreamID(record.StreamTypeAudio, 1)
		streamTags := map[record.StreamID]*description.StreamTags{
			imageID: description.NewStreamTags(),
			audioID: description.NewStreamTags(),
		}
		streamTags[imageID].User["position"] = "left"
		index := make([]record.Info, 0, 300)
		for i := 0; i < 300; i++ {
			id := imageID
			if i%2 == 0 {
				id = audioID
			}
			index = append(index, record.Info{
				Timestamp:  float64(i) / 30,
				FileOffset: int64(80 + i*256),
				StreamID:   id,
				Type:       record.TypeData,
			})
		}
		details := &Details{
			StreamIDs:    []record.StreamID{imageID, audioID},
			FileTags:     map[string]string{"device_serial": "HMD0012"},
			StreamTags:   streamTags,
			Index:        index,
			FileHasIndex: true,
		}

		So(Write(path, details), ShouldBeNil)

		loaded, err := Read(path)
		So(err, ShouldBeNil)
		So(loaded.StreamIDs, ShouldResemble, details.StreamIDs)
		So(loaded.FileTags, ShouldResemble, details.FileTags)
		So(loaded.Index, ShouldResemble, details.Index)
		So(loaded.FileHasIndex, ShouldBeTrue)
		So(loaded.StreamTags[imageID].User["position"], ShouldEqual, "left")

		Convey("the no-index flag survives", func() {
			details.FileHasIndex = false
			So(Write(path, details), ShouldBeNil)
			loaded, err := Read(path)
			So(err, ShouldBeNil)
			So(loaded.FileHasIndex, ShouldBeFalse)
		})
	})

	Convey("an empty index is fine", t, func() {
		path := filepath.Join(t.TempDir(), "vrs_details_3_4")
		details := &Details{
			StreamTags:   map[record.StreamID]*description.StreamTags{},
			FileTags:     map[string]string{},
			FileHasIndex: true,
		}
		So(Write(path, details), ShouldBeNil)
		loaded, err := Read(path)
		So(err, ShouldBeNil)
		So(loaded.Index, ShouldBeEmpty)
		So(loaded.StreamIDs, ShouldBeEmpty)
	})

	Convey("a file of another format is rejected", t, func() {
		path := filepath.Join(t.TempDir(), "not_a_cache")
		So(os.WriteFile(path, make([]byte, 500), 0o600), ShouldBeNil)
		_, err := Read(path)
		So(err, ShouldBeError, vrserrors.ErrInvalidDiskData)
	})

	Convey("a truncated cache file is rejected", t, func() {
		path := filepath.Join(t.TempDir(), "short")
		So(os.WriteFile(path, make([]byte, 10), 0o600), ShouldBeNil)
		_, err := Read(path)
		So(err, ShouldBeError, vrserrors.ErrInvalidDiskData)
	})
}
