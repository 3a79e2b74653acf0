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

package record

import (
	// standard libraries.
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"
)

func TestType(t *testing.T) {
	Convey("type validity", t, func() {
		So(TypeUndefined.IsValid(), ShouldBeFalse)
		So(TypeState.IsValid(), ShouldBeTrue)
		So(TypeConfiguration.IsValid(), ShouldBeTrue)
		So(TypeData.IsValid(), ShouldBeTrue)
		So(TypeTags.IsValid(), ShouldBeTrue)
		So(Type(200).IsValid(), ShouldBeFalse)
	})

	Convey("type names parse back", t, func() {
		for _, typ := range []Type{TypeState, TypeConfiguration, TypeData, TypeTags} {
			So(ParseType(typ.String()), ShouldEqual, typ)
		}
		So(ParseType("NoSuchType"), ShouldEqual, TypeUndefined)
	})
}

func TestStreamID(t *testing.T) {
	Convey("validity and internal streams", t, func() {
		So(NewStreamID(StreamTypeImage, 1).IsValid(), ShouldBeTrue)
		So(UndefinedStreamID.IsValid(), ShouldBeFalse)
		So(StreamID{}.IsValid(), ShouldBeFalse)

		So(NewStreamID(StreamTypeIndex, 0).Internal(), ShouldBeTrue)
		So(NewStreamID(StreamTypeDescription, 0).Internal(), ShouldBeTrue)
		So(NewStreamID(StreamTypeAudio, 1).Internal(), ShouldBeFalse)
	})

	Convey("total order", t, func() {
		a := NewStreamID(StreamTypeImage, 1)
		b := NewStreamID(StreamTypeImage, 2)
		c := NewStreamID(StreamTypeAudio, 1)
		So(a.Less(b), ShouldBeTrue)
		So(b.Less(a), ShouldBeFalse)
		So(b.Less(c), ShouldBeTrue)
		So(a.Less(a), ShouldBeFalse)
	})

	Convey("numeric names", t, func() {
		id := NewStreamID(StreamTypeAnnotation, 3)
		So(id.NumericName(), ShouldEqual, "102-3")

		parsed, err := ParseStreamID("102-3")
		So(err, ShouldBeNil)
		So(parsed, ShouldResemble, id)

		Convey("malformed names are rejected", func() {
			for _, s := range []string{"", "102", "-3", "102-", "a-3", "102-b"} {
				_, err := ParseStreamID(s)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestInfoLess(t *testing.T) {
	Convey("index entries order by time, stream, then offset", t, func() {
		early := Info{Timestamp: 1, FileOffset: 500, StreamID: NewStreamID(StreamTypeAudio, 1)}
		late := Info{Timestamp: 2, FileOffset: 100, StreamID: NewStreamID(StreamTypeImage, 1)}
		So(early.Less(&late), ShouldBeTrue)
		So(late.Less(&early), ShouldBeFalse)

		Convey("same timestamp, different streams", func() {
			a := Info{Timestamp: 1, StreamID: NewStreamID(StreamTypeImage, 1), FileOffset: 900}
			b := Info{Timestamp: 1, StreamID: NewStreamID(StreamTypeImage, 2), FileOffset: 100}
			So(a.Less(&b), ShouldBeTrue)
		})

		Convey("same timestamp and stream, file order decides", func() {
			a := Info{Timestamp: 1, StreamID: NewStreamID(StreamTypeImage, 1), FileOffset: 100}
			b := Info{Timestamp: 1, StreamID: NewStreamID(StreamTypeImage, 1), FileOffset: 200}
			So(a.Less(&b), ShouldBeTrue)
			So(b.Less(&a), ShouldBeFalse)
		})
	})
}
