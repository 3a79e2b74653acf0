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

package datalayout

import (
	// standard libraries.
	"encoding/binary"
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"
)

// buildSensorLayout is the layout used across these tests: two fixed pieces,
// then two variable-size pieces.
func buildSensorLayout() (*DataLayout, *Value[uint32], *Value[float64], *String, *Vector[int32]) {
	b := NewBuilder()
	width := ValuePiece[uint32](b, "width")
	exposure := ValuePiece[float64](b, "exposure")
	name := StringPiece(b, "camera_name")
	samples := VectorPiece[int32](b, "calibration")
	return b.Build(), width, exposure, name, samples
}

func TestLayoutBuilder(t *testing.T) {
	Convey("pieces pack fixed data first, then the var-size index", t, func() {
		l, width, exposure, name, samples := buildSensorLayout()

		So(l.PieceCount(), ShouldEqual, 4)
		So(width.Offset(), ShouldEqual, 0)
		So(exposure.Offset(), ShouldEqual, 4)
		// var piece offsets are index entry ranks
		So(name.Offset(), ShouldEqual, 0)
		So(samples.Offset(), ShouldEqual, 1)
		// 4 + 8 fixed bytes, plus two 8-byte index entries
		So(l.FixedDataSizeNeeded(), ShouldEqual, 28)
		So(l.HasVarPieces(), ShouldBeTrue)
	})

	Convey("a builder can only build once", t, func() {
		b := NewBuilder()
		ValuePiece[uint32](b, "counter")
		b.Build()
		So(func() { b.Build() }, ShouldPanic)
	})
}

func TestLayoutReadWrite(t *testing.T) {
	Convey("staged values serialize and read back", t, func() {
		l, width, exposure, name, samples := buildSensorLayout()

		So(width.Set(640), ShouldBeTrue)
		So(exposure.Set(0.25), ShouldBeTrue)
		name.Stage("tracking_camera")
		samples.Stage([]int32{1, -2, 3})
		l.CollectVariableDataAndUpdateIndex()

		varSize := uint32(len("tracking_camera") + 3*4)
		So(l.GetVarDataSizeNeeded(), ShouldEqual, varSize)
		So(l.GetVarDataSizeFromIndex(), ShouldEqual, varSize)

		raw := l.GetRawData()
		So(len(raw), ShouldEqual, int(l.FixedDataSizeNeeded()+varSize))

		Convey("a fresh layout reads the serialized bytes", func() {
			l2, w2, e2, n2, s2 := buildSensorLayout()
			copy(l2.FixedData(), raw[:l2.FixedDataSizeNeeded()])
			So(l2.GetVarDataSizeFromIndex(), ShouldEqual, varSize)
			l2.SetVarData(raw[l2.FixedDataSizeNeeded():])

			v, ok := w2.Get()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 640)
			So(e2.GetValue(), ShouldEqual, 0.25)
			s, ok := n2.Get()
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, "tracking_camera")
			vals, ok := s2.Get()
			So(ok, ShouldBeTrue)
			So(vals, ShouldResemble, []int32{1, -2, 3})
		})
	})

	Convey("unavailable values fall back to defaults", t, func() {
		b := NewBuilder()
		missing := ValuePiece[uint32](b, "missing")
		b.Build()
		missing.setOffset(NotFound)
		missing.SetDefault(42)

		v, ok := missing.Get()
		So(ok, ShouldBeFalse)
		So(v, ShouldEqual, 42)
		So(missing.IsAvailable(), ShouldBeFalse)
	})
}

func TestLayoutMapping(t *testing.T) {
	Convey("given a layout holding record data", t, func() {
		target, width, _, name, _ := buildSensorLayout()
		width.Set(1920)
		name.Stage("slam_camera")
		target.CollectVariableDataAndUpdateIndex()

		Convey("a reordered search layout still maps", func() {
			b := NewBuilder()
			sExposure := ValuePiece[float64](b, "exposure")
			sWidth := ValuePiece[uint32](b, "width")
			sName := StringPiece(b, "camera_name")
			search := b.Build()

			So(search.MapLayout(target), ShouldBeTrue)
			So(search.IsMapped(), ShouldBeTrue)
			So(search.HasAllRequiredPieces(), ShouldBeTrue)

			So(sWidth.GetValue(), ShouldEqual, 1920)
			So(sExposure.IsAvailable(), ShouldBeTrue)
			s, ok := sName.Get()
			So(ok, ShouldBeTrue)
			So(s, ShouldEqual, "slam_camera")
		})

		Convey("unmatched optional pieces read their defaults", func() {
			b := NewBuilder()
			sWidth := ValuePiece[uint32](b, "width")
			sGain := ValuePiece[uint32](b, "gain")
			search := b.Build()
			sGain.SetDefault(7)

			So(search.MapLayout(target), ShouldBeTrue)
			So(sWidth.GetValue(), ShouldEqual, 1920)
			v, ok := sGain.Get()
			So(ok, ShouldBeFalse)
			So(v, ShouldEqual, 7)
		})

		Convey("unmatched required pieces fail the mapping", func() {
			b := NewBuilder()
			ValuePiece[uint32](b, "width")
			sGain := ValuePiece[uint32](b, "gain")
			search := b.Build()
			sGain.SetRequired(true)

			So(search.MapLayout(target), ShouldBeFalse)
			So(search.HasAllRequiredPieces(), ShouldBeFalse)
		})

		Convey("pieces of the same label but a different type do not match", func() {
			b := NewBuilder()
			sWidth := ValuePiece[uint16](b, "width")
			search := b.Build()
			search.RequireAllPieces()

			So(search.MapLayout(target), ShouldBeFalse)
			So(sWidth.IsAvailable(), ShouldBeFalse)
		})

		Convey("setting values through a mapped layout is refused", func() {
			b := NewBuilder()
			sWidth := ValuePiece[uint32](b, "width")
			search := b.Build()
			So(search.MapLayout(target), ShouldBeTrue)
			So(sWidth.Set(640), ShouldBeFalse)
			So(sWidth.GetValue(), ShouldEqual, 1920)
		})
	})
}

// installVarData makes the layout's single var-size index entry claim the
// whole of buf as that piece's variable-size data.
func installVarData(l *DataLayout, buf []byte) {
	l.setVarSizeIndexEntry(0, 0, uint32(len(buf)))
	l.SetVarData(buf)
}

func TestLayoutCorruptData(t *testing.T) {
	Convey("a wrapping map length prefix stops decoding instead of panicking", t, func() {
		b := NewBuilder()
		counters := StringMapPiece[uint32](b, "counters")
		l := b.Build()

		// 0xFFFFFFFE + any entry overhead wraps a 32-bit additive bounds check
		buf := make([]byte, 14)
		binary.LittleEndian.PutUint32(buf, 0xFFFFFFFE)
		installVarData(l, buf)

		var values map[string]uint32
		So(func() { values, _ = counters.Get() }, ShouldNotPanic)
		So(values, ShouldBeEmpty)
	})

	Convey("a wrapping string map key length stops decoding instead of panicking", t, func() {
		b := NewBuilder()
		tags := StringMapStringPiece(b, "tags")
		l := b.Build()

		buf := make([]byte, 14)
		binary.LittleEndian.PutUint32(buf, 0xFFFFFFFE)
		installVarData(l, buf)

		var values map[string]string
		So(func() { values, _ = tags.Get() }, ShouldNotPanic)
		So(values, ShouldBeEmpty)
	})

	Convey("entries before the corruption still decode", t, func() {
		b := NewBuilder()
		counters := StringMapPiece[uint32](b, "counters")
		l := b.Build()

		buf := make([]byte, 14)
		binary.LittleEndian.PutUint32(buf, 2)
		copy(buf[4:], "id")
		binary.LittleEndian.PutUint32(buf[6:], 7)
		binary.LittleEndian.PutUint32(buf[10:], 0xFFFFFFFE)
		installVarData(l, buf)

		values, ok := counters.Get()
		So(ok, ShouldBeTrue)
		So(values, ShouldResemble, map[string]uint32{"id": 7})
	})

	Convey("a string vector cut short keeps the complete strings", t, func() {
		b := NewBuilder()
		names := VectorStringPiece(b, "names")
		l := b.Build()

		// "cam" decodes, the second length prefix asks for more than remains
		buf := make([]byte, 13)
		binary.LittleEndian.PutUint32(buf, 3)
		copy(buf[4:], "cam")
		binary.LittleEndian.PutUint32(buf[7:], 100)
		installVarData(l, buf)

		var values []string
		So(func() { values, _ = names.Get() }, ShouldNotPanic)
		So(values, ShouldResemble, []string{"cam"})
	})

	Convey("an index entry past the variable-size buffer reads the default", t, func() {
		b := NewBuilder()
		name := StringPiece(b, "camera_name")
		l := b.Build()
		name.SetDefault("unknown")

		l.setVarSizeIndexEntry(0, 10, 20)
		l.SetVarData(make([]byte, 4))

		s, ok := name.Get()
		So(ok, ShouldBeFalse)
		So(s, ShouldEqual, "unknown")
	})

	Convey("a truncated fixed buffer reads defaults everywhere", t, func() {
		b := NewBuilder()
		width := ValuePiece[uint32](b, "width")
		samples := VectorPiece[int32](b, "calibration")
		l := b.Build()
		width.SetDefault(640)

		l.fixedData = l.fixedData[:3]

		v, ok := width.Get()
		So(ok, ShouldBeFalse)
		So(v, ShouldEqual, 640)
		vals, ok := samples.Get()
		So(ok, ShouldBeFalse)
		So(vals, ShouldBeEmpty)
	})
}
