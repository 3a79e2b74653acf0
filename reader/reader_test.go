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

package reader_test

import (
	// standard libraries.
	"context"
	"os"
	"path/filepath"
	"testing"

	// third-party libraries.
	. "github.com/smartystreets/goconvey/convey"

	// this project.
	"github.com/linkall-labs/vrs/internal/datalayout"
	"github.com/linkall-labs/vrs/internal/datalayout/conventions"
	"github.com/linkall-labs/vrs/internal/description"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/index"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/internal/recordformat"
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/reader"
	"github.com/linkall-labs/vrs/vrserrors"
)

var (
	cameraStream = record.NewStreamID(record.StreamTypeImage, 1)
	micStream    = record.NewStreamID(record.StreamTypeAudio, 1)
)

// buildTelemetryLayout is the payload layout of the camera's data records.
func buildTelemetryLayout() (*datalayout.DataLayout, *datalayout.Value[uint32], *datalayout.Value[float64]) {
	b := datalayout.NewBuilder()
	counter := datalayout.ValuePiece[uint32](b, "frame_counter")
	exposure := datalayout.ValuePiece[float64](b, "exposure_ms")
	return b.Build(), counter, exposure
}

// buildSetupLayout is the payload layout of the camera's configuration
// records.
func buildSetupLayout() (*datalayout.DataLayout, *datalayout.String) {
	b := datalayout.NewBuilder()
	name := datalayout.StringPiece(b, "device_name")
	return b.Build(), name
}

func writeUserRecord(
	f *file.DiskFile, w *index.Writer,
	timestamp float64, id record.StreamID, typ record.Type,
	payload []byte, previousRecordSize uint32,
) (uint32, error) {
	recordHeader := fileformat.RecordHeader{
		RecordSize:         fileformat.RecordHeaderSize + uint32(len(payload)),
		PreviousRecordSize: previousRecordSize,
		FormatVersion:      1,
		Timestamp:          timestamp,
		RecordType:         uint8(typ),
	}
	recordHeader.SetStreamID(id)
	buf := make([]byte, fileformat.RecordHeaderSize)
	recordHeader.MarshalTo(buf)
	if err := f.Write(buf); err != nil {
		return 0, err
	}
	if len(payload) > 0 {
		if err := f.Write(payload); err != nil {
			return 0, err
		}
	}
	w.AddStream(id)
	if err := w.AddRecord(timestamp, recordHeader.RecordSize, id, typ); err != nil {
		return 0, err
	}
	return recordHeader.RecordSize, nil
}

// buildCameraFile writes a complete file with two streams: a camera with one
// configuration record at 0s and data records at 1s and 2s, and a microphone
// with one data record at 0.5s. The camera's records carry format-described
// data_layout payloads.
func buildCameraFile(path string) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var fileHeader fileformat.FileHeader
	fileHeader.Init()
	fileHeader.CreationID = 0x4221
	fileHeader.DescriptionRecordOffset = fileformat.FileHeaderSize
	fileHeader.FirstUserRecordOffset = fileformat.FileHeaderSize
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	fileHeader.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}

	telemetryLayout, counter, exposure := buildTelemetryLayout()
	setupLayout, deviceName := buildSetupLayout()

	cameraTags := description.NewStreamTags()
	cameraTags.User["position"] = "front"
	cameraTags.VRS[description.TagOriginalStreamName] = "Tracking Camera #1"
	recordformat.AddRecordFormat(cameraTags.VRS, record.TypeData, 1,
		recordformat.NewRecordFormat(recordformat.NewDataLayoutBlock()),
		[]string{telemetryLayout.AsJSON()})
	recordformat.AddRecordFormat(cameraTags.VRS, record.TypeConfiguration, 1,
		recordformat.NewRecordFormat(recordformat.NewDataLayoutBlock()),
		[]string{setupLayout.AsJSON()})

	micTags := description.NewStreamTags()
	micTags.VRS[description.TagOriginalStreamName] = "Microphone"
	micTags.VRS[description.TagStreamFlavor] = "device/audio/mic"

	streamTags := map[record.StreamID]*description.StreamTags{
		cameraStream: cameraTags,
		micStream:    micTags,
	}
	fileTags := map[string]string{"device_serial": "A1B2C3"}
	descSize, err := description.WriteRecord(f, streamTags, fileTags, 0)
	if err != nil {
		return err
	}

	w := index.NewWriter(&fileHeader)
	defer w.Close()
	previousRecordSize := descSize

	deviceName.Stage("sensor-unit-7")
	setupLayout.CollectVariableDataAndUpdateIndex()
	previousRecordSize, err = writeUserRecord(f, w, 0.0, cameraStream,
		record.TypeConfiguration, setupLayout.GetRawData(), previousRecordSize)
	if err != nil {
		return err
	}

	previousRecordSize, err = writeUserRecord(f, w, 0.5, micStream,
		record.TypeData, make([]byte, 16), previousRecordSize)
	if err != nil {
		return err
	}

	counter.Set(7)
	exposure.Set(21.5)
	previousRecordSize, err = writeUserRecord(f, w, 1.0, cameraStream,
		record.TypeData, telemetryLayout.GetRawData(), previousRecordSize)
	if err != nil {
		return err
	}

	counter.Set(8)
	exposure.Set(22.25)
	previousRecordSize, err = writeUserRecord(f, w, 2.0, cameraStream,
		record.TypeData, telemetryLayout.GetRawData(), previousRecordSize)
	if err != nil {
		return err
	}

	_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), previousRecordSize)
	return err
}

func openCameraFile(t *testing.T) *reader.RecordFileReader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camera.vrs")
	if err := buildCameraFile(path); err != nil {
		t.Fatal(err)
	}
	r, err := reader.OpenWithOptions(context.Background(), path,
		reader.Options{Progress: progress.Silent{}})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReaderOpen(t *testing.T) {
	Convey("opening a freshly written file", t, func() {
		r := openCameraFile(t)
		defer r.Close()

		Convey("the index and streams are loaded", func() {
			So(r.HasIndex(), ShouldBeTrue)
			So(r.RecordCount(), ShouldEqual, 4)
			So(r.StreamIDs(), ShouldResemble, []record.StreamID{cameraStream, micStream})
			So(r.StreamRecordCount(cameraStream), ShouldEqual, 3)
			So(r.StreamRecordCount(micStream), ShouldEqual, 1)
			So(r.RecordCountOfType(cameraStream, record.TypeData), ShouldEqual, 2)
			So(r.RecordCountOfType(cameraStream, record.TypeConfiguration), ShouldEqual, 1)
			So(r.FileSize(), ShouldBeGreaterThan, int64(fileformat.FileHeaderSize))
		})

		Convey("file and stream tags come back, upgraded", func() {
			So(r.Tag("device_serial"), ShouldEqual, "A1B2C3")
			So(r.StreamTag(cameraStream, "position"), ShouldEqual, "front")
			// the instance suffix of the recorded name is stripped on read
			tags := r.StreamTags(cameraStream)
			So(tags, ShouldNotBeNil)
			So(tags.VRS[description.TagOriginalStreamName], ShouldEqual, "Tracking Camera")
			So(r.Flavor(micStream), ShouldEqual, "device/audio/mic")
			So(r.SerialNumber(cameraStream), ShouldNotBeEmpty)
			So(r.SerialNumber(micStream), ShouldNotBeEmpty)
			So(r.SerialNumber(cameraStream), ShouldNotEqual, r.SerialNumber(micStream))
		})

		Convey("streams are found by type, flavor and serial number", func() {
			So(r.StreamForType(record.StreamTypeImage, 0), ShouldResemble, cameraStream)
			So(r.StreamForType(record.StreamTypeImage, 1), ShouldResemble, record.UndefinedStreamID)
			So(r.StreamForFlavor("device/audio/mic", 0), ShouldResemble, micStream)
			So(r.StreamForSerialNumber(r.SerialNumber(micStream)), ShouldResemble, micStream)
			So(r.StreamForSerialNumber("no such serial"), ShouldResemble, record.UndefinedStreamID)
		})

		Convey("records are found by position", func() {
			So(r.GetRecord(0).Timestamp, ShouldEqual, 0.0)
			So(r.GetRecord(4), ShouldBeNil)
			So(r.GetRecordOfStream(cameraStream, 1).Timestamp, ShouldEqual, 1.0)
			So(r.GetRecordOfStream(cameraStream, 3), ShouldBeNil)

			first := r.GetRecordOfType(cameraStream, record.TypeData, 0)
			So(first.Timestamp, ShouldEqual, 1.0)
			second := r.GetRecordOfType(cameraStream, record.TypeData, 1)
			So(second.Timestamp, ShouldEqual, 2.0)
			So(r.GetRecordOfType(cameraStream, record.TypeData, 2), ShouldBeNil)
			// going backwards must not be confused by the resume cursor
			So(r.GetRecordOfType(cameraStream, record.TypeData, 0), ShouldEqual, first)

			So(r.GetLastRecord(cameraStream, record.TypeData), ShouldEqual, second)
			So(r.GetLastRecord(micStream, record.TypeConfiguration), ShouldBeNil)

			So(r.RecordIndex(r.GetRecord(2)), ShouldEqual, 2)
			So(r.RecordIndex(nil), ShouldEqual, 4)
		})

		Convey("the streams signature names every stream", func() {
			So(r.StreamsSignature(), ShouldNotBeEmpty)
		})
	})

	Convey("opening a file that is not a record file", t, func() {
		path := filepath.Join(t.TempDir(), "not-a-record-file")
		So(os.WriteFile(path, []byte("short and wrong"), 0o644), ShouldBeNil)
		_, err := reader.Open(context.Background(), path)
		So(err, ShouldBeError, vrserrors.ErrNotARecordFile)
	})
}

func TestReaderTimeQueries(t *testing.T) {
	Convey("with records at 0s, 0.5s, 1s and 2s", t, func() {
		r := openCameraFile(t)
		defer r.Close()

		Convey("at-or-after lookups return the first qualifying record", func() {
			So(r.GetRecordByTime(1.5).Timestamp, ShouldEqual, 2.0)
			So(r.GetRecordByTime(2.5), ShouldBeNil)
			So(r.GetRecordByTimeOfType(record.TypeData, 0.0).Timestamp, ShouldEqual, 0.5)
			So(r.GetRecordByTimeOfStream(micStream, 0.0).Timestamp, ShouldEqual, 0.5)
			So(r.GetRecordByTimeOfStream(micStream, 0.6), ShouldBeNil)
			cfg := r.GetRecordByTimeOfStreamType(cameraStream, record.TypeConfiguration, 0.0)
			So(cfg.Timestamp, ShouldEqual, 0.0)
		})

		Convey("nearest lookups honor the epsilon", func() {
			none := r.GetNearestRecordByTime(1.5, 0.3,
				record.UndefinedStreamID, record.TypeUndefined)
			So(none, ShouldBeNil)

			// the epsilon window is inclusive on both sides
			boundary := r.GetNearestRecordByTime(1.5, 0.5,
				record.UndefinedStreamID, record.TypeUndefined)
			So(boundary, ShouldNotBeNil)
			So(boundary.Timestamp, ShouldEqual, 1.0)

			nearest := r.GetNearestRecordByTime(1.4, 0.5,
				record.UndefinedStreamID, record.TypeUndefined)
			So(nearest, ShouldNotBeNil)
			So(nearest.Timestamp, ShouldEqual, 1.0)

			So(r.GetNearestRecordByTime(1.4, 0.5, micStream, record.TypeUndefined), ShouldBeNil)

			data := r.GetNearestRecordByTime(0.2, 1.0, cameraStream, record.TypeData)
			So(data, ShouldNotBeNil)
			So(data.Timestamp, ShouldEqual, 1.0)
		})
	})
}

// telemetryCapture collects the decoded data_layout values of every record
// it sees.
type telemetryCapture struct {
	reader.BaseFormatDelegate

	timestamps []float64
	counters   []uint32
	exposures  []float64
	names      []string
}

func (d *telemetryCapture) OnDataLayoutRead(
	rec *reader.CurrentRecord, _ int, layout *datalayout.DataLayout,
) bool {
	d.timestamps = append(d.timestamps, rec.Timestamp)
	for _, p := range layout.FixedPieces() {
		switch v := p.(type) {
		case *datalayout.Value[uint32]:
			if v.Label() == "frame_counter" {
				d.counters = append(d.counters, v.GetValue())
			}
		case *datalayout.Value[float64]:
			if v.Label() == "exposure_ms" {
				d.exposures = append(d.exposures, v.GetValue())
			}
		}
	}
	for _, p := range layout.VarPieces() {
		if s, ok := p.(*datalayout.String); ok && s.Label() == "device_name" {
			if name, ok := s.Get(); ok {
				d.names = append(d.names, name)
			}
		}
	}
	return true
}

func TestRecordFormatPlayback(t *testing.T) {
	Convey("playing format-described records back through a delegate", t, func() {
		r := openCameraFile(t)
		defer r.Close()
		ctx := context.Background()

		So(r.RecordFormats(cameraStream), ShouldHaveLength, 2)

		capture := &telemetryCapture{}
		player := reader.NewRecordFormatPlayer(capture)
		r.SetStreamPlayer(cameraStream, player)
		So(r.StreamPlayer(cameraStream), ShouldEqual, player)

		Convey("every record of the stream decodes in order", func() {
			for _, info := range r.StreamIndex(cameraStream) {
				So(r.ReadRecord(ctx, info), ShouldBeNil)
			}
			So(capture.timestamps, ShouldResemble, []float64{0.0, 1.0, 2.0})
			So(capture.names, ShouldResemble, []string{"sensor-unit-7"})
			So(capture.counters, ShouldResemble, []uint32{7, 8})
			So(capture.exposures, ShouldResemble, []float64{21.5, 22.25})
		})

		Convey("the first configuration record can be replayed on its own", func() {
			So(r.ReadFirstConfigurationRecord(ctx, cameraStream, nil), ShouldBeNil)
			So(capture.names, ShouldResemble, []string{"sensor-unit-7"})
			So(capture.counters, ShouldBeEmpty)
		})

		Convey("streams without an attached player read as a no-op", func() {
			mic := r.GetRecordOfStream(micStream, 0)
			So(r.ReadRecord(ctx, mic), ShouldBeNil)
			So(capture.timestamps, ShouldBeEmpty)
		})
	})
}

// imageCapture collects decoded image blocks and anything reported as
// unsupported.
type imageCapture struct {
	reader.BaseFormatDelegate

	images      []recordformat.ContentBlock
	unsupported []recordformat.ContentBlock
}

func (d *imageCapture) OnDataLayoutRead(*reader.CurrentRecord, int, *datalayout.DataLayout) bool {
	return true
}

func (d *imageCapture) OnImageRead(
	_ *reader.CurrentRecord, _ int, block recordformat.ContentBlock,
) bool {
	d.images = append(d.images, block)
	return true
}

func (d *imageCapture) OnUnsupportedBlock(
	_ *reader.CurrentRecord, _ int, block recordformat.ContentBlock,
) bool {
	d.unsupported = append(d.unsupported, block)
	return true
}

// buildRawImageFile writes one image stream whose configuration record
// carries the frame dimensions while the data record holds bare raw pixels,
// with no layout block of its own.
func buildRawImageFile(path string, id record.StreamID) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var fileHeader fileformat.FileHeader
	fileHeader.Init()
	fileHeader.DescriptionRecordOffset = fileformat.FileHeaderSize
	fileHeader.FirstUserRecordOffset = fileformat.FileHeaderSize
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	fileHeader.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}

	b := datalayout.NewBuilder()
	width := datalayout.ValuePiece[uint32](b, conventions.ImageWidthLabel)
	height := datalayout.ValuePiece[uint32](b, conventions.ImageHeightLabel)
	pixelFormat := datalayout.ValuePiece[uint32](b, conventions.ImagePixelFormatLabel)
	imageLayout := b.Build()

	rawSpec := recordformat.NewImageSpec()
	rawSpec.Format = recordformat.ImageFormatRaw

	tags := description.NewStreamTags()
	recordformat.AddRecordFormat(tags.VRS, record.TypeConfiguration, 1,
		recordformat.NewRecordFormat(recordformat.NewDataLayoutBlock()),
		[]string{imageLayout.AsJSON()})
	recordformat.AddRecordFormat(tags.VRS, record.TypeData, 1,
		recordformat.NewRecordFormat(recordformat.NewImageBlock(rawSpec)), nil)

	streamTags := map[record.StreamID]*description.StreamTags{id: tags}
	descSize, err := description.WriteRecord(f, streamTags, nil, 0)
	if err != nil {
		return err
	}

	w := index.NewWriter(&fileHeader)
	defer w.Close()

	width.Set(4)
	height.Set(2)
	pixelFormat.Set(uint32(recordformat.PixelFormatGrey8))
	prev, err := writeUserRecord(f, w, 0.0, id,
		record.TypeConfiguration, imageLayout.GetRawData(), descSize)
	if err != nil {
		return err
	}
	prev, err = writeUserRecord(f, w, 1.0, id,
		record.TypeData, make([]byte, 8), prev)
	if err != nil {
		return err
	}
	_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), prev)
	return err
}

func TestImageSpecFallbackToConfiguration(t *testing.T) {
	Convey("a dimensionless raw image resolves from the configuration record", t, func() {
		id := record.NewStreamID(record.StreamTypeImage, 1)
		path := filepath.Join(t.TempDir(), "rawimage.vrs")
		So(buildRawImageFile(path, id), ShouldBeNil)
		r, err := reader.OpenWithOptions(context.Background(), path,
			reader.Options{Progress: progress.Silent{}})
		So(err, ShouldBeNil)
		defer r.Close()

		capture := &imageCapture{}
		r.SetStreamPlayer(id, reader.NewRecordFormatPlayer(capture))
		ctx := context.Background()

		// the configuration read is what makes the dimensions known
		So(r.ReadFirstConfigurationRecord(ctx, id, nil), ShouldBeNil)
		data := r.GetRecordOfType(id, record.TypeData, 0)
		So(data, ShouldNotBeNil)
		So(r.ReadRecord(ctx, data), ShouldBeNil)

		So(capture.unsupported, ShouldBeEmpty)
		So(capture.images, ShouldHaveLength, 1)
		img := capture.images[0].Image
		So(img.Format, ShouldEqual, recordformat.ImageFormatRaw)
		So(img.Width, ShouldEqual, 4)
		So(img.Height, ShouldEqual, 2)
		So(img.Pixel, ShouldEqual, recordformat.PixelFormatGrey8)
		So(capture.images[0].BlockSize(), ShouldEqual, 8)
	})
}

// buildRecalibratedImageFile writes a configuration record carrying two
// dimension layouts, as after a recalibration: the second layout is the one
// in effect for the data record that follows.
func buildRecalibratedImageFile(path string, id record.StreamID) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var fileHeader fileformat.FileHeader
	fileHeader.Init()
	fileHeader.DescriptionRecordOffset = fileformat.FileHeaderSize
	fileHeader.FirstUserRecordOffset = fileformat.FileHeaderSize
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	fileHeader.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}

	buildDimensions := func(w, h uint32) *datalayout.DataLayout {
		b := datalayout.NewBuilder()
		width := datalayout.ValuePiece[uint32](b, conventions.ImageWidthLabel)
		height := datalayout.ValuePiece[uint32](b, conventions.ImageHeightLabel)
		pixelFormat := datalayout.ValuePiece[uint32](b, conventions.ImagePixelFormatLabel)
		l := b.Build()
		width.Set(w)
		height.Set(h)
		pixelFormat.Set(uint32(recordformat.PixelFormatGrey8))
		return l
	}
	initial := buildDimensions(4, 2)
	recalibrated := buildDimensions(8, 4)

	rawSpec := recordformat.NewImageSpec()
	rawSpec.Format = recordformat.ImageFormatRaw

	tags := description.NewStreamTags()
	recordformat.AddRecordFormat(tags.VRS, record.TypeConfiguration, 1,
		recordformat.NewRecordFormat(
			recordformat.NewDataLayoutBlock(), recordformat.NewDataLayoutBlock()),
		[]string{initial.AsJSON(), recalibrated.AsJSON()})
	recordformat.AddRecordFormat(tags.VRS, record.TypeData, 1,
		recordformat.NewRecordFormat(recordformat.NewImageBlock(rawSpec)), nil)

	streamTags := map[record.StreamID]*description.StreamTags{id: tags}
	descSize, err := description.WriteRecord(f, streamTags, nil, 0)
	if err != nil {
		return err
	}

	w := index.NewWriter(&fileHeader)
	defer w.Close()

	configPayload := append(initial.GetRawData(), recalibrated.GetRawData()...)
	prev, err := writeUserRecord(f, w, 0.0, id,
		record.TypeConfiguration, configPayload, descSize)
	if err != nil {
		return err
	}
	prev, err = writeUserRecord(f, w, 1.0, id,
		record.TypeData, make([]byte, 32), prev)
	if err != nil {
		return err
	}
	_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), prev)
	return err
}

func TestImageSpecUsesLatestConfigurationLayout(t *testing.T) {
	Convey("the last matching layout of the configuration record wins", t, func() {
		id := record.NewStreamID(record.StreamTypeImage, 1)
		path := filepath.Join(t.TempDir(), "recalibrated.vrs")
		So(buildRecalibratedImageFile(path, id), ShouldBeNil)
		r, err := reader.OpenWithOptions(context.Background(), path,
			reader.Options{Progress: progress.Silent{}})
		So(err, ShouldBeNil)
		defer r.Close()

		capture := &imageCapture{}
		r.SetStreamPlayer(id, reader.NewRecordFormatPlayer(capture))
		ctx := context.Background()

		So(r.ReadFirstConfigurationRecord(ctx, id, nil), ShouldBeNil)
		data := r.GetRecordOfType(id, record.TypeData, 0)
		So(data, ShouldNotBeNil)
		So(r.ReadRecord(ctx, data), ShouldBeNil)

		So(capture.images, ShouldHaveLength, 1)
		img := capture.images[0].Image
		So(img.Width, ShouldEqual, 8)
		So(img.Height, ShouldEqual, 4)
		So(capture.images[0].BlockSize(), ShouldEqual, 32)
	})
}

// buildSelfDescribedConfigFile writes a configuration record whose format
// puts a bare raw image block before a layout holding image dimensions.
func buildSelfDescribedConfigFile(path string, id record.StreamID) error {
	f, err := file.CreateDiskFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var fileHeader fileformat.FileHeader
	fileHeader.Init()
	fileHeader.DescriptionRecordOffset = fileformat.FileHeaderSize
	fileHeader.FirstUserRecordOffset = fileformat.FileHeaderSize
	headerBuf := make([]byte, fileformat.FileHeaderSize)
	fileHeader.MarshalTo(headerBuf)
	if err = f.Write(headerBuf); err != nil {
		return err
	}

	b := datalayout.NewBuilder()
	width := datalayout.ValuePiece[uint32](b, conventions.ImageWidthLabel)
	height := datalayout.ValuePiece[uint32](b, conventions.ImageHeightLabel)
	pixelFormat := datalayout.ValuePiece[uint32](b, conventions.ImagePixelFormatLabel)
	dims := b.Build()
	width.Set(8)
	height.Set(4)
	pixelFormat.Set(uint32(recordformat.PixelFormatGrey8))

	rawSpec := recordformat.NewImageSpec()
	rawSpec.Format = recordformat.ImageFormatRaw

	tags := description.NewStreamTags()
	recordformat.AddRecordFormat(tags.VRS, record.TypeConfiguration, 1,
		recordformat.NewRecordFormat(
			recordformat.NewImageBlock(rawSpec), recordformat.NewDataLayoutBlock()),
		[]string{"", dims.AsJSON()})

	streamTags := map[record.StreamID]*description.StreamTags{id: tags}
	descSize, err := description.WriteRecord(f, streamTags, nil, 0)
	if err != nil {
		return err
	}

	w := index.NewWriter(&fileHeader)
	defer w.Close()

	prev, err := writeUserRecord(f, w, 0.0, id,
		record.TypeConfiguration, dims.GetRawData(), descSize)
	if err != nil {
		return err
	}
	_, err = w.FinalizeClassicIndexRecord(context.Background(), f, f.Pos(), prev)
	return err
}

func TestConfigurationImageDoesNotSelfResolve(t *testing.T) {
	Convey("a configuration record never borrows specs from a configuration read", t, func() {
		id := record.NewStreamID(record.StreamTypeImage, 1)
		path := filepath.Join(t.TempDir(), "selfdescribed.vrs")
		So(buildSelfDescribedConfigFile(path, id), ShouldBeNil)
		r, err := reader.OpenWithOptions(context.Background(), path,
			reader.Options{Progress: progress.Silent{}})
		So(err, ShouldBeNil)
		defer r.Close()

		capture := &imageCapture{}
		r.SetStreamPlayer(id, reader.NewRecordFormatPlayer(capture))
		ctx := context.Background()

		// twice: on the second read the dimensions layout holds data, and
		// must still not be consulted for the record's own image block
		cfg := r.GetRecordOfType(id, record.TypeConfiguration, 0)
		So(cfg, ShouldNotBeNil)
		So(r.ReadRecord(ctx, cfg), ShouldBeNil)
		So(r.ReadRecord(ctx, cfg), ShouldBeNil)

		So(capture.images, ShouldBeEmpty)
		So(capture.unsupported, ShouldHaveLength, 2)
	})
}
