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

// Package conventions defines the well-known layout field names that let
// content-block readers find an image or audio block's format inside a
// data_layout block, either earlier in the same record or in the stream's
// last configuration record.
package conventions

import (
	// this project.
	"github.com/linkall-labs/vrs/internal/datalayout"
	"github.com/linkall-labs/vrs/internal/recordformat"
)

// Field names are persisted in layout descriptions, never change them.
const (
	NextContentBlockSizeLabel = "next_content_block_size"
	NextAudioSampleCountLabel = "next_audio_content_block_sample_count"

	ImageWidthLabel         = "image_width"
	ImageHeightLabel        = "image_height"
	ImageStrideLabel        = "image_stride"
	ImageStride2Label       = "image_stride_2"
	ImagePixelFormatLabel   = "image_pixel_format"
	ImageBytesPerPixelLabel = "image_bytes_per_pixel"
	ImageCodecNameLabel     = "image_codec_name"
	ImageCodecQualityLabel  = "image_codec_quality"

	ImageKeyFrameTimestampLabel = "image_key_frame_timestamp"
	ImageKeyFrameIndexLabel     = "image_key_frame_index"

	AudioFormatLabel          = "audio_format"
	AudioSampleFormatLabel    = "audio_sample_format"
	AudioSampleStrideLabel    = "audio_sample_stride"
	AudioChannelCountLabel    = "audio_channel_count"
	AudioSampleRateLabel      = "audio_sample_rate"
	AudioSampleCountLabel     = "audio_sample_count"
	AudioStereoPairCountLabel = "audio_stereo_pair_count"
)

// NextContentBlockSpec looks for the size of the content block following a
// data_layout block, for blocks that cannot size themselves.
type NextContentBlockSpec struct {
	Layout *datalayout.DataLayout

	NextContentBlockSize *datalayout.Value[uint32]
	NextAudioSampleCount *datalayout.Value[uint32]
}

func NewNextContentBlockSpec() *NextContentBlockSpec {
	b := datalayout.NewBuilder()
	spec := &NextContentBlockSpec{
		NextContentBlockSize: datalayout.ValuePiece[uint32](b, NextContentBlockSizeLabel),
		NextAudioSampleCount: datalayout.ValuePiece[uint32](b, NextAudioSampleCountLabel),
	}
	spec.Layout = b.Build()
	return spec
}

// ImageSpec looks for the conventional fields describing an image block.
// Once mapped onto a block's layout, the mapping is reused for every later
// record, rereading the current values each time so configuration changes
// are picked up without a new search.
type ImageSpec struct {
	Layout *datalayout.DataLayout

	Width       *datalayout.Value[uint32]
	Height      *datalayout.Value[uint32]
	Stride      *datalayout.Value[uint32]
	Stride2     *datalayout.Value[uint32]
	PixelFormat *datalayout.Value[uint32]

	CodecName    *datalayout.String
	CodecQuality *datalayout.Value[uint32]

	// Legacy recordings spell a byte count instead of a pixel format.
	BytesPerPixel  *datalayout.Value[uint32]
	BytesPerPixel8 *datalayout.Value[uint8]
}

func NewImageSpec() *ImageSpec {
	b := datalayout.NewBuilder()
	spec := &ImageSpec{
		Width:          datalayout.ValuePiece[uint32](b, ImageWidthLabel),
		Height:         datalayout.ValuePiece[uint32](b, ImageHeightLabel),
		Stride:         datalayout.ValuePiece[uint32](b, ImageStrideLabel),
		Stride2:        datalayout.ValuePiece[uint32](b, ImageStride2Label),
		PixelFormat:    datalayout.ValuePiece[uint32](b, ImagePixelFormatLabel),
		CodecName:      datalayout.StringPiece(b, ImageCodecNameLabel),
		CodecQuality:   datalayout.ValuePiece[uint32](b, ImageCodecQualityLabel),
		BytesPerPixel:  datalayout.ValuePiece[uint32](b, ImageBytesPerPixelLabel),
		BytesPerPixel8: datalayout.ValuePiece[uint8](b, ImageBytesPerPixelLabel),
	}
	spec.CodecQuality.SetDefault(uint32(recordformat.CodecQualityUndefined))
	spec.Layout = b.Build()
	return spec
}

// pixelFormat reads the mapped pixel format, falling back to legacy
// byte-count fields when pixel format was never recorded.
func (s *ImageSpec) pixelFormat() recordformat.PixelFormat {
	if v, ok := s.PixelFormat.Get(); ok &&
		v > 0 && v <= uint32(recordformat.PixelFormatYuv420Nv12) {
		return recordformat.PixelFormat(v)
	}
	bytesPerPixel, ok := s.BytesPerPixel.Get()
	if !ok || bytesPerPixel == 0 {
		if v8, ok8 := s.BytesPerPixel8.Get(); ok8 {
			bytesPerPixel = uint32(v8)
		}
	}
	switch bytesPerPixel {
	case 1:
		return recordformat.PixelFormatGrey8
	case 3:
		return recordformat.PixelFormatRgb8
	case 4:
		return recordformat.PixelFormatDepth32F
	case 8:
		return recordformat.PixelFormatScalar64F
	}
	return recordformat.PixelFormatUndefined
}

// ImageContentBlock derives the image block's full description from the
// mapped fields, interpreting legacy recordings without a pixel format.
// base carries what the record format itself declared, blockSize the block's
// resolved byte size which encoded formats require. ok is false when the
// mapped fields cannot describe the block.
func (s *ImageSpec) ImageContentBlock(
	base recordformat.ImageSpec, blockSize uint32,
) (recordformat.ContentBlock, bool) {
	width, _ := s.Width.Get()
	height, _ := s.Height.Get()
	var pixel recordformat.PixelFormat
	if width > 0 && height > 0 {
		pixel = s.pixelFormat()
	}
	hasMinRawSpec := width > 0 && height > 0 && pixel != recordformat.PixelFormatUndefined

	switch base.Format {
	case recordformat.ImageFormatRaw:
		if hasMinRawSpec {
			spec := recordformat.NewRawImageSpec(pixel, width, height, s.Stride.GetValue())
			spec.Stride2 = s.Stride2.GetValue()
			return recordformat.NewImageBlock(spec), true
		}
	case recordformat.ImageFormatVideo, recordformat.ImageFormatCustomCodec:
		if blockSize == recordformat.SizeUnknown {
			break
		}
		codecName, _ := s.CodecName.Get()
		foundCodecName := codecName != ""
		if !foundCodecName {
			codecName = base.CodecName
		}
		quality := uint8(recordformat.CodecQualityUndefined)
		if q, ok := s.CodecQuality.Get(); ok && q <= 100 {
			quality = uint8(q)
		} else if base.CodecQuality <= 100 {
			quality = base.CodecQuality
		}
		if base.Format == recordformat.ImageFormatVideo {
			if codecName == "" || !hasMinRawSpec {
				break
			}
		} else if !foundCodecName && !(codecName != "" && hasMinRawSpec) {
			break
		}
		spec := recordformat.NewImageSpec()
		spec.Format = base.Format
		spec.Pixel = pixel
		spec.Width = width
		spec.Height = height
		spec.Stride = s.Stride.GetValue()
		spec.Stride2 = s.Stride2.GetValue()
		spec.CodecName = codecName
		spec.CodecQuality = quality
		block := recordformat.NewImageBlock(spec)
		block.Size = blockSize
		return block, true
	}
	return recordformat.ContentBlock{}, false
}

// VideoFrameSpec looks for the key frame a video frame depends on, declared
// in the data_layout block immediately preceding the image block.
type VideoFrameSpec struct {
	Layout *datalayout.DataLayout

	KeyFrameTimestamp *datalayout.Value[float64]
	KeyFrameIndex     *datalayout.Value[uint32]
}

func NewVideoFrameSpec() *VideoFrameSpec {
	b := datalayout.NewBuilder()
	spec := &VideoFrameSpec{
		KeyFrameTimestamp: datalayout.ValuePiece[float64](b, ImageKeyFrameTimestampLabel),
		KeyFrameIndex:     datalayout.ValuePiece[uint32](b, ImageKeyFrameIndexLabel),
	}
	spec.Layout = b.Build()
	return spec
}

func (s *VideoFrameSpec) HasVideoSpec() bool {
	return s.Layout.IsMapped() &&
		s.KeyFrameTimestamp.IsAvailable() && s.KeyFrameIndex.IsAvailable()
}

// AudioSpec looks for the conventional fields describing an audio block.
type AudioSpec struct {
	Layout *datalayout.DataLayout

	AudioFormat     *datalayout.Value[uint8]
	SampleFormat    *datalayout.Value[uint8]
	SampleStride    *datalayout.Value[uint8]
	ChannelCount    *datalayout.Value[uint8]
	SampleRate      *datalayout.Value[uint32]
	SampleCount     *datalayout.Value[uint32]
	StereoPairCount *datalayout.Value[uint8]
}

func NewAudioSpec() *AudioSpec {
	b := datalayout.NewBuilder()
	spec := &AudioSpec{
		AudioFormat:     datalayout.ValuePiece[uint8](b, AudioFormatLabel),
		SampleFormat:    datalayout.ValuePiece[uint8](b, AudioSampleFormatLabel),
		SampleStride:    datalayout.ValuePiece[uint8](b, AudioSampleStrideLabel),
		ChannelCount:    datalayout.ValuePiece[uint8](b, AudioChannelCountLabel),
		SampleRate:      datalayout.ValuePiece[uint32](b, AudioSampleRateLabel),
		SampleCount:     datalayout.ValuePiece[uint32](b, AudioSampleCountLabel),
		StereoPairCount: datalayout.ValuePiece[uint8](b, AudioStereoPairCountLabel),
	}
	spec.Layout = b.Build()
	return spec
}

// AudioContentBlock derives the audio block's description from the mapped
// fields. fallbackSampleCount fills in when no sample count was recorded.
// ok is false when the mapped fields are incomplete or inconsistent.
func (s *AudioSpec) AudioContentBlock(
	fallbackSampleCount uint32,
) (recordformat.ContentBlock, bool) {
	// recordings predating the audio format field are PCM
	format := recordformat.AudioFormatPcm
	if v, ok := s.AudioFormat.Get(); ok {
		format = recordformat.AudioFormat(v)
	}
	sample, _ := s.SampleFormat.Get()
	sampleFormat := recordformat.SampleFormat(sample)
	channelCount, _ := s.ChannelCount.Get()
	sampleRate, _ := s.SampleRate.Get()
	if format == recordformat.AudioFormatUndefined || format > recordformat.AudioFormatOpus ||
		sampleFormat == recordformat.SampleFormatUndefined ||
		sampleFormat > recordformat.SampleFormatF64BE ||
		channelCount == 0 || sampleRate == 0 {
		return recordformat.ContentBlock{}, false
	}
	minFrameSize := uint32(sampleFormat.BytesPerSample()) * uint32(channelCount)
	stride, _ := s.SampleStride.Get()
	if stride > 0 &&
		(uint32(stride) < minFrameSize || uint32(stride) > minFrameSize+uint32(channelCount)*3) {
		// implausible frame alignment, distrust the whole mapping
		return recordformat.ContentBlock{}, false
	}
	sampleCount, _ := s.SampleCount.Get()
	if sampleCount == 0 {
		sampleCount = fallbackSampleCount
	}
	spec := recordformat.AudioSpec{
		Format:       format,
		Sample:       sampleFormat,
		ChannelCount: channelCount,
		SampleStride: stride,
		SampleRate:   sampleRate,
		SampleCount:  sampleCount,
	}
	return recordformat.NewAudioBlock(spec), true
}
