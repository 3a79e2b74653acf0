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

package recordformat

import (
	// standard libraries.
	"fmt"
	"strconv"
	"strings"
)

// ImageFormat tells how an image block's pixel data is encoded. Names are
// persisted in stream tags, never change them.
type ImageFormat uint8

const (
	ImageFormatUndefined ImageFormat = iota
	// ImageFormatRaw is uncompressed pixel data, fully described by the
	// pixel format, dimensions and strides.
	ImageFormatRaw
	ImageFormatJpg
	ImageFormatPng
	// ImageFormatVideo is a frame encoded by a video codec, decodable only
	// in sequence from the nearest key frame.
	ImageFormatVideo
	ImageFormatJxl
	ImageFormatCustomCodec
)

var imageFormatNames = []string{
	"undefined", "raw", "jpg", "png", "video", "jxl", "custom_codec",
}

func (f ImageFormat) String() string {
	if int(f) < len(imageFormatNames) {
		return imageFormatNames[f]
	}
	return "undefined"
}

func parseImageFormat(s string) ImageFormat {
	for i, name := range imageFormatNames {
		if s == name {
			return ImageFormat(i)
		}
	}
	return ImageFormatUndefined
}

// PixelFormat tells how raw pixels are packed. Values and names are
// persisted in stream tags, never renumber or rename them.
type PixelFormat uint8

const (
	PixelFormatUndefined PixelFormat = iota
	PixelFormatGrey8
	PixelFormatBgr8
	PixelFormatDepth32F
	PixelFormatRgb8
	PixelFormatYuvI420Split
	PixelFormatRgba8
	PixelFormatRgb10
	PixelFormatRgb12
	PixelFormatGrey10
	PixelFormatGrey12
	PixelFormatGrey16
	PixelFormatRgb32F
	PixelFormatScalar64F
	PixelFormatYuy2
	PixelFormatRgbIr4x4
	PixelFormatRgba32F
	PixelFormatBayer8Rggb
	PixelFormatRaw10
	PixelFormatRaw10BayerRggb
	PixelFormatRaw10BayerBggr
	PixelFormatYuv420Nv21
	PixelFormatYuv420Nv12
)

var pixelFormatNames = []string{
	"undefined", "grey8", "bgr8", "depth32f", "rgb8",
	"yuv_i420_split", "rgba8", "rgb10", "rgb12", "grey10",
	"grey12", "grey16", "rgb32F", "scalar64F", "yuy2",
	"rgb_ir_4x4", "rgba32F", "bayer8_rggb", "raw10", "raw10_bayer_rggb",
	"raw10_bayer_bggr", "yuv_420_nv21", "yuv_420_nv12",
}

func (f PixelFormat) String() string {
	if int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return "undefined"
}

func parsePixelFormat(s string) PixelFormat {
	for i, name := range pixelFormatNames {
		if s == name {
			return PixelFormat(i)
		}
	}
	return PixelFormatUndefined
}

// BytesPerPixel is the packed pixel byte size, or SizeUnknown for formats
// whose pixels do not fit in whole successive bytes.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case PixelFormatGrey8, PixelFormatRgbIr4x4, PixelFormatBayer8Rggb:
		return 1
	case PixelFormatGrey10, PixelFormatGrey12, PixelFormatGrey16:
		return 2
	case PixelFormatRgb8, PixelFormatBgr8:
		return 3
	case PixelFormatDepth32F, PixelFormatRgba8:
		return 4
	case PixelFormatRgb10, PixelFormatRgb12:
		return 6
	case PixelFormatScalar64F:
		return 8
	case PixelFormatRgb32F:
		return 12
	case PixelFormatRgba32F:
		return 16
	}
	return SizeUnknown
}

// ChannelCount is the number of logical channels per pixel, independent of
// the memory representation.
func (f PixelFormat) ChannelCount() uint8 {
	switch f {
	case PixelFormatGrey8, PixelFormatGrey10, PixelFormatGrey12, PixelFormatGrey16,
		PixelFormatDepth32F, PixelFormatScalar64F, PixelFormatBayer8Rggb,
		PixelFormatRaw10, PixelFormatRaw10BayerRggb, PixelFormatRaw10BayerBggr:
		return 1
	case PixelFormatBgr8, PixelFormatRgb8, PixelFormatRgb10, PixelFormatRgb12,
		PixelFormatRgb32F, PixelFormatRgbIr4x4, PixelFormatYuvI420Split,
		PixelFormatYuy2, PixelFormatYuv420Nv21, PixelFormatYuv420Nv12:
		return 3
	case PixelFormatRgba8, PixelFormatRgba32F:
		return 4
	}
	return 0
}

// PlaneCount tells how many separate pixel planes the format stores.
func (f PixelFormat) PlaneCount() uint32 {
	switch f {
	case PixelFormatYuvI420Split:
		return 3
	case PixelFormatYuv420Nv21, PixelFormatYuv420Nv12:
		return 2
	}
	return 1
}

const (
	// CodecQualityUndefined means no codec quality was recorded.
	CodecQualityUndefined = uint8(255)
	// InvalidTimestamp marks an unset key frame timestamp.
	InvalidTimestamp = -1e-308
)

// ImageSpec describes an image content block: encoding, dimensions, pixel
// packing, and for video frames the key frame they depend on.
type ImageSpec struct {
	Format       ImageFormat
	Pixel        PixelFormat
	Width        uint32
	Height       uint32
	Stride       uint32
	Stride2      uint32
	CodecName    string
	CodecQuality uint8

	KeyFrameTimestamp float64
	KeyFrameIndex     uint32
}

func NewImageSpec() ImageSpec {
	return ImageSpec{
		CodecQuality:      CodecQualityUndefined,
		KeyFrameTimestamp: InvalidTimestamp,
	}
}

// NewRawImageSpec describes an uncompressed image.
func NewRawImageSpec(pixel PixelFormat, width, height, stride uint32) ImageSpec {
	spec := NewImageSpec()
	spec.Format = ImageFormatRaw
	spec.Pixel = pixel
	spec.Width = width
	spec.Height = height
	spec.Stride = stride
	return spec
}

// ParseImageSpec rebuilds a spec from its persisted "/"-separated form,
// e.g. "raw/640x480/pixel=grey8/stride=648". Unrecognized parts are skipped.
func ParseImageSpec(s string) ImageSpec {
	spec := NewImageSpec()
	parts := strings.Split(s, "/")
	spec.Format = parseImageFormat(parts[0])
	if spec.Format == ImageFormatUndefined {
		return spec
	}
	spec.setParts(parts[1:])
	return spec
}

func (s *ImageSpec) setParts(parts []string) {
	for _, part := range parts {
		switch {
		case s.Width == 0 && parseDimensions(part, &s.Width, &s.Height):
		case s.Pixel == PixelFormatUndefined && strings.HasPrefix(part, "pixel="):
			s.Pixel = parsePixelFormat(part[len("pixel="):])
		case s.Stride == 0 && parseUintPart(part, "stride=", &s.Stride):
		case s.Stride2 == 0 && parseUintPart(part, "stride_2=", &s.Stride2):
		case s.CodecName == "" && strings.HasPrefix(part, "codec="):
			s.CodecName = unescapeString(part[len("codec="):])
		case strings.HasPrefix(part, "codec_quality="):
			var quality uint32
			if parseUintPart(part, "codec_quality=", &quality) && quality <= 100 {
				s.CodecQuality = uint8(quality)
			}
		case strings.HasPrefix(part, "keyframe_timestamp="):
			if ts, err := strconv.ParseFloat(part[len("keyframe_timestamp="):], 64); err == nil {
				s.KeyFrameTimestamp = ts
			}
		case parseUintPart(part, "keyframe_index=", &s.KeyFrameIndex):
		}
	}
}

func parseDimensions(part string, width, height *uint32) bool {
	x := strings.IndexByte(part, 'x')
	if x <= 0 {
		return false
	}
	w, err := strconv.ParseUint(part[:x], 10, 32)
	if err != nil {
		return false
	}
	h, err := strconv.ParseUint(part[x+1:], 10, 32)
	if err != nil {
		return false
	}
	*width = uint32(w)
	*height = uint32(h)
	return true
}

func parseUintPart(part, prefix string, out *uint32) bool {
	if !strings.HasPrefix(part, prefix) {
		return false
	}
	v, err := strconv.ParseUint(part[len(prefix):], 10, 32)
	if err != nil {
		return false
	}
	*out = uint32(v)
	return true
}

// String is the persisted form, parseable back by ParseImageSpec.
func (s ImageSpec) String() string {
	if s.Format == ImageFormatUndefined {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Format.String())
	if s.Width > 0 && s.Height > 0 {
		fmt.Fprintf(&b, "/%dx%d", s.Width, s.Height)
	}
	if s.Pixel != PixelFormatUndefined {
		b.WriteString("/pixel=")
		b.WriteString(s.Pixel.String())
	}
	if s.Format == ImageFormatRaw || s.Format == ImageFormatVideo ||
		s.Format == ImageFormatCustomCodec {
		if s.Stride > 0 {
			fmt.Fprintf(&b, "/stride=%d", s.Stride)
		}
		if s.Stride2 > 0 {
			fmt.Fprintf(&b, "/stride_2=%d", s.Stride2)
		}
		if s.Format == ImageFormatVideo || s.Format == ImageFormatCustomCodec {
			if s.CodecName != "" {
				b.WriteString("/codec=")
				b.WriteString(escapeString(s.CodecName))
			}
			if s.CodecQuality <= 100 {
				fmt.Fprintf(&b, "/codec_quality=%d", s.CodecQuality)
			}
			if s.Format == ImageFormatVideo && s.KeyFrameTimestamp != InvalidTimestamp {
				fmt.Fprintf(&b, "/keyframe_timestamp=%.9f/keyframe_index=%d",
					s.KeyFrameTimestamp, s.KeyFrameIndex)
			}
		}
	}
	return b.String()
}

// DefaultStride computes the first plane's natural stride from the pixel
// format and width when no explicit stride was recorded.
func (s ImageSpec) DefaultStride() uint32 {
	if bpp := s.Pixel.BytesPerPixel(); bpp != SizeUnknown {
		return s.Width * bpp
	}
	switch s.Pixel {
	case PixelFormatYuvI420Split, PixelFormatYuv420Nv21, PixelFormatYuv420Nv12:
		return s.Width
	case PixelFormatRaw10, PixelFormatRaw10BayerRggb, PixelFormatRaw10BayerBggr:
		// groups of 4 pixels use 5 bytes, sharing the 5th for the low bits
		return (s.Width + 3) / 4 * 5
	case PixelFormatYuy2:
		// groups of 2 pixels store their data in 4 bytes
		return (s.Width + 1) / 2 * 4
	}
	return 0
}

func (s ImageSpec) defaultStride2() uint32 {
	switch s.Pixel {
	case PixelFormatYuvI420Split:
		// half the width, half the height
		return (s.Width + 1) / 2
	case PixelFormatYuv420Nv21, PixelFormatYuv420Nv12:
		// one U+V pair for each 2x2 block of pixels
		return s.Width + s.Width%2
	}
	return 0
}

// PlaneStride is the byte stride of one pixel plane.
func (s ImageSpec) PlaneStride(plane uint32) uint32 {
	if plane == 0 {
		if s.Stride > 0 {
			return s.Stride
		}
		return s.DefaultStride()
	}
	if plane >= s.Pixel.PlaneCount() {
		return 0
	}
	if s.Stride2 > 0 {
		return s.Stride2
	}
	return s.defaultStride2()
}

// PlaneHeight is the row count of one pixel plane.
func (s ImageSpec) PlaneHeight(plane uint32) uint32 {
	if plane == 0 {
		return s.Height
	}
	if plane >= s.Pixel.PlaneCount() {
		return 0
	}
	switch s.Pixel {
	case PixelFormatYuvI420Split, PixelFormatYuv420Nv21, PixelFormatYuv420Nv12:
		return (s.Height + 1) / 2
	}
	return 0
}

// BlockSize is the byte size of the block, computable only for raw images.
func (s ImageSpec) BlockSize() uint32 {
	if s.Format != ImageFormatRaw {
		return SizeUnknown
	}
	return s.RawImageSize()
}

// RawImageSize sums the sizes of all pixel planes.
func (s ImageSpec) RawImageSize() uint32 {
	if s.Pixel == PixelFormatUndefined || s.Width == 0 || s.Height == 0 {
		return SizeUnknown
	}
	size := uint32(0)
	for plane := uint32(0); plane < s.Pixel.PlaneCount(); plane++ {
		size += s.PlaneStride(plane) * s.PlaneHeight(plane)
	}
	if size == 0 {
		return SizeUnknown
	}
	return size
}

// Core strips the per-frame parts (key frame reference) and default strides,
// leaving the fields that identify the stream's image configuration.
func (s ImageSpec) Core() ImageSpec {
	core := NewImageSpec()
	core.Format = s.Format
	core.Pixel = s.Pixel
	core.Width = s.Width
	core.Height = s.Height
	core.CodecName = s.CodecName
	if s.Stride > 0 && s.Stride != s.DefaultStride() {
		core.Stride = s.Stride
	}
	if s.Stride2 > 0 && s.Stride2 != s.defaultStride2() {
		core.Stride2 = s.Stride2
	}
	return core
}

const escapeChars = "+/\\% \"'"

// escapeString protects the "/" and "+" separators of the persisted syntax,
// percent-encoding them the way URLs do.
func escapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 32 || c >= 127 || strings.IndexByte(escapeChars, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
