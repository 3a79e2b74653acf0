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
	"strings"
)

// AudioFormat tells how an audio block's samples are encoded.
type AudioFormat uint8

const (
	AudioFormatUndefined AudioFormat = iota
	AudioFormatPcm
	AudioFormatOpus
)

var audioFormatNames = []string{"undefined", "pcm", "opus"}

func (f AudioFormat) String() string {
	if int(f) < len(audioFormatNames) {
		return audioFormatNames[f]
	}
	return "undefined"
}

func parseAudioFormat(s string) AudioFormat {
	for i, name := range audioFormatNames {
		if s == name {
			return AudioFormat(i)
		}
	}
	return AudioFormatUndefined
}

// SampleFormat tells how one PCM audio sample is packed. Values and names
// are persisted in stream tags, never renumber or rename them.
type SampleFormat uint8

const (
	SampleFormatUndefined SampleFormat = iota
	SampleFormatS8
	SampleFormatU8
	SampleFormatALaw
	SampleFormatMuLaw
	SampleFormatS16LE
	SampleFormatU16LE
	SampleFormatS16BE
	SampleFormatU16BE
	SampleFormatS24LE
	SampleFormatU24LE
	SampleFormatS24BE
	SampleFormatU24BE
	SampleFormatS32LE
	SampleFormatU32LE
	SampleFormatS32BE
	SampleFormatU32BE
	SampleFormatF32LE
	SampleFormatF32BE
	SampleFormatF64LE
	SampleFormatF64BE
)

var sampleFormatNames = []string{
	"undefined", "int8", "uint8", "uint8alaw", "uint8mulaw", "int16le", "uint16le",
	"int16be", "uint16be", "int24le", "uint24le", "int24be", "uint24be", "int32le",
	"uint32le", "int32be", "uint32be", "float32le", "float32be", "float64le", "float64be",
}

func (f SampleFormat) String() string {
	if int(f) < len(sampleFormatNames) {
		return sampleFormatNames[f]
	}
	return "undefined"
}

func parseSampleFormat(s string) SampleFormat {
	for i, name := range sampleFormatNames {
		if s == name {
			return SampleFormat(i)
		}
	}
	return SampleFormatUndefined
}

// BitsPerSample is the sample's bit width.
func (f SampleFormat) BitsPerSample() uint8 {
	switch f {
	case SampleFormatS8, SampleFormatU8, SampleFormatALaw, SampleFormatMuLaw:
		return 8
	case SampleFormatS16LE, SampleFormatS16BE, SampleFormatU16LE, SampleFormatU16BE:
		return 16
	case SampleFormatS24LE, SampleFormatS24BE, SampleFormatU24LE, SampleFormatU24BE:
		return 24
	case SampleFormatS32LE, SampleFormatS32BE, SampleFormatU32LE, SampleFormatU32BE,
		SampleFormatF32LE, SampleFormatF32BE:
		return 32
	case SampleFormatF64LE, SampleFormatF64BE:
		return 64
	}
	return 0
}

func (f SampleFormat) BytesPerSample() uint8 {
	return (f.BitsPerSample() + 7) / 8
}

// IsLittleEndian reports the sample's byte order. Single-byte formats count
// as little-endian.
func (f SampleFormat) IsLittleEndian() bool {
	switch f {
	case SampleFormatS16BE, SampleFormatU16BE, SampleFormatS24BE, SampleFormatU24BE,
		SampleFormatS32BE, SampleFormatU32BE, SampleFormatF32BE, SampleFormatF64BE:
		return false
	}
	return true
}

func (f SampleFormat) IsIEEEFloat() bool {
	switch f {
	case SampleFormatF32LE, SampleFormatF32BE, SampleFormatF64LE, SampleFormatF64BE:
		return true
	}
	return false
}

// AudioSpec describes an audio content block.
type AudioSpec struct {
	Format       AudioFormat
	Sample       SampleFormat
	ChannelCount uint8
	// SampleStride is the byte distance between successive sample frames; 0
	// means packed.
	SampleStride uint8
	SampleRate   uint32
	SampleCount  uint32
}

// NewPcmAudioSpec describes packed PCM audio.
func NewPcmAudioSpec(sample SampleFormat, channelCount uint8, sampleRate uint32) AudioSpec {
	return AudioSpec{
		Format:       AudioFormatPcm,
		Sample:       sample,
		ChannelCount: channelCount,
		SampleRate:   sampleRate,
	}
}

// ParseAudioSpec rebuilds a spec from its persisted "/"-separated form,
// e.g. "pcm/int16le/channels=2/rate=48000". Unrecognized parts are skipped.
func ParseAudioSpec(s string) AudioSpec {
	var spec AudioSpec
	parts := strings.Split(s, "/")
	spec.Format = parseAudioFormat(parts[0])
	if spec.Format == AudioFormatUndefined {
		return spec
	}
	spec.setParts(parts[1:])
	return spec
}

func (s *AudioSpec) setParts(parts []string) {
	var tmp uint32
	for _, part := range parts {
		switch {
		case s.Sample == SampleFormatUndefined && parseSampleFormat(part) != SampleFormatUndefined:
			s.Sample = parseSampleFormat(part)
		case s.ChannelCount == 0 && parseUintPart(part, "channels=", &tmp):
			s.ChannelCount = uint8(tmp)
		case s.SampleRate == 0 && parseUintPart(part, "rate=", &s.SampleRate):
		case s.SampleCount == 0 && parseUintPart(part, "samples=", &s.SampleCount):
		case s.SampleStride == 0 && parseUintPart(part, "stride=", &tmp):
			s.SampleStride = uint8(tmp)
		}
	}
}

// String is the persisted form, parseable back by ParseAudioSpec.
func (s AudioSpec) String() string {
	if s.Format == AudioFormatUndefined {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Format.String())
	if s.Sample != SampleFormatUndefined {
		b.WriteString("/")
		b.WriteString(s.Sample.String())
	}
	if s.ChannelCount != 0 {
		fmt.Fprintf(&b, "/channels=%d", s.ChannelCount)
	}
	if s.SampleRate != 0 {
		fmt.Fprintf(&b, "/rate=%d", s.SampleRate)
	}
	if s.SampleCount != 0 {
		fmt.Fprintf(&b, "/samples=%d", s.SampleCount)
	}
	if uint32(s.FrameStride())*8 != uint32(s.Sample.BitsPerSample())*uint32(s.ChannelCount) {
		fmt.Fprintf(&b, "/stride=%d", s.SampleStride)
	}
	return b.String()
}

// FrameStride is the byte size of one sample frame, all channels included.
func (s AudioSpec) FrameStride() uint8 {
	if s.SampleStride != 0 {
		return s.SampleStride
	}
	return s.Sample.BytesPerSample() * s.ChannelCount
}

// BlockSize is the byte size of the block, computable only for PCM audio
// with a known sample count.
func (s AudioSpec) BlockSize() uint32 {
	if s.Format != AudioFormatPcm {
		return SizeUnknown
	}
	stride := uint32(s.FrameStride())
	if stride > 0 && s.SampleCount > 0 {
		return stride * s.SampleCount
	}
	return SizeUnknown
}

// IsSampleBlockFormatDefined tells if the spec is complete enough to
// interpret sample data.
func (s AudioSpec) IsSampleBlockFormatDefined() bool {
	return s.Format == AudioFormatPcm &&
		s.Sample != SampleFormatUndefined && s.ChannelCount != 0
}

// IsCompatibleWith tells if two specs describe the same sample layout,
// ignoring the per-block sample count.
func (s AudioSpec) IsCompatibleWith(other AudioSpec) bool {
	return s.Sample == other.Sample && s.ChannelCount == other.ChannelCount &&
		s.FrameStride() == other.FrameStride() && s.SampleRate == other.SampleRate
}
