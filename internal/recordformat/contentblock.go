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

const customFormatPrefix = "format="

// ContentBlock is one typed segment of a record's payload: its content type,
// an optional static byte size, and the image or audio spec when relevant.
type ContentBlock struct {
	Type ContentType
	// Size is the static byte size, or SizeUnknown when it must be resolved
	// from context.
	Size uint32

	Image ImageSpec
	Audio AudioSpec
	// CustomFormat optionally names the format of a custom block.
	CustomFormat string
}

func NewContentBlock(t ContentType, size uint32) ContentBlock {
	return ContentBlock{Type: t, Size: size, Image: NewImageSpec()}
}

func NewEmptyBlock() ContentBlock {
	return NewContentBlock(ContentTypeEmpty, SizeUnknown)
}

func NewDataLayoutBlock() ContentBlock {
	return NewContentBlock(ContentTypeDataLayout, SizeUnknown)
}

func NewImageBlock(spec ImageSpec) ContentBlock {
	b := NewContentBlock(ContentTypeImage, SizeUnknown)
	b.Image = spec
	return b
}

func NewAudioBlock(spec AudioSpec) ContentBlock {
	b := NewContentBlock(ContentTypeAudio, SizeUnknown)
	b.Audio = spec
	return b
}

func NewCustomBlock(format string, size uint32) ContentBlock {
	b := NewContentBlock(ContentTypeCustom, size)
	b.CustomFormat = sanitizeCustomFormat(format)
	return b
}

// ParseContentBlock rebuilds a block from its persisted form, e.g.
// "image/size=1024/jpg" or "data_layout".
func ParseContentBlock(s string) ContentBlock {
	parts := strings.Split(s, "/")
	b := NewContentBlock(parseContentType(parts[0]), SizeUnknown)
	parts = parts[1:]
	if len(parts) > 0 && parseUintPart(parts[0], "size=", &b.Size) {
		parts = parts[1:]
	}
	switch b.Type {
	case ContentTypeImage:
		if len(parts) > 0 {
			b.Image = ParseImageSpec(strings.Join(parts, "/"))
		}
	case ContentTypeAudio:
		if len(parts) > 0 {
			b.Audio = ParseAudioSpec(strings.Join(parts, "/"))
		}
	case ContentTypeCustom:
		if len(parts) > 0 && strings.HasPrefix(parts[0], customFormatPrefix) {
			b.CustomFormat = sanitizeCustomFormat(parts[0][len(customFormatPrefix):])
		}
	}
	return b
}

// String is the persisted form, parseable back by ParseContentBlock.
func (b ContentBlock) String() string {
	var s strings.Builder
	s.WriteString(b.Type.String())
	if b.Size != SizeUnknown {
		fmt.Fprintf(&s, "/size=%d", b.Size)
	}
	var subtype string
	switch b.Type {
	case ContentTypeImage:
		subtype = b.Image.String()
	case ContentTypeAudio:
		subtype = b.Audio.String()
	case ContentTypeCustom:
		if b.CustomFormat != "" {
			subtype = customFormatPrefix + b.CustomFormat
		}
	}
	if subtype != "" {
		s.WriteString("/")
		s.WriteString(subtype)
	}
	return s.String()
}

// BlockSize resolves the block's byte size from its own description:
// the static size if set, else what the image or audio spec implies.
func (b ContentBlock) BlockSize() uint32 {
	if b.Type == ContentTypeEmpty {
		return 0
	}
	if b.Size != SizeUnknown {
		return b.Size
	}
	switch b.Type {
	case ContentTypeImage:
		return b.Image.BlockSize()
	case ContentTypeAudio:
		return b.Audio.BlockSize()
	}
	return SizeUnknown
}

// Equal compares the persisted identity of two blocks.
func (b ContentBlock) Equal(other ContentBlock) bool {
	if b.Type != other.Type || b.Size != other.Size {
		return false
	}
	switch b.Type {
	case ContentTypeImage:
		return b.Image == other.Image
	case ContentTypeAudio:
		return b.Audio == other.Audio
	case ContentTypeCustom:
		return b.CustomFormat == other.CustomFormat
	}
	return true
}

// WithKeyFrame returns an image block annotated with the key frame its video
// frame depends on.
func (b ContentBlock) WithKeyFrame(timestamp float64, index uint32) ContentBlock {
	out := b
	out.Size = b.BlockSize()
	out.Image.KeyFrameTimestamp = timestamp
	out.Image.KeyFrameIndex = index
	return out
}

// sanitizeCustomFormat keeps custom format names parseable: only
// alphanumerics and a safe set of punctuation survive.
func sanitizeCustomFormat(name string) string {
	const allowed = "_-*.,;:!@~#&|[]{}'"
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(allowed, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
