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

// Package recordformat describes record payloads as ordered lists of typed
// content blocks, persisted as compact strings in stream tags.
package recordformat

// SizeUnknown marks a block size that cannot be told from the block's own
// description.
const SizeUnknown = ^uint32(0)

// ContentType tells what kind of data a content block holds. Values and
// names are persisted in stream tags, never change them.
type ContentType uint8

const (
	ContentTypeCustom ContentType = iota
	ContentTypeEmpty
	ContentTypeDataLayout
	ContentTypeImage
	ContentTypeAudio
)

var contentTypeNames = []string{"custom", "empty", "data_layout", "image", "audio"}

func (t ContentType) String() string {
	if int(t) < len(contentTypeNames) {
		return contentTypeNames[t]
	}
	return "custom"
}

func parseContentType(s string) ContentType {
	for i, name := range contentTypeNames {
		if s == name {
			return ContentType(i)
		}
	}
	return ContentTypeCustom
}
