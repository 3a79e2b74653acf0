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

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/record"
)

// RecordFormat is the ordered content-block template of one
// (record type, format version) pair of a stream.
type RecordFormat struct {
	blocks []ContentBlock
}

// NewRecordFormat chains blocks into a format, in payload order.
func NewRecordFormat(blocks ...ContentBlock) RecordFormat {
	return RecordFormat{blocks: blocks}
}

// ParseRecordFormat rebuilds a format from its persisted "+"-separated form.
// An empty string yields a single custom block, mirroring how formats were
// read before they were ever persisted.
func ParseRecordFormat(s string) RecordFormat {
	var f RecordFormat
	for _, part := range strings.Split(s, "+") {
		f.blocks = append(f.blocks, ParseContentBlock(part))
	}
	return f
}

// String is the persisted form, parseable back by ParseRecordFormat.
func (f RecordFormat) String() string {
	if len(f.blocks) == 0 {
		return NewEmptyBlock().String()
	}
	parts := make([]string, len(f.blocks))
	for i, b := range f.blocks {
		parts[i] = b.String()
	}
	return strings.Join(parts, "+")
}

// ContentBlock returns the block at index, or an empty block past the end.
func (f RecordFormat) ContentBlock(index int) ContentBlock {
	if index < len(f.blocks) {
		return f.blocks[index]
	}
	return NewEmptyBlock()
}

// UsedBlocksCount ignores trailing empty blocks.
func (f RecordFormat) UsedBlocksCount() int {
	for k := len(f.blocks); k > 0; k-- {
		if f.blocks[k-1].Type != ContentTypeEmpty {
			return k
		}
	}
	return 0
}

// BlocksOfTypeCount counts the blocks holding one content type.
func (f RecordFormat) BlocksOfTypeCount(t ContentType) int {
	count := 0
	for _, b := range f.blocks {
		if b.Type == t {
			count++
		}
	}
	return count
}

// RecordSize is the combined static size of all blocks, or SizeUnknown when
// any block's size cannot be told.
func (f RecordFormat) RecordSize() uint32 {
	return f.remainingBlocksSize(0)
}

func (f RecordFormat) remainingBlocksSize(firstBlock int) uint32 {
	size := uint32(0)
	for k := firstBlock; k < len(f.blocks); k++ {
		blockSize := f.blocks[k].BlockSize()
		if blockSize == SizeUnknown {
			return SizeUnknown
		}
		size += blockSize
	}
	return size
}

// BlockSize resolves one block's byte size, given how many record bytes
// remain before the block. A block that cannot size itself may still be
// sized by subtracting the known sizes of all following blocks; this only
// resolves when it is the single unresolved block of the record.
func (f RecordFormat) BlockSize(blockIndex int, remainingSize uint32) uint32 {
	blockSize := f.blocks[blockIndex].BlockSize()
	if blockSize != SizeUnknown {
		if blockSize <= remainingSize {
			return blockSize
		}
		return SizeUnknown
	}
	followingSize := f.remainingBlocksSize(blockIndex + 1)
	if followingSize != SizeUnknown && followingSize <= remainingSize {
		return remainingSize - followingSize
	}
	return SizeUnknown
}

// Equal compares the used blocks of two formats.
func (f RecordFormat) Equal(other RecordFormat) bool {
	count := f.UsedBlocksCount()
	if count != other.UsedBlocksCount() {
		return false
	}
	for k := 0; k < count; k++ {
		if !f.ContentBlock(k).Equal(other.ContentBlock(k)) {
			return false
		}
	}
	return true
}

// Formats and layouts are persisted in stream tags under names derived from
// the record type and format version.
const (
	recordFormatTagPrefix = "RF:"
	dataLayoutTagPrefix   = "DL:"
)

// TagName is the stream tag holding the format of one
// (record type, format version) pair, e.g. "RF:Data:1".
func TagName(recordType record.Type, formatVersion uint32) string {
	return fmt.Sprintf("%s%s:%d", recordFormatTagPrefix, recordType, formatVersion)
}

// LayoutTagName is the stream tag holding the layout description of one
// data_layout block, e.g. "DL:Data:1:0".
func LayoutTagName(recordType record.Type, formatVersion uint32, blockIndex int) string {
	return fmt.Sprintf("%s%s:%d:%d", dataLayoutTagPrefix, recordType, formatVersion, blockIndex)
}

// ParseTagName decomposes a record format tag name, telling whether the tag
// is one at all.
func ParseTagName(tagName string) (record.Type, uint32, bool) {
	if !strings.HasPrefix(tagName, recordFormatTagPrefix) {
		return record.TypeUndefined, 0, false
	}
	rest := tagName[len(recordFormatTagPrefix):]
	sep := strings.IndexByte(rest, ':')
	if sep < 0 {
		return record.TypeUndefined, 0, false
	}
	recordType := record.ParseType(rest[:sep])
	if recordType == record.TypeUndefined {
		return record.TypeUndefined, 0, false
	}
	version, err := strconv.ParseUint(rest[sep+1:], 10, 32)
	if err != nil {
		return record.TypeUndefined, 0, false
	}
	return recordType, uint32(version), true
}

// FormatID keys a record format within one stream.
type FormatID struct {
	RecordType    record.Type
	FormatVersion uint32
}

// FormatMap indexes a stream's record formats.
type FormatMap map[FormatID]RecordFormat

// GetRecordFormats collects every record format persisted in a stream's tag
// map.
func GetRecordFormats(tags map[string]string) FormatMap {
	formats := make(FormatMap)
	for name, value := range tags {
		recordType, version, ok := ParseTagName(name)
		if !ok {
			continue
		}
		id := FormatID{RecordType: recordType, FormatVersion: version}
		if _, exists := formats[id]; !exists {
			formats[id] = ParseRecordFormat(value)
		}
	}
	return formats
}

// GetDataLayoutJSON returns the persisted layout description of one
// data_layout block, or "" when none was recorded.
func GetDataLayoutJSON(tags map[string]string, id FormatID, blockIndex int) string {
	return tags[LayoutTagName(id.RecordType, id.FormatVersion, blockIndex)]
}

// AddRecordFormat registers a format and its per-block layout descriptions
// into a stream's tag map. Layout descriptions must line up with the
// format's data_layout blocks; mismatches are logged and reported.
func AddRecordFormat(
	tags map[string]string, recordType record.Type, formatVersion uint32,
	format RecordFormat, layoutJSONs []string,
) bool {
	tags[TagName(recordType, formatVersion)] = format.String()
	for index, layoutJSON := range layoutJSONs {
		if layoutJSON != "" {
			tags[LayoutTagName(recordType, formatVersion, index)] = layoutJSON
		}
	}
	allGood := true
	usedBlocks := format.UsedBlocksCount()
	maxIndex := usedBlocks
	if len(layoutJSONs) > maxIndex {
		maxIndex = len(layoutJSONs)
	}
	for index := 0; index < maxIndex; index++ {
		hasLayout := index < len(layoutJSONs) && layoutJSONs[index] != ""
		isLayoutBlock := index < usedBlocks &&
			format.ContentBlock(index).Type == ContentTypeDataLayout
		if isLayoutBlock && !hasLayout {
			log.Error(nil, "missing layout description for a data_layout block",
				map[string]interface{}{
					"recordType":    recordType.String(),
					"formatVersion": formatVersion,
					"blockIndex":    index,
				})
			allGood = false
		} else if !isLayoutBlock && hasLayout {
			log.Error(nil, "layout description provided for a non-data_layout block",
				map[string]interface{}{
					"recordType":    recordType.String(),
					"formatVersion": formatVersion,
					"blockIndex":    index,
				})
			allGood = false
		}
	}
	return allGood
}
