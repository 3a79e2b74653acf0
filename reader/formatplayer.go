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

package reader

import (
	// standard libraries.
	"math"

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/datalayout"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/internal/recordformat"
)

type formatKey struct {
	streamID      record.StreamID
	recordType    record.Type
	formatVersion uint32
}

type streamTypeKey struct {
	streamID   record.StreamID
	recordType record.Type
}

// FormatReader is the decoding state for one (stream, record type, format
// version): the declared record format, the layouts of its data_layout
// blocks, and one content block reader per block, built on first use.
type FormatReader struct {
	Format recordformat.RecordFormat

	// LastReadRecordTimestamp gates reuse of configuration state: a past
	// configuration record only describes later records, never earlier
	// ones. Initialized past every valid timestamp.
	LastReadRecordTimestamp float64

	blockLayouts   []*datalayout.DataLayout
	contentReaders []contentBlockReader
}

// BlockLayout returns the declared layout of a data_layout block, nil when
// the block is of another type or its description could not be parsed.
func (r *FormatReader) BlockLayout(blockIndex int) *datalayout.DataLayout {
	if blockIndex < 0 || blockIndex >= len(r.blockLayouts) {
		return nil
	}
	return r.blockLayouts[blockIndex]
}

func (r *FormatReader) contentReader(blockIndex int) contentBlockReader {
	if r.contentReaders[blockIndex] == nil {
		r.contentReaders[blockIndex] = newContentBlockReader(r, blockIndex)
	}
	return r.contentReaders[blockIndex]
}

func newFormatReader(
	vrsTags map[string]string, id recordformat.FormatID, format recordformat.RecordFormat,
) *FormatReader {
	blockCount := format.UsedBlocksCount()
	r := &FormatReader{
		Format:                  format,
		LastReadRecordTimestamp: math.MaxFloat64,
		blockLayouts:            make([]*datalayout.DataLayout, blockCount),
		contentReaders:          make([]contentBlockReader, blockCount),
	}
	for i := 0; i < blockCount; i++ {
		if format.ContentBlock(i).Type != recordformat.ContentTypeDataLayout {
			continue
		}
		jsonStr := recordformat.GetDataLayoutJSON(vrsTags, id, i)
		if jsonStr == "" {
			continue
		}
		layout, err := datalayout.FromJSON(jsonStr)
		if err != nil {
			log.Warning(nil, "ignoring an unreadable layout description", map[string]interface{}{
				"recordType":    id.RecordType.String(),
				"formatVersion": id.FormatVersion,
				"blockIndex":    i,
				log.KeyError:    err,
			})
			continue
		}
		r.blockLayouts[i] = layout
	}
	return r
}

// FormatDelegate receives the decoded content blocks of format-described
// records. Each callback returns whether to keep reading the record's
// remaining blocks.
type FormatDelegate interface {
	OnDataLayoutRead(rec *CurrentRecord, blockIndex int, layout *datalayout.DataLayout) bool
	OnImageRead(rec *CurrentRecord, blockIndex int, block recordformat.ContentBlock) bool
	OnAudioRead(rec *CurrentRecord, blockIndex int, block recordformat.ContentBlock) bool
	OnCustomBlockRead(rec *CurrentRecord, blockIndex int, block recordformat.ContentBlock) bool
	// OnUnsupportedBlock sees blocks no other callback can describe. The
	// block size may be unknown.
	OnUnsupportedBlock(rec *CurrentRecord, blockIndex int, block recordformat.ContentBlock) bool
}

// BaseFormatDelegate ignores every content block, skipping blocks of known
// size so a delegate only interested in, say, images still decodes records
// with other leading blocks. Meant to be embedded.
type BaseFormatDelegate struct{}

var _ FormatDelegate = (*BaseFormatDelegate)(nil)

func (*BaseFormatDelegate) OnDataLayoutRead(*CurrentRecord, int, *datalayout.DataLayout) bool {
	return false
}

func (*BaseFormatDelegate) OnImageRead(*CurrentRecord, int, recordformat.ContentBlock) bool {
	return false
}

func (*BaseFormatDelegate) OnAudioRead(*CurrentRecord, int, recordformat.ContentBlock) bool {
	return false
}

func (*BaseFormatDelegate) OnCustomBlockRead(*CurrentRecord, int, recordformat.ContentBlock) bool {
	return false
}

func (*BaseFormatDelegate) OnUnsupportedBlock(
	rec *CurrentRecord, _ int, block recordformat.ContentBlock,
) bool {
	size := block.BlockSize()
	if size == recordformat.SizeUnknown {
		return false
	}
	return skipBlock(rec, size)
}

// RecordFormatPlayer decodes records using the record formats declared in
// the stream's tags, handing each content block to its delegate. Records
// without a declared format fall through undecoded.
type RecordFormatPlayer struct {
	BasePlayer

	delegate    FormatDelegate
	readers     map[formatKey]*FormatReader
	lastReaders map[streamTypeKey]*FormatReader
	current     *FormatReader
}

var _ StreamPlayer = (*RecordFormatPlayer)(nil)

// NewRecordFormatPlayer returns a player reporting content blocks to
// delegate. A nil delegate skips every block it can size.
func NewRecordFormatPlayer(delegate FormatDelegate) *RecordFormatPlayer {
	if delegate == nil {
		delegate = &BaseFormatDelegate{}
	}
	return &RecordFormatPlayer{
		delegate:    delegate,
		readers:     make(map[formatKey]*FormatReader),
		lastReaders: make(map[streamTypeKey]*FormatReader),
	}
}

func (p *RecordFormatPlayer) OnAttachedToFileReader(r *RecordFileReader, id record.StreamID) {
	tags := r.StreamTags(id)
	if tags == nil {
		return
	}
	for formatID, format := range recordformat.GetRecordFormats(tags.VRS) {
		key := formatKey{id, formatID.RecordType, formatID.FormatVersion}
		p.readers[key] = newFormatReader(tags.VRS, formatID, format)
	}
}

func (p *RecordFormatPlayer) ProcessRecordHeader(rec *CurrentRecord, _ *file.DataReference) bool {
	key := formatKey{rec.StreamID, rec.RecordType, rec.FormatVersion}
	reader := p.readers[key]
	if reader == nil || reader.Format.UsedBlocksCount() == 0 {
		if rec.RecordSize > 0 {
			log.Warning(nil, "no record format found for a record", map[string]interface{}{
				"streamID":      rec.StreamID.String(),
				"recordType":    rec.RecordType.String(),
				"formatVersion": rec.FormatVersion,
			})
		}
		p.current = nil
		return false
	}
	p.current = reader
	p.lastReaders[streamTypeKey{rec.StreamID, rec.RecordType}] = reader
	// all reading happens in ProcessRecord, block by block
	return true
}

func (p *RecordFormatPlayer) ProcessRecord(rec *CurrentRecord, _ uint32) {
	reader := p.current
	if reader == nil {
		return
	}
	for blockIndex := 0; blockIndex < reader.Format.UsedBlocksCount(); blockIndex++ {
		if !reader.contentReader(blockIndex).readBlock(rec, p) {
			break
		}
	}
	reader.LastReadRecordTimestamp = rec.Timestamp
}

// CurrentFormatReader is the reader of the record being processed, nil
// outside ProcessRecord or when the record has no declared format.
func (p *RecordFormatPlayer) CurrentFormatReader() *FormatReader {
	return p.current
}

// LastFormatReader is the reader last used for a stream and record type,
// which lets data decoding reach back to the latest configuration read.
func (p *RecordFormatPlayer) LastFormatReader(id record.StreamID, t record.Type) *FormatReader {
	return p.lastReaders[streamTypeKey{id, t}]
}
