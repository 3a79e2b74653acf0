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
	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"

	// this project.
	"github.com/linkall-labs/vrs/internal/datalayout"
	"github.com/linkall-labs/vrs/internal/datalayout/conventions"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/internal/recordformat"
)

// contentBlockReader decodes one content block of a record. Blocks that
// do not declare their own size or spec search for it in the data_layout
// blocks around them, so readers keep per-block search state.
type contentBlockReader interface {
	// readBlock consumes the block's payload from rec.Reader and reports
	// it to the player's delegate, returning whether the record's
	// remaining blocks should still be read.
	readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool
}

func newContentBlockReader(reader *FormatReader, blockIndex int) contentBlockReader {
	base := contentBlockBase{reader: reader, blockIndex: blockIndex}
	switch reader.Format.ContentBlock(blockIndex).Type {
	case recordformat.ContentTypeEmpty:
		return &emptyBlockReader{}
	case recordformat.ContentTypeDataLayout:
		return &dataLayoutBlockReader{base, reader.BlockLayout(blockIndex)}
	case recordformat.ContentTypeImage:
		return &imageBlockReader{contentBlockBase: base}
	case recordformat.ContentTypeAudio:
		return &audioBlockReader{contentBlockBase: base}
	case recordformat.ContentTypeCustom:
		return &customBlockReader{base}
	default:
		return &unsupportedBlockReader{base}
	}
}

type contentBlockBase struct {
	reader     *FormatReader
	blockIndex int

	nextSpec         *conventions.NextContentBlockSpec
	nextSpecSearched bool
}

func (b *contentBlockBase) block() recordformat.ContentBlock {
	return b.reader.Format.ContentBlock(b.blockIndex)
}

// findNextContentBlockSpec maps the next-block-size convention onto the
// data_layout block immediately before this one, once. The mapping proxies
// live reads, so values follow each record as the layout is re-read.
func (b *contentBlockBase) findNextContentBlockSpec() *conventions.NextContentBlockSpec {
	if !b.nextSpecSearched {
		b.nextSpecSearched = true
		if layout := b.reader.BlockLayout(b.blockIndex - 1); layout != nil {
			spec := conventions.NewNextContentBlockSpec()
			spec.Layout.MapLayout(layout)
			b.nextSpec = spec
		}
	}
	return b.nextSpec
}

// findContentBlockSize resolves the block's byte size: the size spelled out
// by the preceding data_layout block wins, else whatever the record format
// and the record's unread byte count imply.
func (b *contentBlockBase) findContentBlockSize(rec *CurrentRecord) uint32 {
	if spec := b.findNextContentBlockSpec(); spec != nil {
		if size, ok := spec.NextContentBlockSize.Get(); ok && size > 0 {
			return size
		}
	}
	return b.reader.Format.BlockSize(b.blockIndex, rec.Reader.UnreadBytes())
}

// findAudioSampleCount is the sample count spelled out by the preceding
// data_layout block, 0 when there is none.
func (b *contentBlockBase) findAudioSampleCount() uint32 {
	if spec := b.findNextContentBlockSpec(); spec != nil {
		if count, ok := spec.NextAudioSampleCount.Get(); ok {
			return count
		}
	}
	return 0
}

// mayUsePastConfigurationReader gates spec searches in the stream's last
// configuration record: a configuration read after the current record does
// not describe it.
func mayUsePastConfigurationReader(rec *CurrentRecord, cfg *FormatReader) bool {
	if cfg != nil && cfg.LastReadRecordTimestamp <= rec.Timestamp {
		return true
	}
	if cfg != nil {
		log.Debug(nil, "last configuration record was read out of order, not using it",
			map[string]interface{}{
				"streamID":  rec.StreamID.String(),
				"timestamp": rec.Timestamp,
			})
	}
	return false
}

func withSize(block recordformat.ContentBlock, size uint32) recordformat.ContentBlock {
	if size != recordformat.SizeUnknown {
		block.Size = size
	}
	return block
}

type emptyBlockReader struct{}

func (*emptyBlockReader) readBlock(*CurrentRecord, *RecordFormatPlayer) bool { return true }

type dataLayoutBlockReader struct {
	contentBlockBase
	layout *datalayout.DataLayout
}

func (r *dataLayoutBlockReader) readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool {
	if r.layout == nil {
		return false
	}
	fixedData := r.layout.FixedData()
	if uint32(len(fixedData)) > rec.Reader.UnreadBytes() {
		return false
	}
	if len(fixedData) > 0 {
		if err := rec.Reader.Read(fixedData); err != nil {
			return false
		}
	}
	varSize := r.layout.GetVarDataSizeFromIndex()
	if varSize > rec.Reader.UnreadBytes() {
		return false
	}
	if varSize > 0 {
		varData := make([]byte, varSize)
		if err := rec.Reader.Read(varData); err != nil {
			return false
		}
		r.layout.SetVarData(varData)
	} else {
		r.layout.SetVarData(nil)
	}
	return p.delegate.OnDataLayoutRead(rec, r.blockIndex, r.layout)
}

type imageBlockReader struct {
	contentBlockBase

	imageSpec         *conventions.ImageSpec
	videoSpec         *conventions.VideoFrameSpec
	videoSpecSearched bool
}

func (r *imageBlockReader) readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool {
	block := r.block()
	spec := block.Image
	if spec.Format == recordformat.ImageFormatRaw && block.BlockSize() != recordformat.SizeUnknown {
		// the format fully describes the raw image
		return r.onImageFound(rec, p, block)
	}
	contentBlockSize := recordformat.SizeUnknown
	if spec.Format != recordformat.ImageFormatRaw {
		contentBlockSize = r.findContentBlockSize(rec)
	}
	if r.imageSpec != nil && r.imageSpec.Layout.IsMapped() {
		// reuse the spec found for an earlier record
		if found, ok := r.imageSpec.ImageContentBlock(spec, contentBlockSize); ok {
			return r.onImageFound(rec, p, found)
		}
	}
	switch spec.Format {
	case recordformat.ImageFormatRaw,
		recordformat.ImageFormatVideo,
		recordformat.ImageFormatCustomCodec:
		if r.imageSpec == nil {
			r.imageSpec = conventions.NewImageSpec()
		}
		// search the record's own data_layout blocks first, last one first
		for i := r.blockIndex - 1; i >= 0; i-- {
			if found, ok := r.searchLayout(r.reader, i, spec, contentBlockSize); ok {
				return r.onImageFound(rec, p, found)
			}
		}
		// then the stream's last configuration record, last layout first
		if rec.RecordType != record.TypeConfiguration {
			cfg := p.LastFormatReader(rec.StreamID, record.TypeConfiguration)
			if mayUsePastConfigurationReader(rec, cfg) {
				for i := cfg.Format.UsedBlocksCount() - 1; i >= 0; i-- {
					if found, ok := r.searchLayout(cfg, i, spec, contentBlockSize); ok {
						return r.onImageFound(rec, p, found)
					}
				}
			}
		}
	default:
		// self-describing encodings (jpg, png, ...) only need a size
		if contentBlockSize != recordformat.SizeUnknown {
			return r.onImageFound(rec, p, withSize(block, contentBlockSize))
		}
	}
	return p.delegate.OnUnsupportedBlock(rec, r.blockIndex, withSize(block, contentBlockSize))
}

func (r *imageBlockReader) searchLayout(
	reader *FormatReader, blockIndex int,
	spec recordformat.ImageSpec, contentBlockSize uint32,
) (recordformat.ContentBlock, bool) {
	layout := reader.BlockLayout(blockIndex)
	if layout == nil {
		return recordformat.ContentBlock{}, false
	}
	r.imageSpec.Layout.MapLayout(layout)
	return r.imageSpec.ImageContentBlock(spec, contentBlockSize)
}

func (r *imageBlockReader) onImageFound(
	rec *CurrentRecord, p *RecordFormatPlayer, block recordformat.ContentBlock,
) bool {
	if block.Image.Format == recordformat.ImageFormatVideo {
		if !r.videoSpecSearched {
			r.videoSpecSearched = true
			if layout := r.reader.BlockLayout(r.blockIndex - 1); layout != nil {
				spec := conventions.NewVideoFrameSpec()
				spec.Layout.MapLayout(layout)
				r.videoSpec = spec
			}
		}
		if r.videoSpec != nil && r.videoSpec.HasVideoSpec() {
			block = block.WithKeyFrame(
				r.videoSpec.KeyFrameTimestamp.GetValue(),
				r.videoSpec.KeyFrameIndex.GetValue(),
			)
		}
	}
	return p.delegate.OnImageRead(rec, r.blockIndex, block)
}

type audioBlockReader struct {
	contentBlockBase

	audioSpec *conventions.AudioSpec
}

func (r *audioBlockReader) readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool {
	block := r.block()
	if block.Audio.IsSampleBlockFormatDefined() {
		return r.readAudioBlock(rec, p, block)
	}
	if r.audioSpec == nil {
		r.audioSpec = conventions.NewAudioSpec()
	}
	if r.audioSpec.Layout.IsMapped() {
		// reuse the spec found for an earlier record
		if found, ok := r.audioSpec.AudioContentBlock(r.findAudioSampleCount()); ok {
			return r.readAudioBlock(rec, p, found)
		}
	}
	// search the record's own data_layout blocks first, last one first
	for i := r.blockIndex - 1; i >= 0; i-- {
		if found, ok := r.searchLayout(r.reader, i); ok {
			return r.readAudioBlock(rec, p, found)
		}
	}
	if rec.RecordType != record.TypeConfiguration {
		cfg := p.LastFormatReader(rec.StreamID, record.TypeConfiguration)
		if mayUsePastConfigurationReader(rec, cfg) {
			for i := cfg.Format.UsedBlocksCount() - 1; i >= 0; i-- {
				if found, ok := r.searchLayout(cfg, i); ok {
					return r.readAudioBlock(rec, p, found)
				}
			}
		}
	}
	return p.delegate.OnUnsupportedBlock(rec, r.blockIndex,
		withSize(block, r.findContentBlockSize(rec)))
}

func (r *audioBlockReader) searchLayout(
	reader *FormatReader, blockIndex int,
) (recordformat.ContentBlock, bool) {
	layout := reader.BlockLayout(blockIndex)
	if layout == nil {
		return recordformat.ContentBlock{}, false
	}
	r.audioSpec.Layout.MapLayout(layout)
	return r.audioSpec.AudioContentBlock(r.findAudioSampleCount())
}

func (r *audioBlockReader) readAudioBlock(
	rec *CurrentRecord, p *RecordFormatPlayer, block recordformat.ContentBlock,
) bool {
	spec := block.Audio
	if spec.Format != recordformat.AudioFormatPcm {
		size := block.BlockSize()
		if size == recordformat.SizeUnknown {
			size = r.findContentBlockSize(rec)
		}
		if size != recordformat.SizeUnknown {
			return p.delegate.OnAudioRead(rec, r.blockIndex, withSize(block, size))
		}
		return p.delegate.OnUnsupportedBlock(rec, r.blockIndex, block)
	}
	if spec.SampleCount == 0 {
		// derive the sample count from the block's size
		size := r.findContentBlockSize(rec)
		if size != recordformat.SizeUnknown {
			stride := uint32(spec.FrameStride())
			if stride > 0 && size%stride == 0 {
				spec.SampleCount = size / stride
				return p.delegate.OnAudioRead(rec, r.blockIndex, recordformat.NewAudioBlock(spec))
			}
		}
		return p.delegate.OnUnsupportedBlock(rec, r.blockIndex, block)
	}
	pcmSize := spec.BlockSize()
	size := r.findContentBlockSize(rec)
	if size == recordformat.SizeUnknown || size == pcmSize {
		return p.delegate.OnAudioRead(rec, r.blockIndex, recordformat.NewAudioBlock(spec))
	}
	log.Warning(nil, "audio block size does not match its sample format", map[string]interface{}{
		"streamID":  rec.StreamID.String(),
		"blockSize": size,
		"pcmSize":   pcmSize,
	})
	return p.delegate.OnUnsupportedBlock(rec, r.blockIndex, withSize(block, size))
}

type customBlockReader struct {
	contentBlockBase
}

func (r *customBlockReader) readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool {
	block := r.block()
	size := block.BlockSize()
	if size == recordformat.SizeUnknown {
		size = r.findContentBlockSize(rec)
	}
	if size != recordformat.SizeUnknown {
		return p.delegate.OnCustomBlockRead(rec, r.blockIndex, withSize(block, size))
	}
	return p.delegate.OnUnsupportedBlock(rec, r.blockIndex, block)
}

type unsupportedBlockReader struct {
	contentBlockBase
}

func (r *unsupportedBlockReader) readBlock(rec *CurrentRecord, p *RecordFormatPlayer) bool {
	return p.delegate.OnUnsupportedBlock(rec, r.blockIndex,
		withSize(r.block(), r.findContentBlockSize(rec)))
}
