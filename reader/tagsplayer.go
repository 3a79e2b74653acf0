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
	// this project.
	"github.com/linkall-labs/vrs/internal/datalayout"
	"github.com/linkall-labs/vrs/internal/description"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/internal/recordformat"
)

// Tags pseudo-records carry one data_layout block with two string maps.
// The version and labels are part of the file format.
const (
	tagsFormatVersion = 1

	vrsTagsLabel  = "vrs_tags"
	userTagsLabel = "user_tags"
)

type tagsLayout struct {
	layout *datalayout.DataLayout

	vrsTags  *datalayout.StringMapString
	userTags *datalayout.StringMapString
}

func newTagsLayout() *tagsLayout {
	b := datalayout.NewBuilder()
	t := &tagsLayout{
		vrsTags:  datalayout.StringMapStringPiece(b, vrsTagsLabel),
		userTags: datalayout.StringMapStringPiece(b, userTagsLabel),
	}
	t.layout = b.Build()
	return t
}

// tagsPlayer consumes tags pseudo-records while a file is opened, folding
// the tags they carry into the stream tags read from the description
// record. Tags records predate the description record's final content, so
// what they carry wins.
type tagsPlayer struct {
	*RecordFormatPlayer
	BaseFormatDelegate

	streamTags map[record.StreamID]*description.StreamTags
	tags       *tagsLayout
}

func newTagsPlayer(streamTags map[record.StreamID]*description.StreamTags) *tagsPlayer {
	p := &tagsPlayer{
		streamTags: streamTags,
		tags:       newTagsLayout(),
	}
	p.RecordFormatPlayer = NewRecordFormatPlayer(p)
	return p
}

// prepareToReadTags injects the tags record format into the stream's tags,
// since the writer never declares it there, then attaches to the stream.
func (p *tagsPlayer) prepareToReadTags(r *RecordFileReader, id record.StreamID) {
	st := p.streamTags[id]
	if st == nil {
		st = description.NewStreamTags()
		p.streamTags[id] = st
	}
	recordformat.AddRecordFormat(st.VRS, record.TypeTags, tagsFormatVersion,
		recordformat.NewRecordFormat(recordformat.NewDataLayoutBlock()),
		[]string{p.tags.layout.AsJSON()})
	p.OnAttachedToFileReader(r, id)
}

func (p *tagsPlayer) OnDataLayoutRead(
	rec *CurrentRecord, _ int, layout *datalayout.DataLayout,
) bool {
	if rec.RecordType != record.TypeTags {
		return false
	}
	p.tags.layout.MapLayout(layout)
	st := p.streamTags[rec.StreamID]
	if st == nil {
		st = description.NewStreamTags()
		p.streamTags[rec.StreamID] = st
	}
	if tags, ok := p.tags.userTags.Get(); ok {
		st.User = tags
	}
	if tags, ok := p.tags.vrsTags.Get(); ok {
		st.VRS = tags
	}
	description.UpgradeStreamTags(st.VRS)
	return true
}
