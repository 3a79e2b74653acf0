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
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	// third-party libraries.
	oteltrace "go.opentelemetry.io/otel/trace"

	// first-party libraries.
	"github.com/linkall-labs/vanus/observability/log"
	"github.com/linkall-labs/vanus/observability/tracing"

	// this project.
	"github.com/linkall-labs/vrs/internal/compression"
	"github.com/linkall-labs/vrs/internal/description"
	"github.com/linkall-labs/vrs/internal/detailscache"
	"github.com/linkall-labs/vrs/internal/file"
	"github.com/linkall-labs/vrs/internal/fileformat"
	"github.com/linkall-labs/vrs/internal/index"
	"github.com/linkall-labs/vrs/internal/record"
	"github.com/linkall-labs/vrs/internal/recordformat"
	"github.com/linkall-labs/vrs/progress"
	"github.com/linkall-labs/vrs/vrserrors"
)

var tracer = tracing.NewTracer("vrs.reader", oteltrace.SpanKindInternal)

// Options tunes how a file is opened.
type Options struct {
	// Progress receives open and reindexing progress. Defaults to a
	// throttled logger.
	Progress progress.Logger
	// DetailsCacheDir enables the local details cache for remote files:
	// the description, tags and index of a remote file are saved there
	// once read, so later opens skip the remote reads.
	DetailsCacheDir string
	// AutoWriteFixedIndex patches a rebuilt index back into the file when
	// the index record is missing or damaged and the file is writable.
	AutoWriteFixedIndex bool
}

// typeRequest is a cursor into a stream's index, persisted between
// record-of-type lookups so sequential playback stays linear.
type typeRequest struct {
	nextIndex uint32
	position  int
}

// RecordFileReader gives random access to the records of a file: the index
// and tags are loaded when the file is opened, records are then read on
// demand and played back to the stream players attached to their stream.
// Not safe for concurrent use.
type RecordFileReader struct {
	file   file.Handler
	header fileformat.FileHeader

	index        []record.Info
	streamIDs    []record.StreamID
	streamTags   map[record.StreamID]*description.StreamTags
	fileTags     map[string]string
	fileHasIndex bool

	players       map[record.StreamID]StreamPlayer
	streamIndexes map[record.StreamID][]*record.Info
	typeCounts    map[streamTypeKey]uint32
	lastRequests  map[streamTypeKey]*typeRequest

	decompressor *compression.Decompressor
	opts         Options

	detailsSave sync.WaitGroup
}

// Open opens a record file for reading, loading its description and index.
func Open(ctx context.Context, path string) (*RecordFileReader, error) {
	return OpenWithOptions(ctx, path, Options{})
}

// OpenWithOptions opens a record file for reading with explicit options.
// With AutoWriteFixedIndex, the file is opened for updates so a rebuilt
// index can be patched back in.
func OpenWithOptions(ctx context.Context, path string, opts Options) (*RecordFileReader, error) {
	var f *file.DiskFile
	var err error
	if opts.AutoWriteFixedIndex {
		f, err = file.OpenDiskFileForUpdates(path)
	} else {
		f, err = file.OpenDiskFile(path)
	}
	if err != nil {
		return nil, err
	}
	return OpenHandler(ctx, f, opts)
}

// OpenHandler opens a record file through an already opened store, which is
// how remote or cached stores plug in. The reader owns the handler.
func OpenHandler(ctx context.Context, h file.Handler, opts Options) (*RecordFileReader, error) {
	if opts.Progress == nil {
		opts.Progress = progress.Default
	}
	r := &RecordFileReader{
		file:         h,
		players:      make(map[record.StreamID]StreamPlayer),
		lastRequests: make(map[streamTypeKey]*typeRequest),
		decompressor: compression.NewDecompressor(),
		opts:         opts,
	}
	if err := r.doOpen(ctx); err != nil {
		r.decompressor.Close()
		_ = h.Close()
		return nil, err
	}
	return r, nil
}

func (r *RecordFileReader) doOpen(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()

	p := r.opts.Progress
	p.LogNewStep("Reading file header")
	if r.file.TotalSize() < fileformat.FileHeaderSize {
		return vrserrors.ErrNotARecordFile
	}
	if err := r.file.SetPos(0); err != nil {
		return err
	}
	buf := make([]byte, fileformat.FileHeaderSize)
	if err := r.file.Read(buf); err != nil {
		return err
	}
	r.header.Unmarshal(buf)
	if !r.header.LooksLikeARecordFile() {
		return vrserrors.ErrNotARecordFile
	}
	if !r.header.IsFormatSupported() {
		log.Error(ctx, "file format version not supported.", map[string]interface{}{
			"format_version": r.header.FileFormatVersion,
		})
		return vrserrors.ErrUnsupportedVersion
	}
	if !p.KeepGoing() {
		return vrserrors.ErrOperationCancelled
	}

	if r.tryDetailsCache(ctx) {
		return nil
	}
	if err := r.readFileDetails(ctx); err != nil {
		return err
	}
	if err := r.readTagsRecords(ctx); err != nil {
		return err
	}
	description.CreateStreamSerialNumbers(r.fileTags, r.streamTags)
	r.revealTagOnlyStreams()
	r.saveDetailsCache()
	return nil
}

// tryDetailsCache loads the file's details from the local cache, which only
// exists for remote files already opened on this host.
func (r *RecordFileReader) tryDetailsCache(ctx context.Context) bool {
	if r.opts.DetailsCacheDir == "" || !r.file.IsRemote() || r.header.CreationID == 0 {
		return false
	}
	path := r.detailsCachePath()
	details, err := detailscache.Read(path)
	if err != nil {
		log.Debug(ctx, "no usable details cache for this file.", map[string]interface{}{
			"path":       path,
			log.KeyError: err,
		})
		return false
	}
	r.streamIDs = details.StreamIDs
	r.streamTags = details.StreamTags
	r.fileTags = details.FileTags
	r.index = details.Index
	r.fileHasIndex = details.FileHasIndex
	log.Info(ctx, "loaded file details from the local cache.", map[string]interface{}{
		"record_count": len(r.index),
		"stream_count": len(r.streamIDs),
	})
	return true
}

func (r *RecordFileReader) detailsCachePath() string {
	return filepath.Join(r.opts.DetailsCacheDir,
		detailscache.Key(r.header.CreationID, r.file.TotalSize()))
}

// readFileDetails reads the description record, then the index record,
// rebuilding the index from record headers when it is missing or damaged.
func (r *RecordFileReader) readFileDetails(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "readFileDetails")
	defer span.End()

	p := r.opts.Progress
	p.LogNewStep("Reading file details")
	firstUserRecordOffset := r.header.FirstUserRecordOffset
	if firstUserRecordOffset == 0 {
		// early files: user records start right after the file header
		firstUserRecordOffset = int64(r.header.FileHeaderSize)
	}
	r.streamTags = make(map[record.StreamID]*description.StreamTags)
	r.fileTags = make(map[string]string)
	if r.header.DescriptionRecordOffset > 0 {
		if err := r.file.SetPos(r.header.DescriptionRecordOffset); err != nil {
			return err
		}
		descSize, streamTags, fileTags, err := description.ReadRecord(
			r.file, r.header.RecordHeaderSize)
		if err != nil {
			log.Warning(ctx, "can't read the description record.", map[string]interface{}{
				log.KeyError: err,
			})
		} else {
			r.streamTags = streamTags
			r.fileTags = fileTags
			if r.header.DescriptionRecordOffset == firstUserRecordOffset {
				firstUserRecordOffset += int64(descSize)
			}
		}
	}
	r.file.SetCachingStrategy(file.CachingStreaming)
	idx := index.NewReader(r.file, &r.header, p)
	defer idx.Close()
	usedFileSize, err := idx.ReadRecord(ctx, firstUserRecordOffset)
	if err != nil || !idx.IsIndexComplete() {
		if err != nil {
			log.Warning(ctx, "error reading the index record, reindexing.",
				map[string]interface{}{
					log.KeyError: err,
				})
		}
		writeFixedIndex := r.opts.AutoWriteFixedIndex && !r.file.IsReadOnly()
		if rerr := idx.RebuildIndex(ctx, writeFixedIndex); rerr != nil {
			if errors.Is(rerr, vrserrors.ErrOperationCancelled) {
				return rerr
			}
			log.Warning(ctx, "incomplete reindexing, continuing with a partial index.",
				map[string]interface{}{
					log.KeyError: rerr,
				})
		}
	} else {
		_ = r.file.ForgetFurtherChunks(usedFileSize)
	}
	r.fileHasIndex = idx.IsIndexComplete()
	r.index = idx.Index()
	r.streamIDs = idx.StreamIDs()
	return nil
}

// readTagsRecords plays back tags pseudo-records, which always sort at the
// very front of the index, then purges them: they are a file format detail,
// not user data.
func (r *RecordFileReader) readTagsRecords(ctx context.Context) error {
	player := newTagsPlayer(r.streamTags)
	prepared := make(map[record.StreamID]bool)
	tagsCount := 0
	for i := range r.index {
		info := &r.index[i]
		if info.Timestamp > record.TagsTimestamp {
			break
		}
		if info.Type != record.TypeTags {
			continue
		}
		if !prepared[info.StreamID] {
			player.prepareToReadTags(r, info.StreamID)
			prepared[info.StreamID] = true
		}
		if err := r.readRecord(ctx, info, player); err != nil {
			log.Warning(ctx, "can't read a tags record.", map[string]interface{}{
				"stream_id":  info.StreamID.String(),
				log.KeyError: err,
			})
		}
		tagsCount++
	}
	if tagsCount == 0 {
		return nil
	}
	filtered := make([]record.Info, 0, len(r.index)-tagsCount)
	for i := range r.index {
		if r.index[i].Type != record.TypeTags {
			filtered = append(filtered, r.index[i])
		}
	}
	r.index = filtered
	return nil
}

// revealTagOnlyStreams adds streams that recorded no record but exist in
// the description, so they are visible like any other stream.
func (r *RecordFileReader) revealTagOnlyStreams() {
	known := make(map[record.StreamID]bool, len(r.streamIDs))
	for _, id := range r.streamIDs {
		known[id] = true
	}
	added := false
	for id := range r.streamTags {
		if !known[id] {
			r.streamIDs = append(r.streamIDs, id)
			added = true
		}
	}
	if added {
		sort.Slice(r.streamIDs, func(i, j int) bool {
			return r.streamIDs[i].Less(r.streamIDs[j])
		})
	}
}

// saveDetailsCache persists the file's details in the background, so the
// next open of the same remote file skips the remote reads.
func (r *RecordFileReader) saveDetailsCache() {
	if r.opts.DetailsCacheDir == "" || !r.file.IsRemote() || r.header.CreationID == 0 {
		return
	}
	details := &detailscache.Details{
		StreamIDs:    append([]record.StreamID(nil), r.streamIDs...),
		FileTags:     r.fileTags,
		StreamTags:   r.streamTags,
		Index:        r.index,
		FileHasIndex: r.fileHasIndex,
	}
	path := r.detailsCachePath()
	r.detailsSave.Add(1)
	go func() {
		defer r.detailsSave.Done()
		if err := detailscache.Write(path, details); err != nil {
			log.Warning(nil, "failed to save the file details cache.", map[string]interface{}{
				"path":       path,
				log.KeyError: err,
			})
		}
	}()
}

// Close releases the reader. It waits for a pending details cache save.
func (r *RecordFileReader) Close() error {
	r.detailsSave.Wait()
	r.decompressor.Close()
	return r.file.Close()
}

// HasIndex tells if the file carried a valid index record. Without one, the
// index in use was rebuilt by scanning the file.
func (r *RecordFileReader) HasIndex() bool {
	return r.fileHasIndex
}

// FileSize is the total logical size of the file, all chunks included.
func (r *RecordFileReader) FileSize() int64 {
	return r.file.TotalSize()
}

// EndOfUserRecordsOffset is the first byte past the last user record.
func (r *RecordFileReader) EndOfUserRecordsOffset() int64 {
	return r.header.EndOfUserRecordsOffset(r.file.TotalSize())
}

// FileTags returns the file's own tags.
func (r *RecordFileReader) FileTags() map[string]string {
	return r.fileTags
}

// Tag returns a file tag, empty when not set.
func (r *RecordFileReader) Tag(name string) string {
	return r.fileTags[name]
}

// StreamIDs returns the file's streams, sorted, tag-only streams included.
func (r *RecordFileReader) StreamIDs() []record.StreamID {
	return r.streamIDs
}

// StreamTags returns a stream's tags, nil for unknown streams.
func (r *RecordFileReader) StreamTags(id record.StreamID) *description.StreamTags {
	return r.streamTags[id]
}

// StreamTag returns one of a stream's user tags, empty when not set.
func (r *RecordFileReader) StreamTag(id record.StreamID, name string) string {
	if tags := r.streamTags[id]; tags != nil {
		return tags.User[name]
	}
	return ""
}

// Flavor returns a stream's flavor, empty when none was set.
func (r *RecordFileReader) Flavor(id record.StreamID) string {
	if tags := r.streamTags[id]; tags != nil {
		return tags.Flavor()
	}
	return ""
}

// SerialNumber returns a stream's serial number. Every stream has one once
// the file is open, synthesized if the file predates serial numbers.
func (r *RecordFileReader) SerialNumber(id record.StreamID) string {
	if tags := r.streamTags[id]; tags != nil {
		return tags.VRS[description.TagStreamSerialNumber]
	}
	return ""
}

// StreamForType returns the indexNumber-th stream of the given type.
func (r *RecordFileReader) StreamForType(t record.StreamType, indexNumber int) record.StreamID {
	for _, id := range r.streamIDs {
		if id.Type == t {
			if indexNumber == 0 {
				return id
			}
			indexNumber--
		}
	}
	return record.UndefinedStreamID
}

// StreamForFlavor returns the indexNumber-th stream with the given flavor.
func (r *RecordFileReader) StreamForFlavor(flavor string, indexNumber int) record.StreamID {
	for _, id := range r.streamIDs {
		if r.Flavor(id) == flavor {
			if indexNumber == 0 {
				return id
			}
			indexNumber--
		}
	}
	return record.UndefinedStreamID
}

// StreamForSerialNumber returns the stream with the given serial number.
func (r *RecordFileReader) StreamForSerialNumber(serialNumber string) record.StreamID {
	for _, id := range r.streamIDs {
		if r.SerialNumber(id) == serialNumber {
			return id
		}
	}
	return record.UndefinedStreamID
}

// RecordFormats returns the record formats a stream declared in its tags.
func (r *RecordFileReader) RecordFormats(id record.StreamID) recordformat.FormatMap {
	if tags := r.streamTags[id]; tags != nil {
		return recordformat.GetRecordFormats(tags.VRS)
	}
	return nil
}

// SetStreamPlayer attaches a player to a stream, replacing any previous
// one. A nil player detaches.
func (r *RecordFileReader) SetStreamPlayer(id record.StreamID, player StreamPlayer) {
	if player == nil {
		delete(r.players, id)
		return
	}
	r.players[id] = player
	player.OnAttachedToFileReader(r, id)
}

// StreamPlayer returns the player attached to a stream, nil when none is.
func (r *RecordFileReader) StreamPlayer(id record.StreamID) StreamPlayer {
	return r.players[id]
}

// Index returns every record of the file, sorted by timestamp.
func (r *RecordFileReader) Index() []record.Info {
	return r.index
}

// StreamIndex returns a stream's records, sorted, as pointers into Index.
func (r *RecordFileReader) StreamIndex(id record.StreamID) []*record.Info {
	if r.streamIndexes == nil {
		// one pass builds the indexes of every stream
		r.streamIndexes = make(map[record.StreamID][]*record.Info, len(r.streamIDs))
		for i := range r.index {
			info := &r.index[i]
			r.streamIndexes[info.StreamID] = append(r.streamIndexes[info.StreamID], info)
		}
	}
	return r.streamIndexes[id]
}

// RecordCount is the file's total record count.
func (r *RecordFileReader) RecordCount() int {
	return len(r.index)
}

// StreamRecordCount is a stream's record count.
func (r *RecordFileReader) StreamRecordCount(id record.StreamID) int {
	return len(r.StreamIndex(id))
}

// RecordCountOfType is a stream's record count for one record type.
func (r *RecordFileReader) RecordCountOfType(id record.StreamID, t record.Type) uint32 {
	if r.typeCounts == nil {
		r.typeCounts = make(map[streamTypeKey]uint32)
		for i := range r.index {
			r.typeCounts[streamTypeKey{r.index[i].StreamID, r.index[i].Type}]++
		}
	}
	return r.typeCounts[streamTypeKey{id, t}]
}

// GetRecord returns the globalIndex-th record of the file.
func (r *RecordFileReader) GetRecord(globalIndex uint32) *record.Info {
	if int(globalIndex) >= len(r.index) {
		return nil
	}
	return &r.index[globalIndex]
}

// GetRecordOfStream returns the indexNumber-th record of a stream.
func (r *RecordFileReader) GetRecordOfStream(
	id record.StreamID, indexNumber uint32,
) *record.Info {
	streamIndex := r.StreamIndex(id)
	if int(indexNumber) >= len(streamIndex) {
		return nil
	}
	return streamIndex[indexNumber]
}

// GetRecordOfType returns the indexNumber-th record of a stream with the
// given type. Sequential calls resume where the last one left off, so
// linear playback does not rescan the stream.
func (r *RecordFileReader) GetRecordOfType(
	id record.StreamID, t record.Type, indexNumber uint32,
) *record.Info {
	streamIndex := r.StreamIndex(id)
	key := streamTypeKey{id, t}
	hitCount := uint32(0)
	position := 0
	if last := r.lastRequests[key]; last != nil && indexNumber >= last.nextIndex {
		hitCount = last.nextIndex
		position = last.position
	}
	for ; position < len(streamIndex); position++ {
		if streamIndex[position].Type != t {
			continue
		}
		if hitCount == indexNumber {
			r.lastRequests[key] = &typeRequest{
				nextIndex: indexNumber + 1,
				position:  position + 1,
			}
			return streamIndex[position]
		}
		hitCount++
	}
	return nil
}

// GetLastRecord returns a stream's last record of the given type.
func (r *RecordFileReader) GetLastRecord(id record.StreamID, t record.Type) *record.Info {
	streamIndex := r.StreamIndex(id)
	for i := len(streamIndex) - 1; i >= 0; i-- {
		if streamIndex[i].Type == t {
			return streamIndex[i]
		}
	}
	return nil
}

// RecordIndex is the position of a record in Index, len(Index) when the
// pointer is not one of the reader's records.
func (r *RecordFileReader) RecordIndex(info *record.Info) int {
	if info == nil {
		return len(r.index)
	}
	i := sort.Search(len(r.index), func(i int) bool {
		return !r.index[i].Less(info)
	})
	for ; i < len(r.index); i++ {
		if &r.index[i] == info {
			return i
		}
		if info.Less(&r.index[i]) {
			break
		}
	}
	return len(r.index)
}

// timeLowerBound is the position of the first record at or past timestamp.
func (r *RecordFileReader) timeLowerBound(timestamp float64) int {
	return sort.Search(len(r.index), func(i int) bool {
		return r.index[i].Timestamp >= timestamp
	})
}

// GetRecordByTime returns the first record at or past timestamp.
func (r *RecordFileReader) GetRecordByTime(timestamp float64) *record.Info {
	pos := r.timeLowerBound(timestamp)
	if pos >= len(r.index) {
		return nil
	}
	return &r.index[pos]
}

// GetRecordByTimeOfType returns the first record of the given type at or
// past timestamp.
func (r *RecordFileReader) GetRecordByTimeOfType(
	t record.Type, timestamp float64,
) *record.Info {
	for pos := r.timeLowerBound(timestamp); pos < len(r.index); pos++ {
		if r.index[pos].Type == t {
			return &r.index[pos]
		}
	}
	return nil
}

// GetRecordByTimeOfStream returns a stream's first record at or past
// timestamp.
func (r *RecordFileReader) GetRecordByTimeOfStream(
	id record.StreamID, timestamp float64,
) *record.Info {
	for pos := r.timeLowerBound(timestamp); pos < len(r.index); pos++ {
		if r.index[pos].StreamID == id {
			return &r.index[pos]
		}
	}
	return nil
}

// GetRecordByTimeOfStreamType returns a stream's first record of the given
// type at or past timestamp.
func (r *RecordFileReader) GetRecordByTimeOfStreamType(
	id record.StreamID, t record.Type, timestamp float64,
) *record.Info {
	for pos := r.timeLowerBound(timestamp); pos < len(r.index); pos++ {
		if r.index[pos].StreamID == id && r.index[pos].Type == t {
			return &r.index[pos]
		}
	}
	return nil
}

// GetNearestRecordByTime returns the record closest to timestamp, within
// epsilon. A valid stream id restricts the search to that stream, a record
// type other than Undefined to that type.
func (r *RecordFileReader) GetNearestRecordByTime(
	timestamp, epsilon float64, id record.StreamID, t record.Type,
) *record.Info {
	if id.IsValid() {
		return NearestRecordByTime(r.StreamIndex(id), timestamp, epsilon, t)
	}
	if len(r.index) == 0 {
		return nil
	}
	var lowerBound int
	if r.index[len(r.index)-1].Timestamp < timestamp {
		lowerBound = len(r.index) - 1
	} else {
		lowerBound = r.timeLowerBound(timestamp)
	}
	matches := func(info *record.Info) bool {
		return t == record.TypeUndefined || info.Type == t
	}
	var nearest *record.Info
	left := lowerBound
	if left > 0 {
		left--
	}
	for i := left; i >= 0; i-- {
		if timestamp-r.index[i].Timestamp > epsilon {
			break
		}
		if matches(&r.index[i]) {
			nearest = &r.index[i]
			break
		}
	}
	for i := lowerBound; i < len(r.index); i++ {
		diff := r.index[i].Timestamp - timestamp
		if diff > epsilon {
			break
		}
		if matches(&r.index[i]) {
			if nearest == nil || diff < timestamp-nearest.Timestamp {
				nearest = &r.index[i]
			}
			break
		}
	}
	return nearest
}

// NearestRecordByTime returns the record of a sorted index closest to
// timestamp within epsilon, restricted to one record type unless t is
// Undefined.
func NearestRecordByTime(
	streamIndex []*record.Info, timestamp, epsilon float64, t record.Type,
) *record.Info {
	if len(streamIndex) == 0 {
		return nil
	}
	var lowerBound int
	if streamIndex[len(streamIndex)-1].Timestamp < timestamp {
		lowerBound = len(streamIndex) - 1
	} else {
		lowerBound = sort.Search(len(streamIndex), func(i int) bool {
			return streamIndex[i].Timestamp >= timestamp
		})
	}
	matches := func(info *record.Info) bool {
		return t == record.TypeUndefined || info.Type == t
	}
	var nearest *record.Info
	left := lowerBound
	if left > 0 {
		left--
	}
	for i := left; i >= 0; i-- {
		if timestamp-streamIndex[i].Timestamp > epsilon {
			break
		}
		if matches(streamIndex[i]) {
			nearest = streamIndex[i]
			break
		}
	}
	for i := lowerBound; i < len(streamIndex); i++ {
		diff := streamIndex[i].Timestamp - timestamp
		if diff > epsilon {
			break
		}
		if matches(streamIndex[i]) {
			if nearest == nil || diff < timestamp-nearest.Timestamp {
				nearest = streamIndex[i]
			}
			break
		}
	}
	return nearest
}

// ReadRecord reads a record and plays it back to the player attached to its
// stream. Without an attached player the read is a no-op.
func (r *RecordFileReader) ReadRecord(ctx context.Context, info *record.Info) error {
	return r.readRecord(ctx, info, r.players[info.StreamID])
}

// ReadRecordWith reads a record and plays it back to an explicit player.
func (r *RecordFileReader) ReadRecordWith(
	ctx context.Context, info *record.Info, player StreamPlayer,
) error {
	return r.readRecord(ctx, info, player)
}

func (r *RecordFileReader) readRecord(
	ctx context.Context, info *record.Info, player StreamPlayer,
) error {
	if player == nil {
		return nil
	}
	if info.FileOffset+fileformat.RecordHeaderSize > r.file.TotalSize() {
		log.Error(ctx, "record header past the end of the file.", map[string]interface{}{
			"offset": info.FileOffset,
		})
		return vrserrors.ErrInvalidDiskData
	}
	if err := r.file.SetPos(info.FileOffset); err != nil {
		return err
	}
	buf := make([]byte, fileformat.RecordHeaderSize)
	if err := r.file.Read(buf); err != nil {
		return err
	}
	var header fileformat.RecordHeader
	header.Unmarshal(buf)
	if header.RecordSize < fileformat.RecordHeaderSize {
		log.Error(ctx, "record smaller than its own header.", map[string]interface{}{
			"offset":      info.FileOffset,
			"record_size": header.RecordSize,
		})
		return vrserrors.ErrInvalidDiskData
	}
	// the header must agree with the index entry that led here
	if header.Timestamp != info.Timestamp ||
		header.GetRecordType() != info.Type ||
		header.StreamID() != info.StreamID {
		log.Error(ctx, "record header does not match the index.", map[string]interface{}{
			"offset":    info.FileOffset,
			"stream_id": info.StreamID.String(),
		})
		return vrserrors.ErrInvalidDiskData
	}
	dataSize := header.RecordSize - fileformat.RecordHeaderSize
	var uncompressedSize uint32
	switch header.Compression {
	case fileformat.CompressionNone:
		uncompressedSize = dataSize
	case fileformat.CompressionLz4, fileformat.CompressionZstd:
		uncompressedSize = header.UncompressedSize
	default:
		log.Error(ctx, "unknown record compression type.", map[string]interface{}{
			"offset":      info.FileOffset,
			"compression": uint8(header.Compression),
		})
		return vrserrors.ErrUnsupportedVersion
	}
	recordReader, err := file.NewRecordReader(
		r.file, r.decompressor, header.Compression, dataSize, uncompressedSize)
	if err != nil {
		return err
	}
	rec := CurrentRecord{
		Timestamp:     info.Timestamp,
		StreamID:      info.StreamID,
		RecordType:    info.Type,
		FormatVersion: header.FormatVersion,
		RecordSize:    uncompressedSize,
		Reader:        recordReader,
		RecordInfo:    info,
		FileReader:    r,
	}
	var ref file.DataReference
	wantsData := player.ProcessRecordHeader(&rec, &ref) && ref.Size() <= uncompressedSize
	readSize := uint32(0)
	if wantsData && ref.Size() > 0 {
		if err = ref.ReadFrom(recordReader); err != nil {
			return err
		}
		readSize = ref.Size()
	}
	if wantsData {
		player.ProcessRecord(&rec, readSize)
	}
	player.RecordReadComplete(&rec)
	return nil
}

// ReadFirstConfigurationRecord reads a stream's first configuration record.
// A nil player uses the player attached to the stream; an explicit player
// is attached to the stream for the read. Streams without a configuration
// record are a no-op.
func (r *RecordFileReader) ReadFirstConfigurationRecord(
	ctx context.Context, id record.StreamID, player StreamPlayer,
) error {
	info := r.GetRecordOfType(id, record.TypeConfiguration, 0)
	if info == nil {
		return nil
	}
	if player == nil {
		return r.readRecord(ctx, info, r.players[id])
	}
	player.OnAttachedToFileReader(r, id)
	return r.readRecord(ctx, info, player)
}

// ReadFirstConfigurationRecords reads the first configuration record of
// every stream.
func (r *RecordFileReader) ReadFirstConfigurationRecords(
	ctx context.Context, player StreamPlayer,
) error {
	for _, id := range r.streamIDs {
		if err := r.ReadFirstConfigurationRecord(ctx, id, player); err != nil {
			return err
		}
	}
	return nil
}

// ReadFirstConfigurationRecordsForType reads the first configuration record
// of every stream of one stream type.
func (r *RecordFileReader) ReadFirstConfigurationRecordsForType(
	ctx context.Context, t record.StreamType, player StreamPlayer,
) error {
	for _, id := range r.streamIDs {
		if id.Type != t {
			continue
		}
		if err := r.ReadFirstConfigurationRecord(ctx, id, player); err != nil {
			return err
		}
	}
	return nil
}

// MightContainImages tells if a stream declares a record format with an
// image block and holds at least one data record.
func (r *RecordFileReader) MightContainImages(id record.StreamID) bool {
	return r.mightContainContentType(id, recordformat.ContentTypeImage)
}

// MightContainAudio tells if a stream declares a record format with an
// audio block and holds at least one data record.
func (r *RecordFileReader) MightContainAudio(id record.StreamID) bool {
	return r.mightContainContentType(id, recordformat.ContentTypeAudio)
}

func (r *RecordFileReader) mightContainContentType(
	id record.StreamID, t recordformat.ContentType,
) bool {
	for _, format := range r.RecordFormats(id) {
		if format.BlocksOfTypeCount(t) > 0 {
			return r.RecordCountOfType(id, record.TypeData) > 0
		}
	}
	return false
}

// StreamsSignature summarizes the file's streams: ids, serial numbers and
// per-type record counts. Two files with the same signature hold records of
// the same devices.
func (r *RecordFileReader) StreamsSignature() string {
	parts := make([]string, 0, len(r.streamIDs))
	for _, id := range r.streamIDs {
		parts = append(parts, fmt.Sprintf("%d-%s-%d-%d-%d",
			uint16(id.Type),
			r.SerialNumber(id),
			r.RecordCountOfType(id, record.TypeConfiguration),
			r.RecordCountOfType(id, record.TypeState),
			r.RecordCountOfType(id, record.TypeData)))
	}
	return strings.Join(parts, ",")
}

// recordBoundaries is the sorted offsets of every record plus the end of
// user records, which bounds the length of each record.
func (r *RecordFileReader) recordBoundaries() []int64 {
	boundaries := make([]int64, 0, len(r.index)+1)
	sorted := true
	var prev int64 = -1
	for i := range r.index {
		offset := r.index[i].FileOffset
		if offset < prev {
			sorted = false
		}
		prev = offset
		boundaries = append(boundaries, offset)
	}
	end := r.EndOfUserRecordsOffset()
	if fileSize := r.file.TotalSize(); end > fileSize {
		end = fileSize
	}
	boundaries = append(boundaries, end)
	if !sorted {
		sort.Slice(boundaries, func(i, j int) bool { return boundaries[i] < boundaries[j] })
	}
	return boundaries
}

// PrefetchRecordSequence hints the store about the records about to be
// read, in read order. Returns false when the store ignores hints, which
// local files do.
func (r *RecordFileReader) PrefetchRecordSequence(records []*record.Info) bool {
	if !r.file.IsRemote() {
		return false
	}
	boundaries := r.recordBoundaries()
	segments := make([]file.Segment, 0, len(records))
	for _, info := range records {
		if info == nil {
			continue
		}
		next := sort.Search(len(boundaries), func(i int) bool {
			return boundaries[i] > info.FileOffset
		})
		if next >= len(boundaries) {
			continue
		}
		segments = append(segments, file.Segment{
			Offset: info.FileOffset,
			Length: boundaries[next] - info.FileOffset,
		})
	}
	return r.file.Prefetch(segments)
}

// IsRecordAvailableOrPrefetch tells if a record can be read without
// blocking on a remote fetch, requesting the fetch when it cannot. A record
// without an attached player is never reported available.
func (r *RecordFileReader) IsRecordAvailableOrPrefetch(info *record.Info) bool {
	if r.players[info.StreamID] == nil {
		return false
	}
	if !r.file.IsRemote() {
		return true
	}
	return !r.PrefetchRecordSequence([]*record.Info{info})
}
