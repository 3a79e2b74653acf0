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

package file

import (
	// standard libraries.
	"fmt"
	"os"

	// this project.
	"github.com/linkall-labs/vrs/vrserrors"
)

// diskChunk is one physical file of a chunked logical file.
type diskChunk struct {
	f      *os.File
	path   string
	offset int64
	size   int64
}

func (c *diskChunk) contains(pos int64) bool {
	return pos >= c.offset && pos < c.offset+c.size
}

// DiskFile reads a logical file stored as a head file optionally followed by
// chunk files named "<path>_1", "<path>_2", and so on.
type DiskFile struct {
	chunks   []diskChunk
	total    int64
	pos      int64
	current  int
	readOnly bool
	eof      bool
}

var _ WriteHandler = (*DiskFile)(nil)

// OpenDiskFile opens path and all its chunk continuations for reading.
func OpenDiskFile(path string) (*DiskFile, error) {
	return openDiskFile(path, true)
}

// OpenDiskFileForUpdates opens path and all its chunk continuations for
// reading and writing.
func OpenDiskFileForUpdates(path string) (*DiskFile, error) {
	return openDiskFile(path, false)
}

// CreateDiskFile creates path as a new single-chunk file, truncating any
// previous content.
func CreateDiskFile(path string) (*DiskFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &DiskFile{
		chunks: []diskChunk{{f: f, path: path}},
	}, nil
}

func openDiskFile(path string, readOnly bool) (*DiskFile, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	d := &DiskFile{readOnly: readOnly}
	for i := 0; ; i++ {
		chunkPath := path
		if i > 0 {
			chunkPath = fmt.Sprintf("%s_%d", path, i)
		}
		f, err := os.OpenFile(chunkPath, flag, 0)
		if err != nil {
			if i > 0 && os.IsNotExist(err) {
				break
			}
			_ = d.Close()
			return nil, err
		}
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			_ = d.Close()
			return nil, err
		}
		d.chunks = append(d.chunks, diskChunk{
			f:      f,
			path:   chunkPath,
			offset: d.total,
			size:   st.Size(),
		})
		d.total += st.Size()
	}
	return d, nil
}

func (d *DiskFile) Read(buf []byte) error {
	for len(buf) > 0 {
		if d.current >= len(d.chunks) {
			d.eof = true
			return vrserrors.ErrNotEnoughData
		}
		c := &d.chunks[d.current]
		avail := c.offset + c.size - d.pos
		if avail <= 0 {
			d.current++
			continue
		}
		n := int64(len(buf))
		if n > avail {
			n = avail
		}
		if _, err := c.f.ReadAt(buf[:n], d.pos-c.offset); err != nil {
			return err
		}
		d.pos += n
		buf = buf[n:]
		if d.pos == c.offset+c.size {
			d.current++
		}
	}
	d.eof = d.pos >= d.total
	return nil
}

func (d *DiskFile) SetPos(offset int64) error {
	if offset < 0 {
		return vrserrors.ErrInvalidReq
	}
	d.pos = offset
	d.eof = false
	d.current = len(d.chunks)
	for i := range d.chunks {
		if d.chunks[i].contains(offset) || offset == d.chunks[i].offset {
			d.current = i
			break
		}
	}
	return nil
}

func (d *DiskFile) Skip(offset int64) error {
	return d.SetPos(d.pos + offset)
}

func (d *DiskFile) Pos() int64 {
	return d.pos
}

func (d *DiskFile) TotalSize() int64 {
	return d.total
}

func (d *DiskFile) IsEOF() bool {
	return d.eof
}

func (d *DiskFile) ChunkRange(offset int64) (int64, int64, error) {
	for i := range d.chunks {
		if d.chunks[i].contains(offset) {
			return d.chunks[i].offset, d.chunks[i].size, nil
		}
	}
	return 0, 0, vrserrors.ErrInvalidReq
}

// ForgetFurtherChunks is a no-op for local files.
func (d *DiskFile) ForgetFurtherChunks(int64) error {
	return nil
}

func (d *DiskFile) IsRemote() bool {
	return false
}

func (d *DiskFile) IsReadOnly() bool {
	return d.readOnly
}

// SetCachingStrategy is ignored, the page cache already fits all strategies.
func (d *DiskFile) SetCachingStrategy(CachingStrategy) bool {
	return false
}

func (d *DiskFile) Prefetch([]Segment) bool {
	return false
}

func (d *DiskFile) Write(buf []byte) error {
	if d.readOnly {
		return vrserrors.ErrInvalidReq
	}
	if len(d.chunks) == 0 {
		return vrserrors.ErrNoFileOpen
	}
	for len(buf) > 0 {
		i := len(d.chunks) - 1
		for j := range d.chunks {
			if d.chunks[j].contains(d.pos) {
				i = j
				break
			}
		}
		c := &d.chunks[i]
		n := int64(len(buf))
		if i < len(d.chunks)-1 {
			// Writes inside a middle chunk must not cross into the next one.
			if avail := c.offset + c.size - d.pos; n > avail {
				n = avail
			}
		}
		if _, err := c.f.WriteAt(buf[:n], d.pos-c.offset); err != nil {
			return err
		}
		d.pos += n
		if grown := d.pos - c.offset; grown > c.size {
			d.total += grown - c.size
			c.size = grown
		}
		buf = buf[n:]
	}
	return nil
}

// Truncate cuts the logical file down to size, removing chunk files that
// fall entirely past it.
func (d *DiskFile) Truncate(size int64) error {
	if d.readOnly {
		return vrserrors.ErrInvalidReq
	}
	for len(d.chunks) > 0 {
		c := &d.chunks[len(d.chunks)-1]
		if c.offset < size || c.offset == 0 {
			break
		}
		if err := c.f.Close(); err != nil {
			return err
		}
		if err := os.Remove(c.path); err != nil {
			return err
		}
		d.chunks = d.chunks[:len(d.chunks)-1]
	}
	if len(d.chunks) == 0 {
		return vrserrors.ErrNoFileOpen
	}
	last := &d.chunks[len(d.chunks)-1]
	newSize := size - last.offset
	if newSize < 0 {
		newSize = 0
	}
	if err := last.f.Truncate(newSize); err != nil {
		return err
	}
	last.size = newSize
	d.total = last.offset + newSize
	if d.pos > d.total {
		d.pos = d.total
	}
	return nil
}

// ReopenForUpdates reopens every chunk read-write, keeping the position.
func (d *DiskFile) ReopenForUpdates() error {
	if !d.readOnly {
		return nil
	}
	for i := range d.chunks {
		c := &d.chunks[i]
		f, err := os.OpenFile(c.path, os.O_RDWR, 0)
		if err != nil {
			return err
		}
		_ = c.f.Close()
		c.f = f
	}
	d.readOnly = false
	return nil
}

func (d *DiskFile) Close() error {
	var first error
	for i := range d.chunks {
		if err := d.chunks[i].f.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.chunks = nil
	return first
}
