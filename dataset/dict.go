// Copyright 2026 readnext Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"encoding/binary"
	"io"

	"github.com/juju/errors"

	"github.com/readnext-io/readnext/base/encoding"
)

// NotId represents an id that does not exist in a FreqDict.
const NotId = int32(-1)

// FreqDict maps raw string ids to dense indices and tracks how often each id
// has been observed.
type FreqDict struct {
	si  map[string]int32
	is  []string
	cnt []int
}

func NewFreqDict() (d *FreqDict) {
	d = &FreqDict{map[string]int32{}, []string{}, []int{}}
	return
}

func (d *FreqDict) Count() int32 {
	return int32(len(d.is))
}

// Add returns the index of s and counts one occurrence. A missing id is
// inserted.
func (d *FreqDict) Add(s string) (y int32) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// NotCount returns the index of s without counting an occurrence. A missing id
// is inserted.
func (d *FreqDict) NotCount(s string) (y int32) {
	if y, ok := d.si[s]; ok {
		return y
	}

	y = int32(len(d.is))
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 0)
	return
}

// Id returns the index of s, or NotId if s has never been inserted.
func (d *FreqDict) Id(s string) int32 {
	if y, ok := d.si[s]; ok {
		return y
	}
	return NotId
}

func (d *FreqDict) String(id int32) (s string, ok bool) {
	if id < 0 || id >= int32(len(d.is)) {
		return "", false
	}
	return d.is[id], true
}

func (d *FreqDict) Freq(id int32) int {
	if id < 0 || id >= int32(len(d.cnt)) {
		return 0
	}
	return d.cnt[id]
}

// Marshal writes the dictionary to a byte stream.
func (d *FreqDict) Marshal(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(d.is))); err != nil {
		return errors.Trace(err)
	}
	for id, s := range d.is {
		if err := encoding.WriteString(w, s); err != nil {
			return errors.Trace(err)
		}
		if err := binary.Write(w, binary.LittleEndian, int64(d.cnt[id])); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Unmarshal reads a dictionary from a byte stream.
func (d *FreqDict) Unmarshal(r io.Reader) error {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return errors.Trace(err)
	}
	d.si = make(map[string]int32, count)
	d.is = make([]string, 0, count)
	d.cnt = make([]int, 0, count)
	for i := int32(0); i < count; i++ {
		s, err := encoding.ReadString(r)
		if err != nil {
			return errors.Trace(err)
		}
		var freq int64
		if err := binary.Read(r, binary.LittleEndian, &freq); err != nil {
			return errors.Trace(err)
		}
		d.si[s] = int32(len(d.is))
		d.is = append(d.is, s)
		d.cnt = append(d.cnt, int(freq))
	}
	return nil
}
