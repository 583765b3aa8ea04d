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
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// LoadDataFromCSV loads interactions from a CSV file. Every line holds a user
// id, an item id and an optional signal strength separated by sep. The signal
// defaults to 1 when the column is absent or empty.
func LoadDataFromCSV(path, sep string, hasHeader bool) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	userDict, itemDict := NewFreqDict(), NewFreqDict()
	feedback := make([]Feedback, 0)
	line := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		text := scanner.Text()
		line++
		if hasHeader && line == 1 {
			continue
		}
		if text == "" {
			continue
		}
		fields := strings.Split(text, sep)
		if len(fields) < 2 {
			return nil, errors.Annotatef(ErrInvalidRecord, "line %v: expect at least 2 fields", line)
		}
		value := 1.0
		if len(fields) > 2 && fields[2] != "" {
			value, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, errors.Annotatef(ErrInvalidRecord, "line %v: %v", line, err)
			}
		}
		feedback = append(feedback, Feedback{
			UserIndex: userDict.Add(fields[0]),
			ItemIndex: itemDict.Add(fields[1]),
			Value:     value,
		})
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return NewDatasetWithIndex(feedback, userDict, itemDict)
}
