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

package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readnext-io/readnext/base/log"
	"github.com/readnext-io/readnext/storage/events"
)

const importBatchSize = 1000

var importCommand = &cobra.Command{
	Use:   "import FILE",
	Short: "Import reading events from a CSV file",
	Long: "Import reading events from a CSV file into the event store.\n\n" +
		"Each line is user_id<sep>item_id[<sep>value[<sep>timestamp]]. The value\ndefaults to 1 and the timestamp to the import time.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := loadSettings(cmd)
		if err != nil {
			log.Logger().Fatal("failed to load settings", zap.Error(err))
		}
		defer settings.EventStore.Close()
		count, err := importEvents(cmd, args[0], settings.Config.Data.CSVSep,
			settings.Config.Data.CSVHeader, settings.EventStore)
		if err != nil {
			log.Logger().Fatal("failed to import events", zap.Error(err))
		}
		log.Logger().Info("events imported",
			zap.String("file", args[0]),
			zap.Int("count", count))
	},
}

func importEvents(cmd *cobra.Command, path, sep string, header bool, store *events.Store) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer file.Close()
	bar := progressbar.DefaultBytes(info.Size(), "import events")
	scanner := bufio.NewScanner(file)
	var batch []events.Event
	count := 0
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := scanner.Text()
		_ = bar.Add(len(line) + 1)
		if lineNumber == 1 && header {
			continue
		}
		if line == "" {
			continue
		}
		event, err := parseEvent(line, sep)
		if err != nil {
			return 0, errors.Annotatef(err, "line %v", lineNumber)
		}
		batch = append(batch, event)
		if len(batch) >= importBatchSize {
			if err = store.Insert(cmd.Context(), batch); err != nil {
				return 0, errors.Trace(err)
			}
			count += len(batch)
			batch = batch[:0]
		}
	}
	if err = scanner.Err(); err != nil {
		return 0, errors.Trace(err)
	}
	if len(batch) > 0 {
		if err = store.Insert(cmd.Context(), batch); err != nil {
			return 0, errors.Trace(err)
		}
		count += len(batch)
	}
	_ = bar.Finish()
	return count, nil
}

func parseEvent(line, sep string) (events.Event, error) {
	splits := strings.Split(line, sep)
	if len(splits) < 2 || splits[0] == "" || splits[1] == "" {
		return events.Event{}, errors.NotValidf("record %q", line)
	}
	event := events.Event{
		UserId:    splits[0],
		ItemId:    splits[1],
		Value:     1,
		Timestamp: time.Now(),
	}
	if len(splits) > 2 && splits[2] != "" {
		value, err := strconv.ParseFloat(splits[2], 64)
		if err != nil || value < 0 {
			return events.Event{}, errors.NotValidf("value %q", splits[2])
		}
		event.Value = value
	}
	if len(splits) > 3 && splits[3] != "" {
		timestamp, err := dateparse.ParseAny(splits[3])
		if err != nil {
			return events.Event{}, errors.NotValidf("timestamp %q", splits[3])
		}
		event.Timestamp = timestamp
	}
	return event, nil
}
