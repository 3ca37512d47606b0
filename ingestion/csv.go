// Copyright 2025 Poiesic Systems
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

package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/poiesic/permitsearch/core"
)

// ReadCSV decodes a CSV dataset export. The first record is the header.
func ReadCSV(r io.Reader) ([]*core.Permit, DecodeStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, DecodeStats{}, ErrEmptyTable
	}
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("read csv header: %w", err)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, DecodeStats{}, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return decodeTable(header, rows)
}
