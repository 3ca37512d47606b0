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
	"fmt"
	"slices"
	"strconv"

	"github.com/poiesic/permitsearch/core"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX decodes a spreadsheet dataset export. The first row of the sheet is
// the header. An empty sheet name selects the first sheet in the workbook.
func ReadXLSX(path, sheet string) ([]*core.Permit, DecodeStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, DecodeStats{}, ErrEmptyTable
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, DecodeStats{}, ErrEmptyTable
	}
	return decodeTable(rows[0], rows[1:])
}

var exportHeader = []any{
	"locationid", "Applicant", "FacilityType", "Address", "Status", "FoodItems",
	"Latitude", "Longitude", "distance",
}

// WriteXLSX writes search results to a new workbook at path.
// The distance column is left blank for results without one.
func WriteXLSX(path, sheet string, results []*core.SearchResult) error {
	if sheet == "" {
		sheet = "Results"
	}
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	// The distance column only appears for ranked results, as in the JSON shape.
	ranked := slices.ContainsFunc(results, (*core.SearchResult).HasDistance)
	header := exportHeader
	if !ranked {
		header = exportHeader[:len(exportHeader)-1]
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			strconv.FormatUint(uint64(r.ID), 10), r.Applicant, r.FacilityType, r.Address,
			r.Status, r.FoodItems, optional(r.Latitude), optional(r.Longitude),
		}
		if ranked {
			row = append(row, optional(r.Distance))
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
