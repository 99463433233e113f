package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"wattsplit/pkg/wattsplit"
)

// readSeriesCSV reads a univariate power series: one reading per row, taken
// from the last column so timestamped files work too. A non-numeric first
// row is treated as a header and skipped.
func readSeriesCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	series := make([]float64, 0, len(rows))
	for i, row := range rows {
		raw := row[len(row)-1]
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		series = append(series, v)
	}
	return series, nil
}

// writeResultsCSV writes one column per appliance, rows aligned to the
// chunk's readings.
func writeResultsCSV(path string, table wattsplit.ResultTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(table.Appliances); err != nil {
		return err
	}

	rows := 0
	for _, name := range table.Appliances {
		if len(table.Series[name]) > rows {
			rows = len(table.Series[name])
		}
	}

	record := make([]string, len(table.Appliances))
	for i := 0; i < rows; i++ {
		for j, name := range table.Appliances {
			record[j] = ""
			if series := table.Series[name]; i < len(series) {
				record[j] = strconv.FormatFloat(series[i], 'f', 4, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
