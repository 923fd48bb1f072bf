package flatten

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes a header line followed by one line per row, using the
// fixed column order registered for the record kind.
func WriteCSV(w io.Writer, kind string, rows []Row) error {
	cols := headers[kind]
	if cols == nil {
		return fmt.Errorf("no flat schema registered for resource type %q", kind)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BundleToCSV flattens all entries of the given kind from a bundle and
// writes them as CSV.
func BundleToCSV(w io.Writer, bundle map[string]interface{}, kind string) error {
	return WriteCSV(w, kind, RowsFromBundle(bundle, kind))
}
