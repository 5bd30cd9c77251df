// Package storage persists collection records to a CSV table.
//
// A Store is opened once per collection run. Opening loads the url column of
// an existing table into memory so Merge can drop records that were already
// written; a missing table is created with the canonical header
// (url,caption,place_name,city,state,country). Each accepted record is
// appended and flushed immediately, so an interrupted run leaves a valid
// table behind.
//
// Tables with an older header are rejected with ErrSchemaMismatch unless the
// store is opened with HeaderMigrate, which rewrites known legacy layouts in
// place through a temporary file.
//
// SortTable reorders a finished table by geography and ExportXLSX copies it
// into a spreadsheet.
//
//	store, err := storage.Open("out/food.csv", storage.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	written, err := store.Merge(storage.Record{URL: url, Caption: caption})
package storage
