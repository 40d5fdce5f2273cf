// Package store persists port configurations, filter rules, dictionary
// entries and captured frames in a SQLite database.
//
// The schema is managed by goose migrations embedded in the binary, so a
// fresh file is created and upgraded on Open:
//
//	st, err := store.Open(ctx, path)
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
//	dict, err := st.LoadDictionary(ctx)
//
// Frames keep the hex and text they were decoded with. After the dictionary
// changes, RetranslateFrames decodes the stored bits again.
package store
