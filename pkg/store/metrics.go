package store

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Stats is a compact census of the store, used by the maintenance job and
// the readiness surface.
type Stats struct {
	Users         int
	Conversations int
	Messages      int
	Presence      int
	DiskBytes     uint64
}

// GetStats walks the keyspace and counts records per collection, plus a
// best-effort on-disk size of the DB directory.
func GetStats() (Stats, error) {
	var st Stats
	if db == nil {
		return st, notOpened()
	}
	keys, err := ListKeys("")
	if err != nil {
		return st, err
	}
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, userPrefix):
			st.Users++
		case strings.HasPrefix(k, presencePrefix):
			st.Presence++
		case strings.HasPrefix(k, convPrefix):
			if strings.HasSuffix(k, ":meta") {
				st.Conversations++
			} else if strings.Contains(k, ":msg:") {
				st.Messages++
			}
		}
	}
	if dbPath != "" {
		var total uint64
		_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				total += uint64(fi.Size())
			}
			return nil
		})
		st.DiskBytes = total
	}
	return st, nil
}
