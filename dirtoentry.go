package adb

import (
	"os"
	"time"
)

// DirEntry is one entry of a SYNC LIST response (a remote directory
// listing) or the result of a SYNC STAT.
type DirEntry struct {
	Name       string
	Mode       os.FileMode
	Size       int32
	ModifiedAt time.Time
}

// exists reports whether the stat this entry came from found the path.
// The adb server reports a mode of 0 for a path that doesn't exist.
func (e *DirEntry) exists() bool {
	return e.Mode != 0
}

// Exists reports whether the path this entry describes exists on the
// device. A Stat of a nonexistent path still returns a non-nil
// *DirEntry with Exists() == false rather than an error.
func (e *DirEntry) Exists() bool {
	return e.exists()
}

func (e *DirEntry) IsDir() bool {
	return e.exists() && e.Mode.IsDir()
}

func (e *DirEntry) IsRegular() bool {
	return e.exists() && e.Mode.IsRegular()
}

// DirEntries is a lazily-read SYNC LIST result.
type DirEntries struct {
	scanner dirEntryScanner
	currentEntry *DirEntry
	err          error
}

// dirEntryScanner abstracts reading one DENT record at a time so
// listDirEntries can be unit tested without a real SyncConn.
type dirEntryScanner interface {
	ReadNextEntry() (*DirEntry, bool, error)
	Close() error
}

// Next advances to the next entry, returning false at the end of the
// listing or on error (check Err() after Next returns false).
func (entries *DirEntries) Next() bool {
	if entries.err != nil {
		return false
	}
	entry, ok, err := entries.scanner.ReadNextEntry()
	if err != nil {
		entries.err = err
		return false
	}
	if !ok {
		return false
	}
	entries.currentEntry = entry
	return true
}

// Entry returns the entry most recently advanced to by Next.
func (entries *DirEntries) Entry() *DirEntry {
	return entries.currentEntry
}

// Err returns the first error encountered, if any, after Next returns
// false.
func (entries *DirEntries) Err() error {
	return entries.err
}

// Close releases the underlying connection.
func (entries *DirEntries) Close() error {
	return entries.scanner.Close()
}

// ReadAllDirEntries drains entries into a slice; useful for tests and
// small directories.
func ReadAllDirEntries(entries *DirEntries) ([]*DirEntry, error) {
	defer entries.Close()

	var result []*DirEntry
	for entries.Next() {
		result = append(result, entries.Entry())
	}
	return result, entries.Err()
}
