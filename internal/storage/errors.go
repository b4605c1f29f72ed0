package storage

import "fmt"

// StorageError is a failed call against the object-storage backend. The
// caller decides whether to retry; deletes never surface one.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}
func (e *StorageError) Unwrap() error { return e.Err }

// FetchError is a failed remote fetch for StoreFileFromURL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
func (e *FetchError) Unwrap() error { return e.Err }
