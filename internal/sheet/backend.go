package sheet

import "context"

// Backend is a store of named sheets supporting only whole-table operations.
type Backend interface {
	// Read returns the current contents and version of sheet.
	// A sheet that does not exist yields an empty table at version 0.
	Read(ctx context.Context, sheet string) (Snapshot, error)

	// Write replaces the whole sheet with t if its current version equals
	// expected, and returns the new version. Otherwise it writes nothing and
	// returns ErrVersionConflict.
	Write(ctx context.Context, sheet string, t Table, expected int64) (int64, error)
}

// Closer is implemented by backends holding resources.
type Closer interface {
	Close() error
}

// Close releases b's resources if it holds any.
func Close(b Backend) error {
	if c, ok := b.(Closer); ok {
		return c.Close()
	}
	return nil
}
