package contentstore

import "errors"

// ErrDestinationExists is returned by Materialize when the destination path
// is already occupied.
var ErrDestinationExists = errors.New("contentstore: destination path already exists")
