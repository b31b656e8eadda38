package cache

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the lifecycle state of a cache record.
type Status string

const (
	// StatusUnready means a download is in progress; no file exists yet.
	StatusUnready Status = "unready"
	// StatusReady means the file is on disk and complete.
	StatusReady Status = "ready"
	// StatusFailed means every source PFN was exhausted without success.
	StatusFailed Status = "failed"
)

// ErrUnknownStatus is returned when decoding a record with an unrecognized
// status value.
var ErrUnknownStatus = errors.New("cache: unknown record status")

// Record is the persisted state for one LFN. The UUID is not stored: it is
// always re-derived as SHA1(lfn), per the canonical, derived form chosen in
// DESIGN.md over the alternative of storing it directly in the record.
type Record struct {
	LFN    string `json:"lfn"`
	Status Status `json:"status"`
}

// encode serializes a Record as stable, readable JSON, a length-prefixed-free
// stand-in for the original's pickled {status, uuid} record.
func (r Record) encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("cache: error encoding record for %q: %w", r.LFN, err)
	}

	return b, nil
}

func decodeRecord(raw []byte) (Record, error) {
	var r Record

	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("cache: error decoding record: %w", err)
	}

	switch r.Status {
	case StatusUnready, StatusReady, StatusFailed:
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownStatus, r.Status)
	}

	return r, nil
}
