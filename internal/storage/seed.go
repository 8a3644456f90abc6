package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"preflight/internal/aero"
)

// ReadReferences parses a JSON array of references, or a single object.
func ReadReferences(r io.Reader) ([]aero.Reference, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read references: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] != '[' {
		var one aero.Reference
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("parse reference: %w", err)
		}
		return []aero.Reference{one}, nil
	}
	var refs []aero.Reference
	if err := json.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parse references: %w", err)
	}
	return refs, nil
}

// Saver is the write half of a ReferenceStore.
type Saver interface {
	SaveReference(ctx context.Context, ref aero.Reference) error
}

// Seed saves every reference, stamping a missing UpdatedAt with now. It
// stops at the first failure and reports how many were saved before it.
func Seed(ctx context.Context, s Saver, refs []aero.Reference, now time.Time) (int, error) {
	for i, ref := range refs {
		ref.ICAO = aero.NormaliseICAO(ref.ICAO)
		if ref.UpdatedAt.IsZero() {
			ref.UpdatedAt = now.UTC()
		}
		if err := s.SaveReference(ctx, ref); err != nil {
			return i, fmt.Errorf("seed %s: %w", ref.ICAO, err)
		}
	}
	return len(refs), nil
}
