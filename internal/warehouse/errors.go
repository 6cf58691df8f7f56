//-------------------------------------------------------------------------
//
// GlobalCart Warehouse Refresh
//
// Copyright (c) 2025 - 2026, GlobalCart Data Platform
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"errors"
	"fmt"
)

// ErrMissingReference marks a generation step that required a dimension
// row which does not exist. A run hitting this aborts; the generators
// never substitute a placeholder value into a fact row.
var ErrMissingReference = errors.New("missing dimension reference")

// MissingReference wraps ErrMissingReference with the entity that was
// required but absent.
func MissingReference(entity string) error {
	return fmt.Errorf("%w: no %s rows available", ErrMissingReference, entity)
}
