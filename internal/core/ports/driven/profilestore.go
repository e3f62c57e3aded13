package driven

import (
	"github.com/arclight-labs/casetrail/internal/core/domain"
)

// ProfileStore provides user-customisable field profiles for event
// descriptions. Implementations fall back to the built-in profiles
// when no override exists for a source.
type ProfileStore interface {
	// Load returns the field profile for a source.
	Load(source domain.Source) (domain.FieldProfile, error)

	// Reload discards any cached profiles, forcing fresh loads.
	Reload()

	// Dir returns the directory profiles are loaded from.
	Dir() string
}
