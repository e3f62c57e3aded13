package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
)

// Ensure ProfileStore implements the interface.
var _ driven.ProfileStore = (*ProfileStore)(nil)

// ProfileStore loads field profiles from user-editable YAML files on disk.
// An analyst can reorder the interesting fields for a source, or add their
// own, without rebuilding the binary.
//
// The store uses lazy initialisation - files are only created when first
// accessed, not in the constructor. This makes testing easier and avoids
// unexpected I/O.
type ProfileStore struct {
	mu         sync.RWMutex
	profileDir string
	cache      map[domain.Source]domain.FieldProfile
	initOnce   sync.Once
	initErr    error
}

// profileFile is the YAML schema of one profile file.
type profileFile struct {
	Interesting   []string `yaml:"interesting"`
	FallbackCount int      `yaml:"fallback_count"`
}

// NewProfileStore creates a new file-based profile store.
// If profileDir is empty, defaults to ~/.casetrail/profiles/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewProfileStore(profileDir string) (*ProfileStore, error) {
	if profileDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		profileDir = filepath.Join(home, ".casetrail", "profiles")
	}

	return &ProfileStore{
		profileDir: profileDir,
		cache:      make(map[domain.Source]domain.FieldProfile),
	}, nil
}

// Load returns the field profile for the given source.
// On first call, initialises the profile directory and writes the built-in
// profiles as editable defaults. Returns cached value if available,
// otherwise loads from file. Falls back to the built-in profile if the
// file is missing or broken.
func (s *ProfileStore) Load(source domain.Source) (domain.FieldProfile, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to built-in defaults if init failed
		if profile, ok := domain.DefaultProfiles()[source]; ok {
			return profile, nil
		}
		return domain.FieldProfile{}, fmt.Errorf("profile store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if profile, ok := s.cache[source]; ok {
		s.mu.RUnlock()
		return profile, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	profile, err := s.loadFromFile(source)
	if err != nil {
		// Fall back to built-in default
		if fallback, ok := domain.DefaultProfiles()[source]; ok {
			return fallback, nil
		}
		return domain.FieldProfile{}, fmt.Errorf("load profile %q: %w", source, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[source]; !ok {
		s.cache[source] = profile
	} else {
		// Another goroutine loaded it first, use their value
		profile = s.cache[source]
	}
	s.mu.Unlock()

	return profile, nil
}

// Reload clears the profile cache, forcing fresh loads from disk.
func (s *ProfileStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[domain.Source]domain.FieldProfile)
	s.mu.Unlock()
}

// Dir returns the profile directory path.
func (s *ProfileStore) Dir() string {
	return s.profileDir
}

// initialise creates the profile directory and default files.
// Called once via sync.Once on first Load().
func (s *ProfileStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.profileDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create profile directory: %w", err)
		return
	}

	// Write built-in profiles as starting points (only if they don't exist)
	for source, profile := range domain.DefaultProfiles() {
		path := s.profilePath(source)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			data, err := yaml.Marshal(profileFile{
				Interesting:   profile.Interesting,
				FallbackCount: profile.FallbackCount,
			})
			if err != nil {
				s.initErr = fmt.Errorf("encode default profile %q: %w", source, err)
				return
			}
			if err := os.WriteFile(path, data, 0600); err != nil {
				s.initErr = fmt.Errorf("create default profile %q: %w", source, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a profile from disk.
func (s *ProfileStore) loadFromFile(source domain.Source) (domain.FieldProfile, error) {
	data, err := os.ReadFile(s.profilePath(source))
	if err != nil {
		return domain.FieldProfile{}, err
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return domain.FieldProfile{}, err
	}

	profile := domain.FieldProfile{
		Interesting:   pf.Interesting,
		FallbackCount: pf.FallbackCount,
	}
	// A file with no fallback count keeps the built-in one.
	if profile.FallbackCount <= 0 {
		if fallback, ok := domain.DefaultProfiles()[source]; ok {
			profile.FallbackCount = fallback.FallbackCount
		}
	}
	return profile, nil
}

func (s *ProfileStore) profilePath(source domain.Source) string {
	return filepath.Join(s.profileDir, string(source)+".yaml")
}

// createReadme writes a README file explaining the profiles directory.
func (s *ProfileStore) createReadme() error {
	path := filepath.Join(s.profileDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Casetrail Field Profiles

This directory controls which artifact fields appear first in event
descriptions on the timeline and in search results.

## Files

- ` + "`evtx.yaml`" + ` - Windows Event Log records
- ` + "`registry.yaml`" + ` - Registry hive entries

## Format

` + "```yaml" + `
interesting:
  - TargetUserName
  - IpAddress
fallback_count: 5
` + "```" + `

Fields listed under ` + "`interesting`" + ` are rendered first, in order.
When none of them are present in an event, up to ` + "`fallback_count`" + `
remaining fields are shown in alphabetical order instead.

Changes take effect on the next command.
`
	return os.WriteFile(path, []byte(content), 0600)
}
