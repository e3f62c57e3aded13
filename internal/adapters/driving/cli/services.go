package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/arclight-labs/casetrail/internal/adapters/driven/backends"
	"github.com/arclight-labs/casetrail/internal/adapters/driven/config/file"
	"github.com/arclight-labs/casetrail/internal/adapters/driven/parsers"
	"github.com/arclight-labs/casetrail/internal/adapters/driven/storage/sqlite"
	"github.com/arclight-labs/casetrail/internal/core/domain"
	"github.com/arclight-labs/casetrail/internal/core/ports/driven"
	"github.com/arclight-labs/casetrail/internal/core/ports/driving"
	"github.com/arclight-labs/casetrail/internal/core/services"
	"github.com/arclight-labs/casetrail/internal/logger"
)

// Services used by the commands. Initialised lazily by the ensure
// functions below; tests assign mocks and set the ready flags directly.
var (
	configStore     driven.ConfigStore
	profileStore    driven.ProfileStore
	caseStore       driven.CaseStore
	searchService   driving.CaseSearcher
	ingestService   driving.CorpusIngestor
	timelineService driving.TimelineBuilder

	registryStore  *sqlite.Store
	backendsResult *backends.InitResult

	coreReady     bool
	registryReady bool
	backendsReady bool
)

// ensureCore initialises configuration, field profiles and the
// timeline service. Purely local, never touches the network.
func ensureCore() error {
	if coreReady {
		return nil
	}

	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	configStore = cfg

	profiles, err := file.NewProfileStore(profilesDir())
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	profileStore = profiles

	tl := services.NewTimelineService()
	overrides := make(map[domain.Source]domain.FieldProfile)
	for _, source := range []domain.Source{domain.SourceEvtx, domain.SourceRegistry} {
		profile, err := profileStore.Load(source)
		if err != nil {
			logger.Warn("Field profile for %s unavailable: %v", source, err)
			continue
		}
		overrides[source] = profile
	}
	tl.SetProfiles(overrides)
	timelineService = tl

	coreReady = true
	return nil
}

// ensureRegistry opens the SQLite case registry.
func ensureRegistry() error {
	if registryReady {
		return nil
	}

	store, err := sqlite.NewStore(dataDir())
	if err != nil {
		return fmt.Errorf("open case registry: %w", err)
	}
	registryStore = store
	caseStore = store.CaseStore()

	registryReady = true
	return nil
}

// ensureBackends connects to the embedding and vector backends and
// builds the services that need them. Fails when the embedding
// backend is unreachable; a missing vector store degrades to an
// in-memory index with a warning.
func ensureBackends() error {
	if backendsReady {
		return nil
	}
	if err := ensureCore(); err != nil {
		return err
	}

	result, err := backends.Init(backends.Config{
		EmbeddingBaseURL:           configValue("CASETRAIL_OLLAMA_URL", "embedding.base_url"),
		EmbeddingModel:             configValue("CASETRAIL_EMBED_MODEL", "embedding.model"),
		EmbeddingMaxConcurrency:    configStore.GetInt("embedding.max_concurrency"),
		EmbeddingRequestsPerSecond: configStore.GetFloat64("embedding.requests_per_second"),
		ChromaURL:                  configValue("CASETRAIL_CHROMA_URL", "chroma.url"),
		MemoryVectors:              configStore.GetBool("vectors.memory"),
	})
	if err != nil {
		return err
	}
	backendsResult = result

	index := services.NewIndexService(result.Embedding, result.Vectors)
	searchService = index

	evtx := parsers.NewEvtxGenerator(configValue("CASETRAIL_EVTX_PARSER", "parsers.evtx_command"))
	registry := parsers.NewRegistryGenerator(configValue("CASETRAIL_REGISTRY_PARSER", "parsers.registry_command"))
	if secs := configStore.GetInt("parsers.timeout_seconds"); secs > 0 {
		evtx.SetTimeout(time.Duration(secs) * time.Second)
		registry.SetTimeout(time.Duration(secs) * time.Second)
	}

	corpus := services.NewCorpusService(index, evtx, registry)
	if caseStore != nil {
		corpus.SetCaseStore(caseStore)
	}
	if n := configStore.GetInt("ingest.batch_size"); n > 0 {
		corpus.SetBatchSize(n)
	}
	ingestService = corpus

	backendsReady = true
	return nil
}

// shutdown releases backend connections. Safe to call when nothing
// was initialised.
func shutdown() {
	if backendsResult != nil {
		backendsResult.Close()
	}
	if registryStore != nil {
		if err := registryStore.Close(); err != nil {
			logger.Warn("Closing case registry: %v", err)
		}
	}
}

// configValue resolves a setting from the environment override first,
// then the config file.
func configValue(envKey, cfgKey string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configStore != nil {
		return configStore.GetString(cfgKey)
	}
	return ""
}

// profilesDir returns the field profile directory honouring --config.
func profilesDir() string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "profiles")
}

// dataDir returns the case registry directory honouring --config.
func dataDir() string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "data")
}

// printBackendWarnings surfaces degraded-mode notices such as the
// in-memory vector fallback.
func printBackendWarnings(cmd *cobra.Command) {
	if backendsResult == nil {
		return
	}
	for _, w := range backendsResult.Warnings {
		cmd.Println(styles.Warn.Render("Warning: " + w))
	}
}
