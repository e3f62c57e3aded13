// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion and search to function:
//
//   - EmbeddingService: Turns text into vectors
//   - VectorStore: Stores and queries embedding records per case
//   - DerivativeGenerator: Runs an external parser over a raw artifact
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CaseStore: Case registry bookkeeping. Without it, cases cannot be
//     addressed by id and run history is not recorded.
//   - ConfigStore: Application configuration.
//
// The timeline pipeline uses no driven port at all; it reads derivative
// files straight from the case directory.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
