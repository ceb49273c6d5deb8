// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Fetches raw items from an external system
//   - ConnectorFactory: Selects the connector for a source type
//   - Normalizer: Converts raw items into canonical documents
//   - CursorStore: Durable per-source cursor persistence with CAS
//   - RunStore: Bounded run history persistence
//   - HashIndex: Per-source document hash index backing dedup
//   - Ingestor: The external vector-store ingest boundary
//   - SourceProvider: Current source configuration, hot-reloadable
//
// # Optional Interfaces
//
// These degrade gracefully when absent:
//
//   - Notifier: Alert delivery; without it alerts are only logged
//   - Metrics: Measurement emission; NopMetrics discards everything
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
