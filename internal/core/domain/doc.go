// Package domain defines the core business entities for ingestd.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceInstance: A configured connection to an external system
//   - SyncCursor: Per-source incremental sync position and run state
//   - RawItem: An item fetched by a connector, before normalisation
//   - Document: The canonical normalised record handed downstream
//   - SyncRun: The immutable record of one scheduling attempt
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
