// Package domain defines the core business types and interfaces for the admission
// control and audit pipeline.
//
// This package contains pure domain logic with ZERO external dependencies outside the
// Go standard library (plus uuid for record identifiers). All types in this package are:
//
// - Independent of infrastructure (no Redis, Postgres, HTTP, etc.)
// - Technology-agnostic (no framework coupling)
// - Testable in isolation without mocks
// - Stable and unlikely to change frequently
//
// Other packages (ratelimit, audit, storage, scoring) implement the interfaces
// defined here and depend on these types. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
//
// This architecture enables:
// - Easy testing through interface mocking
// - Technology swap without domain changes
// - Clear separation of concerns
// - Flexible composition in main.go
package domain
