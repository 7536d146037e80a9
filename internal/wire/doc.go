// Package wire defines the boundary vocabulary shared with the host.
//
// This package contains the names the host understands (methods, events,
// payload keys), the decoded Event shape, and canonical JSON encoding for
// payloads. All other internal packages may import wire; wire imports
// nothing internal.
//
// Key design constraints:
//   - Request-code sign conventions live here and nowhere else in the
//     public API (see internal/bridge for the scope union).
//   - Payload maps are opaque: styling and layout options pass through
//     unmodified.
//   - Canonical JSON is used for anything compared byte-for-byte (journal
//     rows, golden traces), never for the live transport.
package wire
