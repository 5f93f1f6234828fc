// Package domain defines the core types that flow through the lead pipeline.
//
// Types in this package are pure value objects with no I/O. They are the shared
// language between lead sources, the enrichment engine, the suppression gate,
// the outreach gateway and the reply router.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Derived values (rates, predicates) are allowed as pure methods
//   - Constants and enums belong here
package domain
