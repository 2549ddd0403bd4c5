// Package core provides the business logic of the reseller ledger.
//
// This package is the heart of the application, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Sheet Definitions: Registered via the registry, each sheet has field
//     specs with aliases, types and normalizers.
//   - Service: The main entry point for all operations (orders, inventory,
//     deletion, export).
//   - Write cycle: Every mutation reads a snapshot, changes it and writes it
//     back naming the version it started from.
//   - History: Every mutation is journaled to the Historial sheet.
//
// # Sheet Registry
//
// Sheets are registered at init time using [Register]. Each [SheetDefinition]
// describes the canonical header of a sheet:
//
//	core.Register(SheetDefinition{
//	    Info: SheetInfo{Key: "Inventario", Label: "Inventario"},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "Producto", Aliases: []string{"product"}, Type: FieldText},
//	        {Name: "Cantidad", Type: FieldNumeric},
//	    },
//	})
//
// Stored headers are matched case-insensitively, missing columns are filled
// with defaults and unknown columns are kept at the end (see [Normalize]).
//
// # Concurrency
//
// Appends (new orders, new items, history entries) are re-applied to a fresh
// snapshot when another writer got there first. Grid edits, grid saves and
// delete requests carry the version the user saw and fail with
// sheet.ErrVersionConflict if the sheet has moved on. The [WriteLimiter]
// bounds how many mutations run at once.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SHT001-SHT006: Sheet store errors (conflicts, missing rows, locks)
//   - VAL001-VAL005: Validation errors
//   - DEL001-DEL002: Delete confirmation errors
//   - HIS001: History lookup errors
//   - IMP001-IMP004: CSV import errors
//   - WRT001: Write limiter saturation
//   - DB001-DB004: Database backend errors
//   - REQ001-REQ003: Request errors (cancelled, timeouts, malformed)
//
// # History
//
// Mutations are recorded in the Historial sheet with severity levels:
//
//   - Low: New orders and inventory items
//   - Medium: Cell edits and status changes
//   - High: Grid saves and row deletions
//   - Critical: Direct sheet overwrites
package core
