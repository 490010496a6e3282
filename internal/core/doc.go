// Package core provides the business logic for the payee registry: bulk
// registrant imports, statement reconciliation and bulk deletes.
//
// This package holds all domain logic independent of any transport or
// database. It can be used by web handlers, CLI tools, or tests without
// modification. Storage is reached through the [RegistryStore] interface.
//
// # Import Pipeline
//
// A registrant upload flows through four stages:
//
//  1. [ReadTable] decodes the bytes (BOM, UTF-16, invalid UTF-8) and parses CSV
//  2. [HeaderNormalizer] maps header spellings onto canonical fields
//  3. Rows are validated in rule order; the first failing rule is reported
//  4. [Importer] writes accepted rows in sequential batches under the
//     configured [ConflictPolicy]
//
// # Reconciliation
//
// Statement rows are matched to registrants by normalized VPA using a
// [RegistryIndex]. [Matcher] works in chunks, yields between them and
// returns a fresh slice so callers' transactions are never mutated.
//
// # Bulk Delete
//
// [Deleter] de-duplicates ids, deletes them in batches that respect the
// store's filter limit and returns a [DeleteReport] in which deleted ids
// plus failed ids always equal the ids requested.
//
// # Error Handling
//
// Failures are typed ([StructuralError], [RowError], [ConflictError],
// [NotFoundError], [PartialBatchFailure]) and mapped to user-facing
// messages with support codes by [MapError].
//
// # Events
//
// Long-running operations report progress as typed events ([RowRejected],
// [BatchCompleted], [MatchProgress], [DeleteProgress]) through an injected
// [EventSink]. [SlogSink] writes them as structured logs.
package core
