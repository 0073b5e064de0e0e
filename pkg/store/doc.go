// Package store defines the persistence contract used by the create
// strategy when a factory does not declare its own persistor.
//
// Responsibilities:
//   - Store only saves/loads flattened attribute records for a single Ref.
//   - Save assigns an identifier when Ref.ID is empty and returns it in Meta.
//   - The core factory package stays persistence-agnostic; adapters such as
//     MemoryStore and redisstore.Store live behind this interface.
//
// Data flow:
//
//	Registry.Create -> default persistor -> Store.Save -> Meta.ID -> instance ID
//
// Deterministic keys:
//
//	Ref.Identifier() yields "<factory>/<id>" and is shared by every adapter so
//	records can move between backends without rewriting keys.
package store
