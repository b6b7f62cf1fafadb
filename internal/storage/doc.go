// Package storage provides durable key/value persistence for credvault.
//
// Two backends implement Store:
//   - bolt: BBolt file with two buckets, config (version, timestamps,
//     vault id) and vault (tags, ciphertexts, IVs, attempt counters)
//   - sqlite: single entries table keyed by (namespace, key)
//
// Only the vault namespace is visible through Get, Set, Keys, IsEmpty
// and Clear. The config namespace survives Clean so the vault id and the
// hardware key names derived from it stay stable.
//
// Values are opaque bytes; all encoding is done by the caller.
package storage
