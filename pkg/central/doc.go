// Package central implements the session orchestration core: deciding
// which capabilities to activate on a connected device, decoding and
// dispatching channel updates into domain events, applying vendor
// quirks, and recovering from link loss.
//
// The package consumes abstract Transport and Discovery collaborators;
// the concrete BLE stack binding lives in pkg/ble. All state for one
// device identity is mutated from a single worker goroutine, fed by a
// sequential per-identity event queue, so intra-identity ordering of
// connect, notification and disconnect events is preserved without
// cross-identity locking.
package central
