// Package storage provides optional cross-restart persistence for the
// dedup layer's suppress-until keys.
//
// Notification content and history are deliberately not persisted; the
// dedup registry in memory is the single source of truth while the process
// runs, and the stored keys only prevent re-notification after a restart
// inside a TTL window.
package storage
