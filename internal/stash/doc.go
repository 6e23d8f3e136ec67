// Package stash implements the encrypted, session-scoped key-value store
// used to pass values between cooperating pipeline commands.
//
// A session is one fully encrypted backing file plus an in-memory access key.
// Nothing besides the file path is ever stored in plaintext; the key travels
// between cooperating processes only as transient session state, via the
// export block emitted by Open. Put re-reads the current content, overlays
// the new fragment on top, re-encrypts, and atomically replaces the backing
// file under an advisory lock, so concurrent readers never observe a torn
// file and the last writer wins.
package stash
