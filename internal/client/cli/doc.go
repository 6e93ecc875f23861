// Package cli provides the interactive GophShare command-line client.
//
// It wires configuration, the local state database, the API client with its
// refreshing transport, the session manager and the file and share services
// behind a REPL. Files are encrypted before upload and decrypted only after
// download; the server never sees plaintext.
//
// Key features:
//   - Register / Login (with TOTP second factor) / Logout
//   - Upload, list, download, preview and delete files
//   - Share files with users or through expiring links
//   - Background connectivity watcher shown in the prompt
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
