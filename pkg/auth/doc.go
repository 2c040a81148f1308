// Package auth remembers browser logins between runs.
//
// After the user logs in by hand, the platform cookies are saved under a
// profile name. The next run injects them before opening the listing page
// and skips the login hand-off. Sessions go to the system keychain when it
// is usable (go-keyring) and otherwise to an encrypted file in the user's
// config directory.
package auth
