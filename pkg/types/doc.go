// Package types defines the entity families tracked by coinwatch (watchlist
// items and price alerts), the Family descriptor that lets every store handle
// them generically, the local/remote id scheme, configuration, and the
// standard error taxonomy shared by the local store, the remote client and
// the effective store.
package types
