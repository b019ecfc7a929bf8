// Package paths holds the separator-aware entry arithmetic shared by every
// provider: the Root entry, parent derivation, direct-child tests, and the
// natural sort order used for folder and file listings.
package paths
