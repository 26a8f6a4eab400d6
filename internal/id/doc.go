// Package id mints the opaque identifiers stamped on sessions, seats, and
// transcript messages.
//
// Each identifier is a UUIDv4 encoded as unpadded base32 (RFC 4648):
// 26 lowercase characters, safe in URLs and filenames, with no embedded
// timestamp to leak creation order.
package id
