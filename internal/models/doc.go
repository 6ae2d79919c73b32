// Package models defines the entities synchronized between the local store
// and the server: cards, review logs and user records, together with the
// identifier and timestamp types they share.
//
// Both sides merge payloads through the same Decode functions, so a record
// accepted by the server is accepted by every client and vice versa.
package models
