// Package cli implements the lexisync command-line client.
//
// Every command works against the local database first; only sync and watch
// talk to the server. Study commands never fail because the server is
// unreachable, their writes wait in the local queue until the next round.
//
// Commands:
//
//	lexisync card add <word> <meaning> [--example s]
//	lexisync card delete <card-id>
//	lexisync review <card-id> <again|hard|good|easy|1-4>
//	lexisync due [--limit n]
//	lexisync profile <username>
//	lexisync token set <token>
//	lexisync sync
//	lexisync watch
//	lexisync rejects
//	lexisync status
package cli
