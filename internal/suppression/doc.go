// Package suppression implements the suppression gate.
//
// The gate is the single source of truth for whether an address may be
// contacted. Entries flow in from unsubscribe replies, bounces, spam
// complaints, webhook events and manual imports. Every batch headed for an
// outreach platform must pass through FilterLeads first; the gateway in
// package outreach only accepts the Cleared value FilterLeads returns.
//
// The whole table is held in memory and written back in full through a
// Store on every mutation.
package suppression
