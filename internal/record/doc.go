// Package record defines the participant record advertised in the registry
// and its wire codec.
//
// Wire form (keys in canonical order, no insignificant whitespace):
//
//	{"categories":["Education","Justice"],"location":"https://example.org/search/"}
//
// The identifier is never part of the payload. It is the ledger key the
// payload was stored under and is set by whoever reads or writes the ledger.
//
// Encoding follows RFC 8785 canonical JSON: sorted keys, NFC-normalized
// strings, no HTML escaping. Two nodes publishing the same record therefore
// produce byte-identical payloads.
package record
