// Package topic defines the fixed catalog of semantic data categories a
// participant can advertise.
//
// Tags are plain values. Labels and descriptions live in a separate static
// table so the variant carries no behavior of its own. The label is the wire
// form; lookups by label are case-insensitive and report a miss with a
// boolean rather than an error.
package topic
