// Package id generates identifiers for stored records.
//
// UUID returns a random (version 4) identifier. Ordered returns a
// time-ordered (version 7) identifier, so records sort by creation time
// when compared as strings.
package id
