// Package fix assembles decoded NMEA sentences and UBX messages into
// discrete position fixes and provider status transitions.
//
// The assemblers are single-reader state machines: callers feed one
// delimited unit per call from a single goroutine. NMEA and UBX input are
// handled by independent assemblers so that each keeps its own pending fix.
package fix
