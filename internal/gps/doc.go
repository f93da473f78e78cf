// Package gps reads raw receiver output and feeds it to the fix assemblers.
//
// A receiver stream may interleave NMEA sentences and UBX frames with line
// noise. StreamReader splits it into delimited units; Service owns the
// transport (serial port, gpsd raw mode or a replay log), routes NMEA units to
// the NMEA assembler and UBX units to the UBX assembler, and keeps a
// Snapshot of counters for the status API.
package gps
