// Package nmea tokenizes and decodes NMEA-0183 sentences.
//
// Tokenize accepts exactly one already-delimited sentence and validates its
// XOR checksum. Decode turns a validated sentence into one of the typed
// records (GGA, RMC, GSA, VTG, GLL) or Unknown for anything else.
package nmea
