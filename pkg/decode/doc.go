// Package decode implements payload decoding for the supported
// characteristic layouts.
//
// Measurement characteristics use the IEEE-11073 medical float formats:
// SFLOAT (16-bit) for blood pressure fields and FLOAT (32-bit) for
// temperature. Decoders validate payload length and flag consistency and
// return an error for truncated or malformed payloads; they never panic.
package decode
