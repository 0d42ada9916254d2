// Package gatt defines the static capability registry for the supported
// health-sensor profiles.
//
// A capability is a Bluetooth SIG service (blood pressure, health
// thermometer, heart rate, battery, current time, device information).
// Each capability exposes one or more data channels (characteristics),
// and every channel carries the decode rule the dispatcher applies to
// its payloads.
//
// The registry is fixed at compile time and never mutated after
// initialization. Extending the supported profile family means adding
// entries here; no dispatch code changes.
package gatt
