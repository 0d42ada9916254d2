// Package ble binds the orchestration core to a physical Bluetooth Low
// Energy adapter. It implements the core's Transport and Discovery
// collaborators on top of tinygo.org/x/bluetooth, mapping registry
// capabilities and channels to their 16-bit service and characteristic
// UUIDs.
package ble
