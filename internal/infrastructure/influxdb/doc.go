// Package influxdb records automation execution metrics in InfluxDB v2.
//
// Writes are non-blocking and batched by the underlying client. When the
// integration is disabled in configuration the rest of the system runs
// without it; callers treat the client as optional.
package influxdb
