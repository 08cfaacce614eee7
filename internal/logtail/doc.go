// Package logtail reads the tail of the application log for display.
//
// The log file is written by the zap production encoder, one JSON object
// per line with ts, level, logger and msg keys plus structured fields.
// Read returns raw lines using a fixed-size ring buffer so large files
// are scanned once without holding more than maxLines in memory. Parse
// turns a line into an Entry; lines that are not JSON are kept verbatim
// as the message so a hand-edited or truncated log still displays.
package logtail
