// Package export renders attendance data into named CSV, JSON and HTML
// blobs. Nothing here touches the filesystem or network; delivery belongs
// to exportsink.
package export
