//go:build keeptimes

package main

// keepFileTimes is enabled with `go build -tags keeptimes`.
const keepFileTimes = true
