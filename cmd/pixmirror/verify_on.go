//go:build verifycopies

package main

// verifyCopies is enabled with `go build -tags verifycopies`.
const verifyCopies = true
