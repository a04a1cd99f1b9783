//go:build !verifycopies

package main

const verifyCopies = false
