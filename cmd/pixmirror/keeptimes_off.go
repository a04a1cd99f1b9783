//go:build !keeptimes

package main

const keepFileTimes = false
