// Package v1 holds the Go types of framelink.proto.
package v1

//go:generate protoc --go_out=paths=source_relative:. framelink.proto
