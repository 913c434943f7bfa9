// Package storage is the optional audit store of the daemon.
//
// It records every poll cycle and every outbound notification attempt, and
// can report the last delivered message so duplicate suppression survives a
// restart. Two drivers exist: "file" (JSON Lines) and "sqlite".
package storage
