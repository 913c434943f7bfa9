// Package logx is hwbot's structured logging on top of zerolog.
//
// Console output is human readable with a short caller, file output is JSON
// lines, and an optional Telegram sink forwards high-severity events to an
// operator chat under a rate limit.
package logx
