package api

// Headers shared with the console clients.
const (
	HeaderConsoleID       = "X-Console-ID"
	HeaderSaveTimestamp   = "X-Save-Timestamp"
	HeaderSaveHash        = "X-Save-Hash"
	HeaderSaveSize        = "X-Save-Size"
	HeaderServerTimestamp = "X-Server-Timestamp"
	HeaderServerHash      = "X-Server-Hash"
)
