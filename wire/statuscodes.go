package wire

const (
	// StatusSuccess is the 4-byte status word the server sends to
	// acknowledge a request.
	StatusSuccess = "OKAY"
	// StatusFailure is the 4-byte status word the server sends before a
	// length-prefixed failure message.
	StatusFailure = "FAIL"
	// StatusNone is returned when a read-status call observes a closed
	// connection before any status word arrived.
	StatusNone = ""
)

// Sync protocol ids, as sent over a connection already switched into
// SYNC mode with "sync:".
const (
	syncIDStat = "STAT"
	syncIDList = "LIST"
	syncIDSend = "SEND"
	syncIDRecv = "RECV"
	syncIDDent = "DENT"
	syncIDData = "DATA"
	syncIDDone = "DONE"
	syncIDFail = "FAIL"
	syncIDQuit = "QUIT"
)

// SyncMaxChunkSize is the largest payload the adb server accepts in a
// single SYNC DATA frame.
const SyncMaxChunkSize = 64 * 1024
