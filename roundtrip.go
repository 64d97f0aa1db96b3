package adb

import "github.com/openadb/goadb/wire"

// roundTripSingleResponse dials a fresh connection, sends req, expects
// OKAY, reads one length-prefixed message, and closes the connection.
// It's used for the many host-level queries that return a single
// short payload (host:version, host-serial:<s>:get-state, ...).
func roundTripSingleResponse(s server, req string) ([]byte, error) {
	conn, err := s.Dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := wire.SendMessageString(conn, req); err != nil {
		return nil, err
	}
	if _, err := conn.ReadStatus(req); err != nil {
		return nil, err
	}
	return conn.ReadMessage()
}

// roundTripSingleNoResponse is roundTripSingleResponse for requests that
// only return a status, no payload (host-serial:<s>:forward:...,
// host-serial:<s>:killforward, ...).
//
// The adb host:forward command is documented to reply with a single
// OKAY, but some server versions send two (one acknowledging the
// forward request, one acknowledging the connection to the local
// service). We tolerate either: after the first OKAY we read one more
// status word. That read blocks until the server sends one or closes
// the connection, and its result (OKAY, FAIL, or an error) is ignored.
func roundTripSingleNoResponse(s server, req string) error {
	conn, err := s.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := wire.SendMessageString(conn, req); err != nil {
		return err
	}
	if _, err := conn.ReadStatus(req); err != nil {
		return err
	}

	// Tolerate the second OKAY some adb servers send for host:forward;
	// a read error here (including EOF) just means there wasn't one.
	conn.ReadStatus(req) //nolint:errcheck

	return nil
}
