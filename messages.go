package tds

import "context"

// decodeMsg parses an `ERR`, `MSG`, or `EED` token into a MsgInfo and
// forwards it through sess.MsgSink: spec.md §4.7 "Messages", grounded
// on tds_process_msg (the same function FreeTDS calls for all three
// markers) and the teacher's parseError72/parseInfo.
//
// EED carries two fields MSG/ERR don't: a length-prefixed sql_state,
// and a junk status byte plus a u16 transaction descriptor that ride
// along right after it. An EED also ends any dynamic statement the
// session had selected, since it may be followed by a PARAMFMT/PARAMS
// pair that belongs to the next batch rather than to cur_dyn.
func decodeMsg(ctx context.Context, r *Reader, sess *Session, tok token) {
	_ = r.GetU16() // length: redundant with the field-by-field read that follows
	var msg MsgInfo
	msg.MsgNumber = r.GetI32()
	msg.State = r.GetU8()
	msg.Level = r.GetU8()

	switch tok {
	case tokenError:
		msg.IsError = true
	case tokenInfo:
		msg.IsError = false
	case tokenEED:
		msg.IsError = msg.Level > 10
		n := int(r.GetU8())
		msg.SQLState = r.GetString(n)
		_ = r.GetU8()  // status, unused
		_ = r.GetU16() // transaction descriptor, unused
		sess.CurDyn = nil
	}

	msg.Message = r.GetString(int(r.GetU16()))
	msg.Server = r.GetString(int(r.GetU8()))
	msg.ProcName = r.GetString(int(r.GetU8()))
	msg.LineNumber = r.GetI32()

	if sess.MsgSink == nil {
		return
	}
	if err := sess.MsgSink(ctx, sess, msg); err != nil {
		sess.state = StateDead
	}
}

// decodeEnvChange parses an `ENV_CHG` token: spec.md §4.7 "Env change".
// Every sub-type except SQLCOLLATION (0x07) is a pair of length-
// prefixed strings; SQLCOLLATION's "values" are opaque bytes of the
// same shape, read byte-for-byte rather than as (UCS-2) text.
// PACKSIZE additionally attempts to grow the session's packet buffer.
// Grounded on the teacher's processEnvChg, collapsed to the single
// generic shape spec.md describes rather than the teacher's one-case-
// per-sub-type switch, since every sub-type this protocol surface
// cares about shares that wire shape.
func decodeEnvChange(r *Reader, sess *Session) {
	size := int(r.GetU16())
	envType := r.GetU8()
	// readValue returns one length-prefixed value and the wire bytes it
	// took, prefix included.
	readValue := func() (string, int) {
		n := int(r.GetU8())
		if envType == envSQLCollation || sess.Version < TDS70 {
			buf := make([]byte, n)
			r.GetBytes(buf)
			return string(buf), 1 + n
		}
		return r.GetString(n), 1 + 2*n
	}
	newValue, newLen := readValue()
	oldValue, oldLen := readValue()
	consumed := 1 + newLen + oldLen

	if rest := size - consumed; rest > 0 {
		r.Skip(rest)
	}

	if envType == envTypPacketSize {
		sess.growPacketBuffer(newValue)
	}

	if sess.EnvSink != nil {
		sess.EnvSink(sess, envType, oldValue, newValue)
	}
}

// decodeAuthChallenge parses a TDS 7+ NTLM authentication challenge
// and hands its nonce to sess.AuthResponder: spec.md §4.7 "Auth
// (NTLM-style challenge)". original_source/ has no TDS7+ NTLM path
// (it predates SQL Server's NTLM login extension), so this is grounded
// directly on spec.md's byte layout, which matches the standard NTLMSSP
// CHALLENGE_MESSAGE structure: signature, message type, target-name
// fields, flags, an 8-byte server challenge, then reserved/payload
// bytes this layer has no use for.
func decodeAuthChallenge(r *Reader, sess *Session) {
	size := int(r.GetU16())

	var sig [8]byte
	r.GetBytes(sig[:]) // "NTLMSSP\0"
	_ = r.GetU32()     // sequence (message type)
	_ = r.GetU16()     // domain length
	_ = r.GetU16()     // domain max length
	_ = r.GetU32()     // domain offset
	_ = r.GetU32()     // flags

	var nonce [8]byte
	r.GetBytes(nonce[:])
	var reserved [8]byte
	r.GetBytes(reserved[:])

	const consumed = 8 + 4 + 2 + 2 + 4 + 4 + 8 + 8
	if rest := size - consumed; rest > 0 {
		r.Skip(rest)
	}

	if sess.AuthResponder != nil {
		if err := sess.AuthResponder(sess, nonce); err != nil {
			sess.state = StateDead
		}
	}
}
