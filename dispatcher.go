package tds

import (
	"context"
	"fmt"
)

// maxCapabilityLen bounds the CAP token's capabilities blob: spec.md
// §4.6 "CAP (capabilities blob, bounded by a max)", grounded on
// tds_process_default_tokens's TDS_MAX_CAPABILITY clamp (the constant
// itself lives in a header outside the retrieved source, so this picks
// the historical Sybase/FreeTDS value).
const maxCapabilityLen = 32

// doneResult is the parsed body of a DONE/DONEPROC/DONEINPROC token:
// spec.md §4.4 "End token".
type doneResult struct {
	status       uint16
	rowsAffected int32
}

func (d doneResult) moreResults() bool { return d.status&doneMore != 0 }
func (d doneResult) cancelled() bool   { return d.status&doneAttn != 0 }
func (d doneResult) hasCount() bool    { return d.status&doneCount != 0 }
func (d doneResult) hasError() bool    { return d.status&doneError != 0 }

// decodeEnd parses a DONE/DONEPROC/DONEINPROC token body and applies
// its session-wide effects: spec.md §4.4 "End token", grounded on
// tds_process_end.
func decodeEnd(r *Reader, sess *Session) doneResult {
	var d doneResult
	d.status = r.GetU16()
	_ = r.GetU16() // current command, discarded
	d.rowsAffected = r.GetI32()

	if sess.ResInfo != nil {
		sess.ResInfo.MoreResults = d.moreResults()
	}
	sess.RowsAffected = int64(d.rowsAffected)
	if d.cancelled() || !d.moreResults() {
		sess.state = StateCompleted
	}
	return d
}

// processParamResultTokens consumes one PARAM token already read by
// the caller, then keeps consuming further PARAM tokens as long as
// they immediately follow, leaving the first non-PARAM marker
// unconsumed: spec.md §4.4 "Parameter / Params / Dyn-result tokens",
// grounded on tds_process_param_result_tokens.
func processParamResultTokens(r *Reader, sess *Session) {
	decodeParam(r, sess)
	for r.PeekMarker() == tokenParam {
		r.NextMarker()
		decodeParam(r, sess)
	}
}

// decodeRow parses a `ROW` token into sess.ResInfo: spec.md §4.6
// "process_row_tokens", grounded on tds_process_row.
func decodeRow(r *Reader, sess *Session) {
	info := sess.ResInfo
	if info == nil {
		protocolPanicf("tds: ROW token with no preceding result descriptor")
	}
	sess.currResInfo = info
	info.RowCount++
	for i, col := range info.Columns {
		decodeValue(r, sess, info, col, i)
	}
}

// decodeComputeRow parses a `CMP_ROW` token's column values into the
// ComputeInfo its compute_id already matched: spec.md §4.6
// "process_row_tokens", grounded on tds_process_compute.
func decodeComputeRow(r *Reader, sess *Session, info *ComputeInfo) {
	sess.currResInfo = &info.ResultInfo
	for i, col := range info.Columns {
		decodeValue(r, sess, &info.ResultInfo, col, i)
	}
}

// decodeLoginAck parses a `LOGIN_ACK` token and reports whether it
// signals a successful login: spec.md §4.6 "process_login_tokens",
// grounded on the ack-byte handling in tds_process_login_tokens. The
// pre-TDS5 "does the product string contain literal 'Microsoft'"
// detection and the high-bit product-version tagging it feeds are
// dead code for any server this module targets (TDS 4.2+ always
// reports a real major version) and aren't named in spec.md's field
// list, so the product string is simply drained rather than sniffed.
func decodeLoginAck(r *Reader, sess *Session) bool {
	tokenLen := int(r.GetU16())
	ack := r.GetU8()
	majorVer := r.GetU8()
	_ = r.GetU8() // minor version, unused
	r.Skip(2)
	_ = r.GetU8() // product name length, unused: see comment above

	const fixedFields = 10 // ack+major+minor+skip(2)+namelen(1) plus the 4 trailing version bytes read below
	if rest := tokenLen - fixedFields; rest > 0 {
		r.Skip(rest)
	}

	var v uint32
	v |= uint32(r.GetU8()) << 24
	v |= uint32(r.GetU8()) << 16
	v |= uint32(r.GetU8()) << 8
	v |= uint32(r.GetU8())
	if majorVer >= 7 {
		v |= 0x80000000
	}
	sess.ProductVersion = v

	return ack == 1 || ack == 5
}

// ProcessDefaultTokens handles one already-consumed marker that no
// other entry point recognizes: spec.md §4.6 "process_default_tokens",
// grounded on tds_process_default_tokens. Every other entry point
// falls back to this for markers outside its own switch.
func (sess *Session) ProcessDefaultTokens(ctx context.Context, marker token) (err error) {
	defer recoverProtocolError(sess, &err)
	sess.dispatchDefault(ctx, marker)
	return nil
}

func (sess *Session) dispatchDefault(ctx context.Context, marker token) {
	r := sess.reader
	switch marker {
	case tokenSSPI:
		decodeAuthChallenge(r, sess)
	case tokenEnvChange:
		decodeEnvChange(r, sess)
	case tokenDone, tokenDoneProc, tokenDoneInProc:
		decodeEnd(r, sess)
	case tokenProcID:
		r.Skip(8)
	case tokenReturnStatus:
		sess.setReturnStatus(r.GetI32())
	case tokenError, tokenInfo, tokenEED:
		decodeMsg(ctx, r, sess, marker)
	case tokenCapability:
		n := int(r.GetU16())
		keep := n
		if keep > maxCapabilityLen {
			keep = maxCapabilityLen
		}
		buf := make([]byte, keep)
		r.GetBytes(buf)
		sess.Capabilities = buf
		if rest := n - keep; rest > 0 {
			r.Skip(rest)
		}
	case tokenParam:
		processParamResultTokens(r, sess)
	case tds7Result:
		decodeResult7(r, sess)
	case tokenResult:
		decodeResult50(r, sess)
	case tokenColName:
		decodeColName42(r, sess)
	case tokenColInfo:
		decodeColInfo42(r, sess)
	case tokenRow:
		decodeRow(r, sess)
	case tokenParamFmt:
		sess.CurDyn = nil
		decodeDynResult(r, sess)
	case tokenParams:
		decodeParamsValues(r, sess)
	case tokenDyn, tokenLoginAck, tokenOrder, tokenControl:
		n := int(r.GetU16())
		r.Skip(n)
	default:
		protocolPanicf("tds: unknown token marker %#x", byte(marker))
	}
}

// ProcessLoginTokens drains the login response: spec.md §4.6
// "process_login_tokens", grounded on tds_process_login_tokens. Unlike
// the other entry points it can fail for a reason that is not a
// malformed stream (a rejected login), so it returns that as a plain
// error rather than routing it through protocolPanic.
func (sess *Session) ProcessLoginTokens(ctx context.Context) (err error) {
	defer recoverProtocolError(sess, &err)
	r := sess.reader

	succeeded := false
	var marker token
	for {
		marker = r.NextMarker()
		switch marker {
		case tokenSSPI:
			decodeAuthChallenge(r, sess)
		case tokenLoginAck:
			succeeded = decodeLoginAck(r, sess)
		default:
			sess.dispatchDefault(ctx, marker)
		}
		if marker == tokenDone {
			break
		}
	}

	sess.Spid = int(sess.RowsAffected)
	if sess.Spid == 0 && sess.SpidFallback != nil {
		spid, ferr := sess.SpidFallback(ctx, sess)
		if ferr != nil {
			return ferr
		}
		sess.Spid = spid
	}

	if !succeeded {
		return fmt.Errorf("tds: login failed")
	}
	return nil
}

// ProcessResultTokens returns on the first marker whose semantics
// signal the caller to observe something: spec.md §4.6
// "process_result_tokens", grounded on tds_process_result_tokens.
func (sess *Session) ProcessResultTokens(ctx context.Context) (rt ResultType, err error) {
	defer recoverProtocolError(sess, &err)
	if sess.state == StateCompleted {
		return NoMoreResults, nil
	}
	r := sess.reader

	for {
		marker := r.NextMarker()
		switch marker {
		case tokenError, tokenInfo, tokenEED:
			decodeMsg(ctx, r, sess, marker)
		case tds7Result:
			decodeResult7(r, sess)
			return RowFmtResult, nil
		case tokenResult:
			decodeResult50(r, sess)
			return RowFmtResult, nil
		case tokenColName:
			decodeColName42(r, sess)
		case tokenColInfo:
			decodeColInfo42(r, sess)
			return RowFmtResult, nil
		case tokenParam:
			processParamResultTokens(r, sess)
			return ParamResult, nil
		case tokenComputeNames:
			decodeComputeNames(r, sess)
		case tokenComputeResult:
			decodeComputeResult50(r, sess)
			return ComputeFmtResult, nil
		case tds7ComputeResult:
			decodeComputeResult7(r, sess)
			return ComputeFmtResult, nil
		case tokenRow:
			if sess.ResInfo != nil {
				sess.ResInfo.RowsExist = true
			}
			r.UngetU8(byte(marker))
			return RowResult, nil
		case tokenCmpRow:
			if sess.ResInfo != nil {
				sess.ResInfo.RowsExist = true
			}
			r.UngetU8(byte(marker))
			return ComputeResult, nil
		case tokenReturnStatus:
			sess.setReturnStatus(r.GetI32())
			return StatusResult, nil
		case tokenDyn:
			decodeDynamic(r, sess)
		case tokenParamFmt, tokenDynResult:
			decodeDynResult(r, sess)
			return DescribeResult, nil
		case tokenParams:
			decodeParamsValues(r, sess)
			return ParamResult, nil
		case tokenDone, tokenDoneProc, tokenDoneInProc:
			d := decodeEnd(r, sess)
			switch {
			case d.hasError():
				return CmdFail, nil
			case d.hasCount():
				return CmdDone, nil
			default:
				return CmdSucceed, nil
			}
		default:
			sess.dispatchDefault(ctx, marker)
		}
	}
}

// ProcessRowTokens peeks a marker and either decodes one row (into
// sess.ResInfo), decodes a compute row (into the ComputeInfo matching
// the compute_id prefix), or, on a RESULT/DONE marker, leaves it
// unconsumed and reports NoMoreRows: spec.md §4.6 "process_row_tokens",
// grounded on tds_process_row_tokens.
func (sess *Session) ProcessRowTokens(ctx context.Context) (rowType RowType, computeID int, err error) {
	defer recoverProtocolError(sess, &err)
	if sess.state == StateCompleted {
		return NoMoreRows, 0, nil
	}
	r := sess.reader

	for {
		marker := r.NextMarker()
		switch marker {
		case tokenResult, tds7Result, tokenDone, tokenDoneProc, tokenDoneInProc:
			// spec.md §4.6 "process_row_tokens" (c): a RESULT or DONE
			// marker is left unconsumed so process_result_tokens sees it
			// next and reports CMD_DONE/CMD_SUCCEED/CMD_FAIL.
			r.UngetU8(byte(marker))
			return NoMoreRows, 0, nil
		case tokenRow:
			decodeRow(r, sess)
			return RegRow, 0, nil
		case tokenCmpRow:
			id := int(r.GetI16())
			info := findComputeInfo(sess, id)
			if info == nil {
				protocolPanicf("tds: CMP_ROW token references unknown compute_id %d", id)
			}
			decodeComputeRow(r, sess, info)
			return CompRow, id, nil
		default:
			sess.dispatchDefault(ctx, marker)
		}
	}
}

// ProcessCancel drains the stream through ProcessDefaultTokens until
// a DONE token reports CANCELLED (or a zero byte stands in for one;
// DONEPROC/DONEINPROC are handled as ordinary default tokens),
// then marks the session COMPLETED: spec.md §4.6 "process_cancel",
// grounded on tds_process_cancel.
func (sess *Session) ProcessCancel(ctx context.Context) (err error) {
	defer recoverProtocolError(sess, &err)
	r := sess.reader

	for {
		marker := r.NextMarker()
		if marker == tokenDone {
			if decodeEnd(r, sess).cancelled() {
				break
			}
			continue
		}
		if marker == 0 {
			break
		}
		sess.dispatchDefault(ctx, marker)
	}
	sess.state = StateCompleted
	return nil
}
