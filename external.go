package tds

import "context"

// ByteSource is the transport packetizer contract: spec.md §6. The
// core never reaches below this line — framing, TLS, and reconnects
// are the caller's concern. ReadByte/Read block until data or an
// unrecoverable error (reported as io.EOF or any non-nil error, which
// this package treats identically).
type ByteSource interface {
	ReadByte() (byte, error)
	Read(p []byte) (int, error)
}

// MsgInfo is the unified carrier for ERR/INFO/EED tokens: spec.md §4.7.
type MsgInfo struct {
	MsgNumber   int32
	State       byte
	Level       byte
	SQLState    string // EED only
	IsError     bool   // priv_msg_type: false=info, true=error
	Message     string
	Server      string
	ProcName    string
	LineNumber  int32
}

// MsgSink is invoked per ERR/MSG/EED token and per client-generated
// message: spec.md §6. A non-zero/non-nil return marks the session
// DEAD.
type MsgSink func(ctx context.Context, sess *Session, msg MsgInfo) error

// EnvSink fires on every environment change; side-effect-only: spec.md §6.
type EnvSink func(sess *Session, envType uint8, oldValue, newValue string)

// AuthResponder is invoked during TDS 7+ login with an NTLM challenge
// nonce; it must send a response packet before returning: spec.md §6.
type AuthResponder func(sess *Session, nonce [8]byte) error

// SpidFallback is invoked by ProcessLoginTokens when login's
// rows_affected comes back 0 (no spid arrived in the login response):
// spec.md §4.6, "issues 'select @@spid' and reads one INT2 row to
// populate spid". Query submission has no contract among spec.md §6's
// named collaborators — this package only ever consumes a byte_source,
// never writes to one — so the round trip (send the query, drive this
// same session's ProcessResultTokens/ProcessRowTokens to read the
// single-column result, return its value) is left to the caller that
// owns the write side of the connection.
type SpidFallback func(ctx context.Context, sess *Session) (int, error)

// DescriptorAlloc groups the shell-allocation entry points spec.md §6
// names as a family. The zero value has no functions set; NewSession
// installs defaultDescriptorAlloc, which uses the direct constructors in
// rowbuffer.go. Callers can substitute their own functions, but not every
// decoder goes through this family: COL_NAME, COMPUTE_NAMES, compute
// result and PARAMFMT/DYN_RESULT descriptors are built with the
// rowbuffer.go constructors directly, and AllocComputeInfo is never called.
type DescriptorAlloc struct {
	AllocResults      func(numCols int) *ResultInfo
	AllocParamResult  func(existing *ParamInfo) *ParamInfo
	AllocComputeInfo  func(numCols int) *ComputeInfo
	AllocRow          func(info *ResultInfo)
	AllocComputeRow   func(info *ComputeInfo)
}

func defaultDescriptorAlloc() DescriptorAlloc {
	return DescriptorAlloc{
		AllocResults: allocResults,
		AllocParamResult: func(existing *ParamInfo) *ParamInfo {
			if existing == nil {
				existing = allocParamInfo()
			}
			return existing
		},
		AllocComputeInfo: allocComputeInfo,
		AllocRow:         allocRow,
		AllocComputeRow:  allocComputeRow,
	}
}
