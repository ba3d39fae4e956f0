package tds

import (
	"log"
	"os"
	"strconv"
)

// SessionState is the connection-scoped lifecycle field: spec.md §3.
type SessionState int

const (
	StateIdle SessionState = iota
	StatePending
	StateCompleted
	StateDead
)

// ResultType is the public return-type enum: spec.md §6.
type ResultType int

const (
	NoMoreResults ResultType = iota
	RowFmtResult
	ComputeFmtResult
	ParamResult
	DescribeResult
	RowResult
	ComputeResult
	StatusResult
	CmdSucceed
	CmdDone
	CmdFail
)

// RowType is the public row-type enum: spec.md §6.
type RowType int

const (
	RegRow RowType = iota
	CompRow
	NoMoreRows
)

// log flags, gating which debug/diagnostic lines Session.log emits;
// same shape as the teacher's logFlags bitmask (token.go references
// logErrors/logMessages/logRows/logDebug/logTransaction throughout).
type LogFlags uint32

const (
	LogErrors LogFlags = 1 << iota
	LogMessages
	LogRows
	LogDebug
	LogTransaction
)

// Dynamic is a named prepared statement registered with the session:
// spec.md §3.
type Dynamic struct {
	ID        string // at most 30 bytes
	NumID     int32  // server-assigned handle
	ParamInfo *ParamInfo
}

// Session holds every field the dispatcher mutates while walking a
// token stream: spec.md §3 "Session", narrowed from the teacher's
// tdsSession (sess.database, sess.tranid, sess.routedServer, ...) to
// the subset this component actually owns, plus the TDS 4.2/5.0/
// compute/dynamic fields original_source/'s TDSSOCKET carries that the
// teacher's TDS-7+-only driver has no equivalent of.
type Session struct {
	Version  TDSVersion
	BigEndianHost bool // host byte order differs from the wire's little-endian
	BrokenDates   bool // apply the MS "broken date" swap workaround

	Capabilities []byte

	ProductVersion uint32
	Spid           int
	RowsAffected   int64
	HasStatus      bool
	RetStatus      int32
	PacketSize     int // negotiated output packet size; grown, never shrunk, by PACKSIZE env changes

	state SessionState

	ResInfo    *ResultInfo
	ParamInfo  *ParamInfo
	ComputeInfo []*ComputeInfo
	CurDyn     *Dynamic
	Dynamics   map[string]*Dynamic

	// currResInfo names which descriptor the next ROW/CMP_ROW token
	// populates: spec.md §3 invariant "curr_resinfo always points to
	// whichever of res_info, param_info, or a comp_info[i] will
	// receive the next row token".
	currResInfo *ResultInfo

	Source ByteSource
	reader *Reader

	MsgSink       MsgSink
	EnvSink       EnvSink
	AuthResponder AuthResponder
	SpidFallback  SpidFallback
	Alloc         DescriptorAlloc

	log      *log.Logger
	LogFlags LogFlags
}

// NewSession wires a ByteSource and the named collaborators into a
// fresh, idle Session: spec.md §6.
func NewSession(src ByteSource, version TDSVersion) *Session {
	s := &Session{
		Version:  version,
		state:    StateIdle,
		Dynamics: make(map[string]*Dynamic),
		Source:   src,
		Alloc:    defaultDescriptorAlloc(),
		log:      log.New(os.Stderr, "", log.LstdFlags),
	}
	s.reader = NewReader(src, version)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState { return s.state }

func (s *Session) setReturnStatus(v int32) {
	s.HasStatus = true
	s.RetStatus = v
}

// growPacketBuffer parses an ENV_CHG PACKSIZE value and records it if
// larger than the session's current packet size: spec.md §4.7 "Env
// change" ("attempt to grow ... never shrink"). The actual transport
// buffer lives below byte_source, out of this package's scope; this
// just tracks the negotiated size for a caller that owns that buffer
// to observe.
func (s *Session) growPacketBuffer(newValue string) {
	n, err := strconv.Atoi(newValue)
	if err != nil || n <= s.PacketSize {
		return
	}
	s.PacketSize = n
}

// logf emits a debug line gated by LogDebug, matching the teacher's
// `if sess.logFlags&logDebug != 0 { sess.log.Printf(...) }` idiom.
func (s *Session) logf(format string, args ...interface{}) {
	if s.LogFlags&LogDebug != 0 {
		s.log.Printf(format, args...)
	}
}
