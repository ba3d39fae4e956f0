package tds

// token is a single TDS stream marker byte. Each one introduces a
// self-delimiting unit that a decoder function in descriptors.go,
// values.go, or messages.go knows how to consume.
type token byte

// Token marker bytes, TDS 4.2 through 8.0. Numeric values are
// protocol-defined (see MS-TDS and the historical Sybase TDS
// documentation); this is the same closed set the teacher's token.go
// declares for the TDS 7+ subset, extended with the pre-7.0 markers
// named in FreeTDS's token.c (tds_process_default_tokens's switch).
const (
	tokenReturnStatus  token = 0x79 // TDS_RETURNSTATUS
	tokenProcID        token = 0x7c // TDS_PROCID, body is 8 bytes, always skipped
	tokenColName       token = 0xa0 // TDS 4.2 COL_NAME
	tokenColInfo       token = 0xa1 // TDS 4.2 COL_INFO (a.k.a. COLFMT)
	tokenTabName       token = 0xa4 // discarded table-name token, TDS 4.2/5.0
	tokenComputeNames  token = 0xa7 // TDS 5.0 compute-names pre-announcement
	tokenComputeResult token = 0xa8 // TDS 5.0 compute result descriptor
	tokenOrder         token = 0xa9
	tokenError         token = 0xaa
	tokenInfo          token = 0xab
	tokenEED           token = 0xa2 // TDS 5.0 Extended Error Data; superseded by tokenError/tokenInfo's richer form under TDS 7.2+
	tokenParam         token = 0xac // TDS 4.2/5.0 PARAM, and RETURNVALUE under 7+
	tokenLoginAck      token = 0xad
	tokenControl       token = 0xae
	tokenResult        token = 0xb1 // TDS 5.0 regular RESULT descriptor
	tokenRow           token = 0xd1
	tokenNbcRow        token = 0xd2
	tokenCmpRow        token = 0xd3 // compute row
	tokenCapability    token = 0xe2
	tokenEnvChange     token = 0xe3
	tokenDyn           token = 0xe4 // TDS 5.0 DYNAMIC (register/ack a prepared statement)
	tokenParamFmt      token = 0xe5 // TDS 5.0 PARAMFMT
	tokenParams        token = 0xe6 // TDS 5.0 PARAMS (values only, format preannounced)
	tokenDynResult     token = 0xe7 // TDS 5.0 DYN_RESULT (describe)
	tokenSSPI          token = 0xed
	tokenDone          token = 0xfd
	tokenDoneProc      token = 0xfe
	tokenDoneInProc    token = 0xff

	tds7Result        token = 0x81 // TDS 7/8 COLMETADATA
	tds7ComputeResult token = 0x88 // TDS 7/8 compute result descriptor
)

// dynamic-token sub-type: acknowledgement of a registered id.
const dynAck byte = 0x20

// done-flag bits. https://msdn.microsoft.com/en-us/library/dd340421.aspx
const (
	doneFinal  uint16 = 0x0000
	doneMore   uint16 = 0x0001
	doneError  uint16 = 0x0002
	doneInxact uint16 = 0x0004
	doneCount  uint16 = 0x0010
	doneAttn   uint16 = 0x0020
)

// ENVCHANGE sub-types. http://msdn.microsoft.com/en-us/library/dd303449.aspx
const (
	envTypDatabase   uint8 = 1
	envTypLanguage   uint8 = 2
	envTypCharset    uint8 = 3
	envTypPacketSize uint8 = 4
	envSQLCollation  uint8 = 7
	envTypBeginTran  uint8 = 8
)

// TDSVersion identifies which wire variant a session negotiated; it
// gates which descriptor-decoder family C4 invokes and whether C1's
// string reads are UCS-2 or raw bytes.
type TDSVersion int

const (
	TDS42 TDSVersion = iota
	TDS50
	TDS70
	TDS80
)
