package tds

import (
	"encoding/binary"
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// debugDumpColumns logs a verbose dump of a freshly decoded descriptor's
// columns, gated by LogDebug: matches the teacher's
// `sess.logFlags&logDebug != 0` idiom in token.go, substituting
// go-spew's structured dump for the teacher's one-line Printf since a
// descriptor's column slice is worth more than a %v would show.
func debugDumpColumns(sess *Session, label string, info *ResultInfo) {
	if sess.LogFlags&LogDebug == 0 {
		return
	}
	sess.log.Printf("tds: %s\n%s", label, spew.Sdump(info.Columns))
}

// maxDynIDLen bounds a TDS 5.0 dynamic (prepared statement) id: spec.md
// §4.4 "Dynamic token".
const maxDynIDLen = 30

// Historical Sybase aggregate operator codes (FreeTDS token.c's
// tds_prtype), used to synthesize a compute column's name when none
// rides the wire: spec.md §4.4.
const (
	aggCount byte = 0x4b
	aggSum   byte = 0x4d
	aggAvg   byte = 0x4e
	aggMin   byte = 0x4f
	aggMax   byte = 0x50
)

func aggregateOperatorName(op byte) string {
	switch op {
	case aggCount:
		return "count"
	case aggSum:
		return "sum"
	case aggAvg:
		return "avg"
	case aggMin:
		return "min"
	case aggMax:
		return "max"
	default:
		return fmt.Sprintf("op%#x", op)
	}
}

// setColumnType resolves a wire type byte into a column's cardinal
// type, varint_size, unicode flag, and (for varint_size==0 scalars)
// its fixed size: spec.md §4.4, grounded on tds_set_column_type.
func setColumnType(col *ColumnInfo, wire byte) {
	t := datatype(wire)
	col.ColumnTypeSave = t
	col.ColumnType = cardinalType(t)
	col.VarintSize = varintSize(t)
	if col.VarintSize == 0 {
		col.Size = fixedSize(col.ColumnType)
	}
	col.UnicodeData = isUnicodeType(t)
}

func readNumericExtras(r *Reader, col *ColumnInfo) {
	if isNumericType(col.ColumnType) {
		col.Prec = r.GetU8()
		col.Scale = r.GetU8()
	}
}

func discardLocale(r *Reader) {
	n := int(r.GetU8())
	r.Skip(n)
}

func discardTableNameRaw(r *Reader) {
	n := int(r.GetU16())
	r.Skip(n)
}

// readSizeNoTable reads a column's declared size by varint_size without
// any table-name discard: spec.md §4.4 "Compute result (TDS 5 ...)",
// grounded on tds_process_compute_result, whose varint_size==4 case
// reads only the size (aggregates never apply to BLOB columns, so a
// table name never rides along here the way it does in a RESULT
// column).
func readSizeNoTable(r *Reader, col *ColumnInfo) {
	switch col.VarintSize {
	case 4:
		col.Size = int(r.GetI32())
	case 2:
		col.Size = int(r.GetU16())
	case 1:
		col.Size = int(r.GetU8())
	}
}

// readSizeClassic reads a column's declared size for the TDS 4.2/5.0
// wire shapes, discarding the junk table name that rides along with
// varint_size==4 columns (only TEXT/NTEXT/IMAGE are varint_size==4
// under TDS 4.2/5.0 — there is no SQL_VARIANT in that era): spec.md
// §4.4, grounded on tds_get_data_info.
func readSizeClassic(r *Reader, col *ColumnInfo) {
	switch col.VarintSize {
	case 4:
		col.Size = int(r.GetI32())
		discardTableNameRaw(r)
	case 2:
		col.Size = int(r.GetU16())
	case 1:
		col.Size = int(r.GetU8())
	}
}

// decodeColumnInfo50 reads one column/parameter descriptor in the TDS
// 4.2/5.0 wire shape: name, flags, usertype, type, size, numeric
// extras. Shared by the RESULT token and PARAM/PARAMFMT/DYN_RESULT —
// the wire form is identical everywhere a TDS5-style descriptor
// appears: spec.md §4.4, grounded on tds_get_data_info in token.c.
func decodeColumnInfo50(r *Reader) *ColumnInfo {
	col := &ColumnInfo{}
	nameLen := int(r.GetU8())
	col.Name = r.GetString(nameLen)

	flags := r.GetU8()
	col.Writeable = flags&0x10 != 0
	col.Nullable = flags&0x20 != 0
	col.Identity = flags&0x40 != 0

	col.UserType = uint32(r.GetI32())
	setColumnType(col, r.GetU8())
	readSizeClassic(r, col)
	readNumericExtras(r, col)
	return col
}

// decodeResult50 parses a TDS 5.0 `RESULT` token: spec.md §4.4 "TDS 5.0
// regular result", grounded on tds_process_result.
func decodeResult50(r *Reader, sess *Session) *ResultInfo {
	freeAllResults(sess)
	_ = r.GetU16() // hdr_len: redundant with num_cols, not needed to parse the body
	numCols := int(r.GetU16())
	info := sess.Alloc.AllocResults(numCols)
	for i := 0; i < numCols; i++ {
		col := decodeColumnInfo50(r)
		discardLocale(r)
		appendColumn(info, col)
	}
	sess.Alloc.AllocRow(info)
	sess.ResInfo = info
	sess.currResInfo = info
	sess.state = StatePending
	debugDumpColumns(sess, "RESULT descriptor", info)
	return info
}

// fillColumnInfo7 reads one column descriptor in the TDS 7.0/8.0 wire
// shape into col, which may already carry operator/operand (compute
// columns): spec.md §4.4 "TDS 7.0/8.0 regular result", grounded on
// tds7_get_data_info.
func fillColumnInfo7(r *Reader, sess *Session, col *ColumnInfo) {
	col.UserType = uint32(r.GetU16())
	flags := r.GetU16()
	col.Nullable = flags&0x0001 != 0
	col.Writeable = flags&0x0008 != 0
	col.Identity = flags&0x0010 != 0

	setColumnType(col, r.GetU8())
	switch col.VarintSize {
	case 4:
		col.Size = int(r.GetI32())
	case 2:
		col.Size = int(r.GetU16())
	case 1:
		col.Size = int(r.GetU8())
	}
	readNumericExtras(r, col)

	if sess.Version >= TDS80 && isCollateType(col.ColumnType) {
		r.GetBytes(col.Collation[:])
	}
	if isBlobType(col.ColumnType) {
		tabNameLen := int(r.GetU16())
		r.Skip(tabNameLen * 2) // UCS-2 table name, discarded
	}

	nameLen := int(r.GetU8())
	col.Name = r.GetString(nameLen)
}

func decodeColumnInfo7(r *Reader, sess *Session) *ColumnInfo {
	col := &ColumnInfo{}
	fillColumnInfo7(r, sess, col)
	return col
}

// decodeResult7 parses a TDS 7.0/8.0 `TDS7_RESULT` token: spec.md §4.4,
// grounded on tds7_process_result / the teacher's parseColMetadata72.
func decodeResult7(r *Reader, sess *Session) *ResultInfo {
	freeAllResults(sess)
	numCols := int(r.GetU16())
	info := sess.Alloc.AllocResults(numCols)
	for i := 0; i < numCols; i++ {
		col := decodeColumnInfo7(r, sess)
		appendColumn(info, col)
	}
	sess.Alloc.AllocRow(info)
	sess.ResInfo = info
	sess.currResInfo = info
	sess.state = StatePending
	debugDumpColumns(sess, "TDS7_RESULT descriptor", info)
	return info
}

// decodeColName42 parses a TDS 4.2 `COL_NAME` token: it carries only
// names (length-prefixed, filling the header), so num_cols is implied
// by how many fit before the header is exhausted. The ResultInfo is
// allocated here, named but typeless; the COL_INFO token that follows
// fills in types: spec.md §4.4, grounded on tds_process_col_name.
func decodeColName42(r *Reader, sess *Session) *ResultInfo {
	freeAllResults(sess)
	hdrLen := int(r.GetU16())
	info := allocResults(0)
	consumed := 0
	for consumed < hdrLen {
		n := int(r.GetU8())
		name := r.GetString(n)
		consumed += 1 + n
		info.Columns = append(info.Columns, &ColumnInfo{Name: name})
	}
	sess.ResInfo = info
	sess.currResInfo = info
	sess.state = StatePending
	return info
}

// decodeColInfo42 parses a TDS 4.2 `COL_INFO` token, filling in the
// type/flags/size of each column decodeColName42 already named: spec.md
// §4.4, grounded on tds_process_col_info (including its exact 4-flag-
// byte-then-type-then-size byte accounting, used to drain any trailing
// padding the header length declares but the column loop didn't
// consume).
func decodeColInfo42(r *Reader, sess *Session) *ResultInfo {
	info := sess.ResInfo
	if info == nil {
		protocolPanicf("tds: COL_INFO token with no preceding COL_NAME")
	}
	hdrLen := int(r.GetU16())
	bytesRead := 0
	for _, col := range info.Columns {
		var flags [4]byte
		r.GetBytes(flags[:])
		col.Nullable = flags[3]&0x01 != 0
		col.Writeable = flags[3]&0x08 != 0
		col.Identity = flags[3]&0x10 != 0
		setColumnType(col, r.GetU8())
		bytesRead += 5

		switch col.VarintSize {
		case 4:
			col.Size = int(r.GetI32())
			tabLen := int(r.GetU16())
			r.Skip(tabLen)
			bytesRead += 4 + 2 + tabLen
		case 1:
			col.Size = int(r.GetU8())
			bytesRead++
		}
		placeColumn(info, col)
	}
	if rest := hdrLen - bytesRead; rest > 0 {
		r.Skip(rest)
	}
	sess.Alloc.AllocRow(info)
	return info
}

func freeAllResults(sess *Session) {
	sess.ResInfo = nil
	sess.ParamInfo = nil
	sess.ComputeInfo = nil
}

func findComputeInfo(sess *Session, computeID int) *ComputeInfo {
	for _, c := range sess.ComputeInfo {
		if c.ComputeID == computeID {
			return c
		}
	}
	return nil
}

// decodeComputeNames parses a TDS 5.0 `COMPUTE_NAMES` token: it
// pre-announces the names of the next compute result's columns. The
// ComputeInfo is allocated here (named but typeless, matched by
// compute_id) and appended to sess.ComputeInfo; decodeComputeResult50
// fills in each column's type when it arrives: spec.md §4.4
// "Compute-names token", grounded on tds_process_compute_names.
func decodeComputeNames(r *Reader, sess *Session) *ComputeInfo {
	hdrLen := int(r.GetU16())
	computeID := int(r.GetI16())
	remaining := hdrLen - 2

	info := allocComputeInfo(0)
	info.ComputeID = computeID
	for remaining > 0 {
		n := int(r.GetU8())
		remaining--
		name := ""
		if n > 0 {
			name = r.GetString(n)
			remaining -= n
		}
		info.Columns = append(info.Columns, &ColumnInfo{Name: name})
	}
	sess.ComputeInfo = append(sess.ComputeInfo, info)
	sess.currResInfo = &info.ResultInfo
	return info
}

// decodeComputeResult50 parses a TDS 5.0 `COMPUTE_RESULT` token. If a
// COMPUTE_NAMES token already named this compute_id's columns, their
// slots are filled in place; otherwise fresh columns are appended and
// named from their aggregate operator: spec.md §4.4 "Compute result
// (TDS 5 ... variant)", grounded on tds_process_compute_result.
func decodeComputeResult50(r *Reader, sess *Session) *ComputeInfo {
	_ = r.GetU16() // hdr_len
	computeID := int(r.GetI16())
	numCols := int(r.GetU8())

	info := findComputeInfo(sess, computeID)
	if info == nil {
		info = allocComputeInfo(numCols)
		info.ComputeID = computeID
		sess.ComputeInfo = append(sess.ComputeInfo, info)
	}

	for i := 0; i < numCols; i++ {
		fresh := i >= len(info.Columns)
		var col *ColumnInfo
		if fresh {
			col = &ColumnInfo{}
		} else {
			col = info.Columns[i]
		}

		col.Operator = r.GetU8()
		col.Operand = int(r.GetU8())
		col.UserType = uint32(r.GetI32())
		setColumnType(col, r.GetU8())
		readSizeNoTable(r, col)
		discardLocale(r)
		if col.Name == "" {
			col.Name = aggregateOperatorName(col.Operator)
		}

		if fresh {
			appendColumn(&info.ResultInfo, col)
		} else {
			placeColumn(&info.ResultInfo, col)
		}
	}

	byCols := int(r.GetU8())
	info.ByColumns = make([]int, byCols)
	for i := range info.ByColumns {
		info.ByColumns[i] = int(r.GetU8())
	}

	sess.Alloc.AllocComputeRow(info)
	sess.currResInfo = &info.ResultInfo
	return info
}

// decodeComputeResult7 parses a TDS 7.0/8.0 compute result descriptor:
// spec.md §4.4 "Compute result (... TDS 7/8 variant)", grounded on
// tds7_process_compute_result. TDS 7+ has no separate names
// pre-announcement token, so every column is fresh.
func decodeComputeResult7(r *Reader, sess *Session) *ComputeInfo {
	numCols := int(r.GetU16())
	computeID := int(r.GetI16())
	byColsCount := int(r.GetU8())

	info := allocComputeInfo(numCols)
	info.ComputeID = computeID
	info.ByColumns = make([]int, byColsCount)
	for i := range info.ByColumns {
		info.ByColumns[i] = int(r.GetI16())
	}

	for i := 0; i < numCols; i++ {
		col := &ColumnInfo{}
		col.Operator = r.GetU8()
		col.Operand = int(r.GetI16())
		fillColumnInfo7(r, sess, col)
		if col.Name == "" {
			col.Name = aggregateOperatorName(col.Operator)
		}
		appendColumn(&info.ResultInfo, col)
	}

	sess.ComputeInfo = append(sess.ComputeInfo, info)
	sess.Alloc.AllocComputeRow(info)
	sess.currResInfo = &info.ResultInfo
	return info
}

// currentParamInfoSlot returns the address of whichever ParamInfo field
// a PARAM token should grow: the current dynamic's, if one is
// registered, otherwise the session's own: spec.md §4.4 "Parameter /
// Params / Dyn-result tokens", grounded on tds_process_param_result_tokens.
func currentParamInfoSlot(sess *Session) **ParamInfo {
	if sess.CurDyn != nil {
		return &sess.CurDyn.ParamInfo
	}
	return &sess.ParamInfo
}

func hostByteOrder(sess *Session) binary.ByteOrder {
	if sess.BigEndianHost {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decodeParam parses one `PARAM` token: a single TDS5-shaped column
// descriptor (no locale, unlike a RESULT column) grown onto the
// current ParamInfo, immediately followed by that column's value:
// spec.md §4.4, grounded on tds_process_param_result. When this is the
// first output parameter of a TDS 7+ prepared statement awaiting its
// server-assigned handle, its INT4 value doubles as that handle.
func decodeParam(r *Reader, sess *Session) *ParamInfo {
	col := decodeColumnInfo50(r)

	slot := currentParamInfoSlot(sess)
	p := sess.Alloc.AllocParamResult(*slot)
	growRow(&p.ResultInfo, col)
	*slot = p
	sess.currResInfo = &p.ResultInfo

	idx := len(p.Columns) - 1
	decodeValue(r, sess, &p.ResultInfo, col, idx)

	if sess.Version >= TDS70 && sess.CurDyn != nil && sess.CurDyn.NumID == 0 && len(p.Columns) == 1 {
		sess.CurDyn.NumID = int32(hostByteOrder(sess).Uint32(payload(&p.ResultInfo, col)))
	}
	return p
}

// decodeParamsValues parses a TDS 5.0 `PARAMS` token: values only, for
// the descriptor a preceding PARAMFMT/DYN_RESULT already installed as
// sess.currResInfo: spec.md §4.4, grounded on
// tds_process_params_result_token.
func decodeParamsValues(r *Reader, sess *Session) {
	info := sess.currResInfo
	if info == nil {
		protocolPanicf("tds: PARAMS token with no preceding parameter descriptor")
	}
	for i, col := range info.Columns {
		decodeValue(r, sess, info, col, i)
	}
}

// decodeDynResult parses a `PARAMFMT` or `DYN_RESULT` token — on the
// wire these are the same shape, a TDS 5.0-style descriptor list
// (count + per-column form, each column followed by a discarded locale
// as in a RESULT column) replacing whichever ParamInfo
// the caller targets: spec.md §4.4, grounded on tds_process_dyn_result
// (which FreeTDS's own dispatch uses for both token markers).
func decodeDynResult(r *Reader, sess *Session) *ParamInfo {
	_ = r.GetU16() // hdr_len
	numCols := int(r.GetU16())

	p := allocParamInfo()
	for i := 0; i < numCols; i++ {
		col := decodeColumnInfo50(r)
		discardLocale(r)
		appendColumn(&p.ResultInfo, col)
	}
	allocRow(&p.ResultInfo)

	if sess.CurDyn != nil {
		sess.CurDyn.ParamInfo = p
	} else {
		sess.ParamInfo = p
	}
	sess.currResInfo = &p.ResultInfo
	return p
}

// decodeDynamic parses a TDS 5.0 `DYN` token: type, status, and an id
// of at most maxDynIDLen bytes. Only the acknowledgement type (0x20) is
// understood; anything else is logged and drained: spec.md §4.4
// "Dynamic token", grounded on tds_process_dynamic.
func decodeDynamic(r *Reader, sess *Session) {
	tokenSize := int(r.GetU16())
	dynType := r.GetU8()
	_ = r.GetU8() // status

	if dynType != dynAck {
		sess.logf("tds: unrecognized DYN type %#x, draining", dynType)
		r.Skip(tokenSize - 2)
		sess.CurDyn = nil
		return
	}

	idLen := int(r.GetU8())
	drain := 0
	if idLen > maxDynIDLen {
		drain = idLen - maxDynIDLen
		idLen = maxDynIDLen
	}
	id := r.GetString(idLen)
	if drain > 0 {
		r.Skip(drain)
	}
	sess.CurDyn = sess.Dynamics[id]
}
