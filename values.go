package tds

import "encoding/binary"

// decodeValue is the only writer of row cells: spec.md §4.5 (C5). It
// reads the column's length per its varint_size class, marks the row's
// NULL bit, dispatches by type class into info.CurrentRow at col's
// offset, and (on a big-endian host) applies the conversion-type byte
// swap spec.md §4.5 step 4 describes.
func decodeValue(r *Reader, sess *Session, info *ResultInfo, col *ColumnInfo, index int) {
	switch col.VarintSize {
	case 4:
		decodeClass4(r, sess, col, info, index)
	case 2:
		n := r.GetU16()
		switch n {
		case 0xffff:
			markNull(info, col, index)
		case 0:
			clearNull(info.CurrentRow, index)
			col.CurSize = 0
		default:
			decodeScalar(r, sess, col, info, index, int(n))
		}
	case 1:
		n := int(r.GetU8())
		if n == 0 {
			markNull(info, col, index)
			return
		}
		decodeScalar(r, sess, col, info, index, n)
	case 0:
		n := fixedSize(col.ColumnType)
		if n == 0 {
			markNull(info, col, index)
			return
		}
		decodeScalar(r, sess, col, info, index, n)
	default:
		protocolPanicf("tds: invalid varint_size %d for column %q", col.VarintSize, col.Name)
	}
}

func markNull(info *ResultInfo, col *ColumnInfo, index int) {
	setNull(info.CurrentRow, index)
	col.CurSize = 0
}

// decodeClass4 handles the varint_size==4 BLOB header dance: spec.md
// §4.5 step 1 (varint 4) and step 3 "Blob". A header length other than
// 16 is treated as NULL regardless of any subsequent bytes: spec.md §8
// "Boundary behavior".
func decodeClass4(r *Reader, sess *Session, col *ColumnInfo, info *ResultInfo, index int) {
	hdrLen := r.GetU8()
	if hdrLen != 16 {
		markNull(info, col, index)
		return
	}
	cell := info.blobCellAt(index)
	r.GetBytes(cell.TextPtr[:])
	r.GetBytes(cell.Timestamp[:])
	colsize := int(r.GetI32())
	if colsize == 0 {
		markNull(info, col, index)
		return
	}
	clearNull(info.CurrentRow, index)
	fillBlob(r, col, cell, colsize)
}

// fillBlob reallocates cell.Value to the decoded length and copies the
// wire bytes in, narrowing for unicode blobs: spec.md §4.5 step 3 "Blob".
func fillBlob(r *Reader, col *ColumnInfo, cell *BlobCell, colsize int) {
	n := colsize
	if col.UnicodeData {
		n = colsize / 2
	}
	cell.Value = make([]byte, n)
	if col.UnicodeData {
		s := r.GetString(n)
		cell.Value = cell.Value[:copy(cell.Value, s)]
	} else {
		r.GetBytes(cell.Value)
	}
	col.CurSize = len(cell.Value)
}

// decodeScalar handles every non-BLOB value once its non-zero colsize
// is known: spec.md §4.5 step 3 "Numeric/Decimal" and "Regular
// fixed/variable".
func decodeScalar(r *Reader, sess *Session, col *ColumnInfo, info *ResultInfo, index int, colsize int) {
	clearNull(info.CurrentRow, index)
	if isNumericType(col.ColumnType) {
		decodeNumeric(r, sess, col, info, index, colsize)
		return
	}
	decodeFixedOrVariable(r, sess, col, info, index, colsize)
}

// decodeNumeric handles spec.md §4.5 step 3 "Numeric/Decimal". The wire
// payload is a leading sign byte followed by the magnitude; spec.md §3
// models these as distinct NumericCell fields (sign, then a magnitude
// array), so the sign byte is split off the wire bytes rather than
// folded into Array[0] the way the C TDS_NUMERIC struct's single
// contiguous array does it.
func decodeNumeric(r *Reader, sess *Session, col *ColumnInfo, info *ResultInfo, index int, colsize int) {
	cell := info.numericCellAt(index)
	*cell = NumericCell{}
	cell.Precision = col.Prec
	cell.Scale = col.Scale
	if colsize == 0 {
		col.CurSize = sizeofNumericCell
		return
	}
	magSize := colsize - 1
	if magSize > len(cell.Array) {
		protocolPanicf("tds: numeric value of %d bytes exceeds cell capacity %d", magSize, len(cell.Array))
	}
	cell.Sign = r.GetU8()
	r.GetBytes(cell.Array[:magSize])
	col.CurSize = sizeofNumericCell

	if sess.Version >= TDS70 && sess.BigEndianHost {
		swapNumeric(cell, col.Prec)
	}
}

// decodeFixedOrVariable handles spec.md §4.5 step 3 "Regular fixed/
// variable" and the CHAR/BINARY padding step.
func decodeFixedOrVariable(r *Reader, sess *Session, col *ColumnInfo, info *ResultInfo, index int, colsize int) {
	dest := payload(info, col)
	n := colsize
	if col.UnicodeData {
		n = colsize / 2
	}
	if n > col.Size {
		protocolPanicf("tds: column %q value of %d bytes overflows declared size %d", col.Name, n, col.Size)
	}
	if col.UnicodeData {
		s := r.GetString(n)
		n = copy(dest, s)
	} else {
		r.GetBytes(dest[:n])
	}

	switch col.ColumnType {
	case typeChar:
		for i := n; i < col.Size; i++ {
			dest[i] = ' '
		}
		n = col.Size
	case typeBinary:
		for i := n; i < col.Size; i++ {
			dest[i] = 0
		}
		n = col.Size
	}
	col.CurSize = n

	if sess.BigEndianHost {
		applyBrokenDateSwap(sess, col, dest[:col.Size])
		swapFixed(col.ColumnType, dest[:col.Size])
	}
}

// applyBrokenDateSwap reproduces the "broken-dates" workaround: spec.md
// §4.5 step 4a. It swaps the two halves of DATETIME/DATETIME4/DATETIMN/
// MONEY/MONEY4/MONEYN(>4) values on a big-endian host.
func applyBrokenDateSwap(sess *Session, col *ColumnInfo, dest []byte) {
	if !sess.BrokenDates {
		return
	}
	t := col.ColumnType
	affected := t == typeDateTim || t == typeDateTim4 || t == typeDateTimeN ||
		t == typeMoney || t == typeMoney4 ||
		(t == typeMoneyN && col.Size > 4)
	if !affected || len(dest) == 0 {
		return
	}
	half := len(dest) / 2
	tmp := make([]byte, half)
	copy(tmp, dest[:half])
	copy(dest[:half], dest[half:2*half])
	copy(dest[half:2*half], tmp)
}

// swapFixed applies the conversion-type byte swap of spec.md §4.5 step
// 4b to a non-numeric fixed/variable value already placed in dest.
// Numeric columns are swapped separately by swapNumeric.
func swapFixed(t datatype, dest []byte) {
	switch t {
	case typeChar, typeVarChar, typeBinary, typeVarBinary:
		return // character and binary data has no byte order to convert
	}
	switch len(dest) {
	case 2:
		swap2(dest)
	case 4:
		if t == typeDateTim4 {
			swap2(dest[0:2])
			swap2(dest[2:4])
		} else {
			swap4(dest)
		}
	case 8:
		switch t {
		case typeMoney, typeDateTim:
			swap4(dest[0:4])
			swap4(dest[4:8])
		default:
			swap8(dest)
		}
	case 16:
		// UNIQUEIDENTIFIER: four bytes, then two, then two: spec.md §4.5 step 4b.
		swap4(dest[0:4])
		swap2(dest[4:6])
		swap2(dest[6:8])
	}
}

// swapNumeric inverts the sign byte and reverses the magnitude over
// numericBytesPerPrec[prec]-1 bytes: spec.md §4.5 step 4b "NUMERIC/DECIMAL".
func swapNumeric(cell *NumericCell, prec byte) {
	if cell.Sign == 0 {
		cell.Sign = 1
	} else {
		cell.Sign = 0
	}
	n := numericBytesPerPrec[prec] - 1
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		cell.Array[i], cell.Array[j] = cell.Array[j], cell.Array[i]
	}
}

func swap2(b []byte) { b[0], b[1] = b[1], b[0] }

func swap4(b []byte) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], binary.LittleEndian.Uint32(b))
	copy(b, tmp[:])
}

func swap8(b []byte) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], binary.LittleEndian.Uint64(b))
	copy(b, tmp[:])
}
