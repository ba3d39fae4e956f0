package tds

// datatype is the one-byte TDS column type tag that appears in every
// descriptor. Values follow the classical Sybase/FreeTDS numbering the
// teacher's typeText/typeNText/typeImage constants are drawn from,
// extended with the extended-size ("X") family TDS 7+ introduced.
type datatype byte

const (
	typeVoid    datatype = 0x1f
	typeImage   datatype = 0x22
	typeText    datatype = 0x23
	typeBit     datatype = 0x32
	typeInt1    datatype = 0x30
	typeInt2    datatype = 0x34
	typeInt4    datatype = 0x38
	typeInt8    datatype = 0x7f
	typeFlt4    datatype = 0x3b // REAL
	typeFlt8    datatype = 0x3e
	typeMoney4  datatype = 0x7a
	typeMoney   datatype = 0x3c
	typeDateTim datatype = 0x3d // DATETIME
	typeDateTim4 datatype = 0x3a
	typeNText   datatype = 0x63

	// varint-size-0 "N" nullable wrappers
	typeIntN      datatype = 0x26
	typeFltN      datatype = 0x6d
	typeMoneyN    datatype = 0x6e
	typeDateTimeN datatype = 0x6f
	typeBitN      datatype = 0x68
	typeGUID      datatype = 0x24

	typeNumeric datatype = 0x6c
	typeDecimal datatype = 0x6a

	typeChar     datatype = 0x2f
	typeVarChar  datatype = 0x27
	typeBinary   datatype = 0x2d
	typeVarBinary datatype = 0x25
	typeNChar    datatype = 0xef
	typeNVarChar datatype = 0xe7

	typeVariant datatype = 0x62

	// extended ("X") char/binary family, TDS 7+, varint_size 2.
	typeXChar       datatype = 0xa0 // XSYBCHAR
	typeXVarChar    datatype = 0xa7 // XSYBVARCHAR
	typeXNChar      datatype = 0xef // XSYBNCHAR (shares value with NCHAR on the wire under 7+)
	typeXNVarChar   datatype = 0xe7 // XSYBNVARCHAR (shares value with NVARCHAR)
	typeXBinary     datatype = 0xad // XSYBBINARY
	typeXVarBinary  datatype = 0xa5 // XSYBVARBINARY
)

// varintSize returns the width, in bytes, of the length prefix that
// precedes a value of this type: spec.md §4.2.
func varintSize(t datatype) int {
	switch t {
	case typeText, typeNText, typeImage, typeVariant:
		return 4
	case typeXChar, typeXVarChar, typeXNChar, typeXNVarChar, typeXBinary, typeXVarBinary:
		return 2
	case typeBit, typeInt1, typeInt2, typeInt4, typeInt8,
		typeFlt4, typeFlt8, typeMoney, typeMoney4,
		typeDateTim, typeDateTim4:
		return 0
	default:
		return 1
	}
}

// cardinalType folds an extended type all the way to its classical
// equivalent so downstream dispatch can switch on a small, stable set:
// spec.md §4.2 ("NTEXT→TEXT"), grounded on tds_get_cardinal_type
// (original_source/src/tds/token.c:1913-1930), which folds
// SYBNTEXT→SYBTEXT and XSYBNCHAR/XSYBCHAR→SYBCHAR,
// XSYBNVARCHAR/XSYBVARCHAR→SYBVARCHAR rather than stopping at the
// nullable-wide forms.
func cardinalType(t datatype) datatype {
	switch t {
	case typeXVarBinary:
		return typeVarBinary
	case typeXBinary:
		return typeBinary
	case typeXVarChar, typeXNVarChar:
		return typeVarChar
	case typeXChar, typeXNChar:
		return typeChar
	case typeNText:
		return typeText
	default:
		return t
	}
}

func isNumericType(t datatype) bool {
	return t == typeNumeric || t == typeDecimal
}

func isBlobType(t datatype) bool {
	switch cardinalType(t) {
	case typeText, typeImage:
		return true
	default:
		return false
	}
}

// isCollateType reports whether a TDS 8 column descriptor carries a
// 5-byte collation after its size/scale fields: spec.md §4.4.
func isCollateType(t datatype) bool {
	switch cardinalType(t) {
	case typeChar, typeVarChar, typeText:
		return true
	default:
		return false
	}
}

func isUnicodeType(t datatype) bool {
	switch t {
	case typeNText, typeXNChar, typeXNVarChar: // typeNChar/typeNVarChar share these values
		return true
	default:
		return false
	}
}

// fixedSize returns the wire footprint of a varint_size==0 scalar
// type. Only called for such types; spec.md §4.2.
func fixedSize(t datatype) int {
	switch t {
	case typeBit:
		return 1
	case typeInt1:
		return 1
	case typeInt2:
		return 2
	case typeInt4:
		return 4
	case typeInt8:
		return 8
	case typeFlt4:
		return 4
	case typeFlt8:
		return 8
	case typeMoney4:
		return 4
	case typeMoney:
		return 8
	case typeDateTim4:
		return 4
	case typeDateTim:
		return 8
	default:
		return 0
	}
}

// numericBytesPerPrec is the wire footprint of a NUMERIC/DECIMAL
// magnitude by decimal precision, index 1..38. Index 0 is unused.
// Grounded on FreeTDS's tds_numeric_bytes_per_prec table.
var numericBytesPerPrec = [39]int{
	0,
	2, 2, 3, 3, 4, 4, 4, 5, 5, 6,
	6, 6, 7, 7, 8, 8, 9, 9, 10, 10,
	11, 11, 11, 12, 12, 13, 13, 14, 14, 14,
	15, 15, 16, 16, 17, 17, 17, 18,
}

// maxNumericBytes is the capacity of NumericCell.Array; every entry of
// numericBytesPerPrec must fit, which types_test.go verifies.
const maxNumericBytes = 20
