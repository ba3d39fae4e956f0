package tds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarintSizeClasses(t *testing.T) {
	cases := []struct {
		name string
		typ  datatype
		want int
	}{
		{"TEXT", typeText, 4},
		{"NTEXT", typeNText, 4},
		{"IMAGE", typeImage, 4},
		{"VARIANT", typeVariant, 4},
		{"XSYBCHAR", typeXChar, 2},
		{"XSYBVARCHAR", typeXVarChar, 2},
		{"XSYBNCHAR", typeXNChar, 2},
		{"XSYBBINARY", typeXBinary, 2},
		{"XSYBVARBINARY", typeXVarBinary, 2},
		{"BIT", typeBit, 0},
		{"INT1", typeInt1, 0},
		{"INT2", typeInt2, 0},
		{"INT4", typeInt4, 0},
		{"INT8", typeInt8, 0},
		{"REAL", typeFlt4, 0},
		{"FLT8", typeFlt8, 0},
		{"MONEY", typeMoney, 0},
		{"MONEY4", typeMoney4, 0},
		{"DATETIME", typeDateTim, 0},
		{"DATETIME4", typeDateTim4, 0},
		{"VARCHAR (otherwise class)", typeVarChar, 1},
		{"NUMERIC (otherwise class)", typeNumeric, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, varintSize(c.typ))
		})
	}
}

func TestCardinalTypeFoldsExtendedFamily(t *testing.T) {
	assert.Equal(t, typeVarBinary, cardinalType(typeXVarBinary))
	assert.Equal(t, typeBinary, cardinalType(typeXBinary))
	assert.Equal(t, typeVarChar, cardinalType(typeXVarChar))
	assert.Equal(t, typeChar, cardinalType(typeXChar))
	assert.Equal(t, typeText, cardinalType(typeNText), "NTEXT folds all the way to TEXT, not merely to NVARCHAR")
	assert.Equal(t, typeChar, cardinalType(typeXNChar), "XSYBNCHAR folds to SYBCHAR per tds_get_cardinal_type")
	assert.Equal(t, typeVarChar, cardinalType(typeXNVarChar), "XSYBNVARCHAR folds to SYBVARCHAR per tds_get_cardinal_type")
	assert.Equal(t, typeInt4, cardinalType(typeInt4), "non-extended types fold to themselves")
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, isNumericType(typeNumeric))
	assert.True(t, isNumericType(typeDecimal))
	assert.False(t, isNumericType(typeInt4))

	assert.True(t, isBlobType(typeText))
	assert.True(t, isBlobType(typeNText))
	assert.True(t, isBlobType(typeImage))
	assert.False(t, isBlobType(typeVarChar))

	assert.True(t, isCollateType(typeChar))
	assert.True(t, isCollateType(typeVarChar))
	assert.True(t, isCollateType(typeNVarChar))
	assert.False(t, isCollateType(typeInt4))

	assert.True(t, isUnicodeType(typeNText))
	assert.True(t, isUnicodeType(typeNVarChar))
	assert.True(t, isUnicodeType(typeXNChar))
	assert.False(t, isUnicodeType(typeVarChar))
}

func TestFixedSizeOnlyAppliesToVarintZeroTypes(t *testing.T) {
	assert.Equal(t, 1, fixedSize(typeBit))
	assert.Equal(t, 1, fixedSize(typeInt1))
	assert.Equal(t, 2, fixedSize(typeInt2))
	assert.Equal(t, 4, fixedSize(typeInt4))
	assert.Equal(t, 8, fixedSize(typeInt8))
	assert.Equal(t, 4, fixedSize(typeFlt4))
	assert.Equal(t, 8, fixedSize(typeFlt8))
	assert.Equal(t, 4, fixedSize(typeMoney4))
	assert.Equal(t, 8, fixedSize(typeMoney))
	assert.Equal(t, 4, fixedSize(typeDateTim4))
	assert.Equal(t, 8, fixedSize(typeDateTim))
}

// TestNumericBytesPerPrecFitsCell is spec.md §8's invariant:
// "numeric_bytes_per_prec[p] <= sizeof(NumericCell.array) for all
// supported p".
func TestNumericBytesPerPrecFitsCell(t *testing.T) {
	for p := 1; p <= 38; p++ {
		assert.LessOrEqualf(t, numericBytesPerPrec[p], maxNumericBytes,
			"precision %d needs %d bytes, cell holds %d", p, numericBytesPerPrec[p], maxNumericBytes)
	}
}
