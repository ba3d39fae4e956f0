package tds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumnOffsetsIncreaseAndAlign(t *testing.T) {
	info := allocResults(3)
	c1 := &ColumnInfo{ColumnType: typeInt4, Size: 4}
	c2 := &ColumnInfo{ColumnType: typeVarChar, Size: 10}
	c3 := &ColumnInfo{ColumnType: typeNumeric, Prec: 18, Scale: 2}

	addColumn(info, c1)
	addColumn(info, c2)
	addColumn(info, c3)

	require.Len(t, info.Columns, 3)
	assert.Equal(t, 0, c1.Offset)
	assert.Greater(t, c2.Offset, c1.Offset)
	assert.Greater(t, c3.Offset, c2.Offset)
	assert.Equal(t, 0, info.RowSize%align, "row size must land on the alignment boundary")

	// spec.md §3 invariant: every footprint fits before the next offset.
	assert.LessOrEqual(t, c1.Offset+c1.footprint(), c2.Offset)
	assert.LessOrEqual(t, c2.Offset+c2.footprint(), c3.Offset)
	assert.LessOrEqual(t, c3.Offset+c3.footprint(), info.RowSize)
}

func TestColumnFootprintByClass(t *testing.T) {
	numeric := &ColumnInfo{ColumnType: typeNumeric}
	assert.Equal(t, sizeofNumericCell, numeric.footprint())

	blob := &ColumnInfo{ColumnType: typeText}
	assert.Equal(t, sizeofBlobCellHeader, blob.footprint())

	plain := &ColumnInfo{ColumnType: typeVarChar, Size: 17}
	assert.Equal(t, 17, plain.footprint())
}

// TestNTextColumnGetsBlobHeaderFootprint guards against NTEXT being
// misclassified as a plain scalar: an under-folded cardinalType would
// leave ColumnType at typeNVarChar, which isBlobType doesn't recognize,
// and footprint() would then fall through to the wire-declared Size
// (routinely ~2GB for NTEXT) instead of the fixed BlobCell header.
func TestNTextColumnGetsBlobHeaderFootprint(t *testing.T) {
	col := &ColumnInfo{}
	setColumnType(col, byte(typeNText))

	assert.Equal(t, typeText, col.ColumnType)
	assert.True(t, col.UnicodeData, "NTEXT is still unicode after folding to the classical TEXT type")
	assert.Equal(t, 4, col.VarintSize)
	assert.Equal(t, sizeofBlobCellHeader, col.footprint())
}

func TestAllocRowZeroesBitmapAndSizesCorrectly(t *testing.T) {
	info := allocResults(2)
	addColumn(info, &ColumnInfo{ColumnType: typeInt4, Size: 4})
	addColumn(info, &ColumnInfo{ColumnType: typeInt1, Size: 1})
	allocRow(info)

	assert.Equal(t, bitmapBytes(2), 1)
	assert.Equal(t, alignUp(1), info.BitmapBytes)
	assert.Len(t, info.CurrentRow, info.BitmapBytes+info.RowSize)
	for _, b := range info.CurrentRow[:info.BitmapBytes] {
		assert.Zero(t, b)
	}
}

func TestNullBitmapBitOps(t *testing.T) {
	row := make([]byte, 2) // room for 16 columns
	for i := 0; i < 16; i++ {
		assert.False(t, getNull(row, i))
	}
	setNull(row, 0)
	setNull(row, 7)
	setNull(row, 8)
	setNull(row, 15)
	for _, i := range []int{0, 7, 8, 15} {
		assert.True(t, getNull(row, i))
	}
	for _, i := range []int{1, 2, 3, 4, 5, 6, 9, 10, 11, 12, 13, 14} {
		assert.False(t, getNull(row, i))
	}
	clearNull(row, 8)
	assert.False(t, getNull(row, 8))
	assert.True(t, getNull(row, 15), "clearing one bit must not disturb its neighbor")
}

func TestGrowRowPreservesPriorColumnsAndValues(t *testing.T) {
	info := allocParamInfo()
	c1 := &ColumnInfo{ColumnType: typeInt4, Size: 4}
	growRow(&info.ResultInfo, c1)
	copy(payload(&info.ResultInfo, c1), []byte{1, 2, 3, 4})

	c2 := &ColumnInfo{ColumnType: typeInt1, Size: 1}
	growRow(&info.ResultInfo, c2)

	assert.Equal(t, []byte{1, 2, 3, 4}, payload(&info.ResultInfo, c1),
		"growing the row must not disturb a value already decoded into an earlier column")
	assert.Len(t, info.Columns, 2)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, alignUp(0))
	assert.Equal(t, 8, alignUp(1))
	assert.Equal(t, 8, alignUp(8))
	assert.Equal(t, 16, alignUp(9))
}
