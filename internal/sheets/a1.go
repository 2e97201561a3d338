package sheets

import "fmt"

// ColLetter converts a 0-based column index to its A1 letter(s).
// 0 -> "A", 25 -> "Z", 26 -> "AA".
func ColLetter(col int) string {
	result := ""
	for col >= 0 {
		result = string(rune('A'+col%26)) + result
		col = col/26 - 1
	}
	return result
}

// CellRef builds an A1 cell reference from a 1-based row and 0-based column.
func CellRef(row, col int) string {
	return fmt.Sprintf("%s%d", ColLetter(col), row)
}

// RangeRef builds a sheet-qualified A1 range.
func RangeRef(sheet string, startRow, startCol, endRow, endCol int) string {
	return fmt.Sprintf("'%s'!%s:%s", sheet, CellRef(startRow, startCol), CellRef(endRow, endCol))
}
