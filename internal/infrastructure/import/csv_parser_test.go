package sheetimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("Valid UTF-8 CSV", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("tipdoc,numtra,valcob\nFC,124370,76.98"))
		require.NoError(t, err)

		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"tipdoc", "numtra", "valcob"}, {"FC", "124370", "76.98"}}, records)
	})

	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFtipdoc,numtra\nFC,1"))
		require.NoError(t, err)

		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "tipdoc", records[0][0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader(" \n "))
		assert.Nil(t, parser)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("Delimiter is sniffed", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("tipdoc;numtra;valcob\nFC;1;\"1,50\""))
		require.NoError(t, err)
		assert.Equal(t, ';', parser.Delimiter())

		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "1,50", records[1][2])
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("a|b,c\n1|2,3"), WithDelimiter('|'))
		require.NoError(t, err)
		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b,c"}, records[0])
	})

	t.Run("Windows-1252 content is decoded", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte("nomcli\nP\xc9REZ JOS\xc9"))
		require.NoError(t, err)
		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, "PÉREZ JOSÉ", records[1][0])
	})

	t.Run("Variable field count", func(t *testing.T) {
		parser, err := ParseFromBytes([]byte("a,b,c\n1\n1,2,3,4"))
		require.NoError(t, err)
		records, err := parser.ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})
}
