package table

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFixedColumns(t *testing.T) {
	data := "time,state,reward\n0.0,0,0\n0.001,1,\n0.002,x,1\n"

	tbl, err := Read(strings.NewReader(data), Layout{
		HeaderRows: 1,
		Columns:    map[string]int{"state": 1, "reward": 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []string{"reward", "state"}, tbl.Names())

	state := tbl.Column("state")
	assert.Equal(t, 0.0, state[0])
	assert.Equal(t, 1.0, state[1])
	assert.True(t, math.IsNaN(state[2]))

	reward := tbl.Column("reward")
	assert.True(t, math.IsNaN(reward[1]))
	assert.Equal(t, 1.0, reward[2])

	assert.Nil(t, tbl.Column("missing"))
}

func TestReadShortRowsPadWithNaN(t *testing.T) {
	tbl, err := Read(strings.NewReader("1,2,3\n4,5\n"), Layout{Columns: map[string]int{"c": 2}})
	require.NoError(t, err)
	c := tbl.Column("c")
	assert.Equal(t, 3.0, c[0])
	assert.True(t, math.IsNaN(c[1]))
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("header\n"), Layout{HeaderRows: 1, Columns: map[string]int{"a": 0}})
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = Read(strings.NewReader("1,2\n"), Layout{Columns: map[string]int{"a": 4}})
	assert.ErrorIs(t, err, ErrColumnRange)

	_, err = Read(strings.NewReader("1,2\n"), Layout{Columns: map[string]int{"a": -1}})
	assert.ErrorIs(t, err, ErrColumnRange)

	_, err = Read(strings.NewReader("1,2\n"), Layout{})
	assert.Error(t, err)
}

func TestReadCustomSeparator(t *testing.T) {
	tbl, err := Read(strings.NewReader("1;2\n3;4\n"), Layout{Comma: ';', Columns: map[string]int{"b": 1}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4}, tbl.Column("b"))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n2\n"), 0o600))

	tbl, err := ReadFile(path, Layout{HeaderRows: 1, Columns: map[string]int{"a": 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, tbl.Column("a"))

	_, err = ReadFile(filepath.Join(dir, "absent.csv"), Layout{Columns: map[string]int{"a": 0}})
	assert.True(t, os.IsNotExist(err))
}

func TestParseCell(t *testing.T) {
	assert.Equal(t, 1.5, ParseCell(" 1.5 "))
	assert.Equal(t, 1.0, ParseCell("True"))
	assert.Equal(t, 0.0, ParseCell("false"))
	assert.True(t, math.IsNaN(ParseCell("")))
	assert.True(t, math.IsNaN(ParseCell("abc")))
}

func TestNewAndHead(t *testing.T) {
	tbl, err := New(map[string][]float64{"a": {1, 2, 3}, "b": {4, 5, 6}})
	require.NoError(t, err)

	tbl.Head(2)
	assert.Equal(t, 2, tbl.Rows())
	assert.Equal(t, []float64{4, 5}, tbl.Column("b"))

	tbl.Head(10)
	assert.Equal(t, 2, tbl.Rows())

	_, err = New(map[string][]float64{"a": {1}, "b": {1, 2}})
	assert.Error(t, err)

	_, err = New(map[string][]float64{})
	assert.ErrorIs(t, err, ErrNoRows)
}
