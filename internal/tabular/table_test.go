package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := New("Name", "Address", "Phone")
	t.Append([]string{"Wake", "1 A St, Raleigh, NC 27601", "555-0100"})
	t.Append([]string{"Dare"})
	return t
}

func TestTable_GetSet(t *testing.T) {
	tbl := sampleTable()

	assert.Equal(t, "Wake", tbl.Get(0, "Name"))
	assert.Equal(t, "", tbl.Get(1, "Phone"))
	assert.Equal(t, "", tbl.Get(5, "Name"))
	assert.Equal(t, "", tbl.Get(0, "Missing"))

	require.NoError(t, tbl.Set(1, "Phone", "555-0199"))
	assert.Equal(t, "555-0199", tbl.Get(1, "Phone"))
	assert.Len(t, tbl.Rows[1], 3)

	assert.Error(t, tbl.Set(0, "Missing", "x"))
	assert.Error(t, tbl.Set(9, "Name", "x"))
}

func TestTable_AddDropColumn(t *testing.T) {
	tbl := sampleTable()

	tbl.AddColumn("Latitude")
	tbl.AddColumn("Latitude")
	assert.Equal(t, []string{"Name", "Address", "Phone", "Latitude"}, tbl.Header)
	for _, row := range tbl.Rows {
		assert.Len(t, row, 4)
	}

	tbl.DropColumn("Address")
	tbl.DropColumn("Nope")
	assert.Equal(t, []string{"Name", "Phone", "Latitude"}, tbl.Header)
	assert.Equal(t, []string{"Wake", "555-0100", ""}, tbl.Rows[0])
}

func TestReorder(t *testing.T) {
	cols := []string{"A", "B", "C", "D", "E"}

	tests := []struct {
		name  string
		moves []Move
		want  []string
	}{
		{"no moves", nil, []string{"A", "B", "C", "D", "E"}},
		{"to front", []Move{{Column: "D", Position: 0}}, []string{"D", "A", "B", "C", "E"}},
		{"to end", []Move{{Column: "A", Position: 99}}, []string{"B", "C", "D", "E", "A"}},
		{"negative clamps", []Move{{Column: "C", Position: -3}}, []string{"C", "A", "B", "D", "E"}},
		{
			"two moves",
			[]Move{{Column: "E", Position: 1}, {Column: "B", Position: 0}},
			[]string{"B", "E", "A", "C", "D"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reorder(cols, tt.moves)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Reorder(got, tt.moves)
			require.NoError(t, err)
			assert.Equal(t, got, again, "reorder must be idempotent")
		})
	}
}

func TestReorder_Errors(t *testing.T) {
	_, err := Reorder([]string{"A"}, []Move{{Column: "Z"}})
	assert.ErrorContains(t, err, "unknown column")

	_, err = Reorder([]string{"A", "B"}, []Move{{Column: "A"}, {Column: "A", Position: 1}})
	assert.ErrorContains(t, err, "moved twice")
}

func TestTable_MoveColumns(t *testing.T) {
	tbl := sampleTable()

	require.NoError(t, tbl.MoveColumns([]Move{{Column: "Phone", Position: 1}}))
	assert.Equal(t, []string{"Name", "Phone", "Address"}, tbl.Header)
	assert.Equal(t, []string{"Wake", "555-0100", "1 A St, Raleigh, NC 27601"}, tbl.Rows[0])
	assert.Equal(t, []string{"Dare", "", ""}, tbl.Rows[1])

	assert.Error(t, tbl.MoveColumns([]Move{{Column: "Nope"}}))
}

func TestTable_Project(t *testing.T) {
	tbl := sampleTable()
	tbl.Project([]string{"Phone", "New"})

	assert.Equal(t, []string{"Phone", "New"}, tbl.Header)
	assert.Equal(t, []string{"555-0100", ""}, tbl.Rows[0])
}
