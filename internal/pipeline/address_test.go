package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ncdata-cli/internal/tabular"
)

func TestSplitAddresses(t *testing.T) {
	tbl := tabular.New("Name", "Address", "Phone")
	tbl.Append([]string{"Wake Lab", "123 Main St, Apt 4, Raleigh, NC 27601", "555-0100"})
	tbl.Append([]string{"Dare Lab", "Building A, Durham, NC", "555-0101"})
	tbl.Append([]string{"Bad Lab", "Raleigh NC", "555-0102"})
	tbl.Append([]string{"Blank Lab", "", "555-0103"})

	out, stats, err := SplitAddresses(tbl, "Address")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Phone", "streetAddress", "City", "State", "Zip"}, out.Header)
	assert.Equal(t, []string{"Wake Lab", "555-0100", "123 Main St, Apt 4", "Raleigh", "NC", "27601"}, out.Rows[0])
	assert.Equal(t, []string{"Dare Lab", "555-0101", "Building A", "Durham", "NC", ""}, out.Rows[1])
	assert.Equal(t, []string{"Bad Lab", "555-0102", "", "", "", ""}, out.Rows[2])
	assert.Equal(t, []string{"Blank Lab", "555-0103", "", "", "", ""}, out.Rows[3])

	assert.Equal(t, SplitStats{Rows: 4, Parsed: 2, Unparsable: 2}, stats)
}

func TestSplitAddresses_MissingColumn(t *testing.T) {
	_, _, err := SplitAddresses(tabular.New("Name"), "Address")
	assert.ErrorContains(t, err, `address column "Address" not found`)
}
