package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestSplit_Nil(t *testing.T) {
	got := Split(nil)
	assert.True(t, got.Empty())
	assert.Nil(t, got.Street)
	assert.Nil(t, got.City)
	assert.Nil(t, got.State)
	assert.Nil(t, got.Zip)
}

func TestSplit_TooFewSegments(t *testing.T) {
	tests := []string{
		"",
		"123 Main St",
		"123 Main St, Raleigh NC 27601",
		"Raleigh, NC",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			got := Split(strp(in))
			assert.True(t, got.Empty(), "expected all-absent for %q", in)
		})
	}
}

func TestSplit_MultiSegmentStreet(t *testing.T) {
	got := Split(strp("123 Main St, Apt 4, Raleigh, NC 27601"))

	require.NotNil(t, got.Street)
	require.NotNil(t, got.City)
	require.NotNil(t, got.State)
	require.NotNil(t, got.Zip)
	assert.Equal(t, "123 Main St, Apt 4", *got.Street)
	assert.Equal(t, "Raleigh", *got.City)
	assert.Equal(t, "NC", *got.State)
	assert.Equal(t, "27601", *got.Zip)
}

func TestSplit_StateWithoutZip(t *testing.T) {
	got := Split(strp("Building A, Durham, NC"))

	require.NotNil(t, got.Street)
	require.NotNil(t, got.City)
	require.NotNil(t, got.State)
	assert.Equal(t, "Building A", *got.Street)
	assert.Equal(t, "Durham", *got.City)
	assert.Equal(t, "NC", *got.State)
	assert.Nil(t, got.Zip)
}

func TestSplit_EmptyStateZipSegment(t *testing.T) {
	got := Split(strp("1 Elm St, Cary, "))

	require.NotNil(t, got.Street)
	require.NotNil(t, got.City)
	assert.Equal(t, "1 Elm St", *got.Street)
	assert.Equal(t, "Cary", *got.City)
	assert.Nil(t, got.State)
	assert.Nil(t, got.Zip)
}

func TestSplit_TrimsWhitespace(t *testing.T) {
	got := Split(strp("  225 N McDowell St ,   Raleigh  ,  NC   27603  "))

	street, city, state, zip := got.Fields()
	assert.Equal(t, "225 N McDowell St", street)
	assert.Equal(t, "Raleigh", city)
	assert.Equal(t, "NC", state)
	assert.Equal(t, "27603", zip)
}

func TestSplit_ExtraStateZipTokensIgnored(t *testing.T) {
	got := Split(strp("PO Box 9, Boone, NC 28607 USA"))

	_, _, state, zip := got.Fields()
	assert.Equal(t, "NC", state)
	assert.Equal(t, "28607", zip)
}

func TestSplit_Idempotent(t *testing.T) {
	in := "123 Main St, Apt 4, Raleigh, NC 27601"
	first := Split(strp(in))

	rebuilt := *first.Street + ", " + *first.City + ", " + *first.State + " " + *first.Zip
	again := Split(strp(rebuilt))
	assert.Equal(t, first, again)
	assert.Equal(t, in, rebuilt)
}

func TestSplitString(t *testing.T) {
	assert.True(t, SplitString("").Empty())
	assert.True(t, SplitString("   ").Empty())

	got := SplitString("10 Oak Ave, Wilson, NC 27893")
	street, city, state, zip := got.Fields()
	assert.Equal(t, "10 Oak Ave", street)
	assert.Equal(t, "Wilson", city)
	assert.Equal(t, "NC", state)
	assert.Equal(t, "27893", zip)
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		name string
		in   ParsedAddress
		want string
	}{
		{"full", Split(strp("1 A St, Apex, NC 27502")), "1 A St, Apex, NC, 27502"},
		{"no zip", Split(strp("1 A St, Apex, NC")), "1 A St, Apex, NC"},
		{"empty", ParsedAddress{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.OneLine())
		})
	}
}
