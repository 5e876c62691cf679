package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perchapp/perch/internal/store"
)

func TestHandlesRanking(t *testing.T) {
	t.Parallel()
	authors := []store.Author{
		{DID: "did:plc:1", Handle: "alice.example", DisplayName: "Alice"},
		{DID: "did:plc:2", Handle: "alicia.example", DisplayName: "Alicia"},
		{DID: "did:plc:3", Handle: "bob.example", DisplayName: "Bob"},
	}

	matches := Handles("alice", authors, 10)
	require.Len(t, matches, 3)
	require.Equal(t, "alice.example", matches[0].Author.Handle)
	require.Zero(t, matches[0].Distance)
	// bob is the worst match
	require.Equal(t, "bob.example", matches[2].Author.Handle)
}

func TestHandlesSubstringBeatsDistance(t *testing.T) {
	t.Parallel()
	authors := []store.Author{
		{DID: "did:plc:1", Handle: "thelongestname.example"},
		{DID: "did:plc:2", Handle: "long"},
	}

	matches := Handles("longestname", authors, 10)
	require.Equal(t, "thelongestname.example", matches[0].Author.Handle)
	require.Zero(t, matches[0].Distance)
}

func TestHandlesLimitAndEmptyQuery(t *testing.T) {
	t.Parallel()
	authors := []store.Author{
		{Handle: "a.example"}, {Handle: "b.example"}, {Handle: "c.example"},
	}

	require.Nil(t, Handles("", authors, 10))
	require.Nil(t, Handles("a", authors, 0))
	require.Len(t, Handles("a", authors, 2), 2)
}
