package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

func TestFromPayloadFindsURLsInNestedStrings(t *testing.T) {
	t.Parallel()

	got := FromPayload([]byte(`{"a": "see http://example.org/x and http://example.org/y", "b": 5}`))
	require.ElementsMatch(t, []string{"http://example.org/x", "http://example.org/y"}, got)
}

func TestFromPayloadWalksArbitraryNesting(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"entity": {"id": 12, "name": "Artist"},
		"links": [
			{"url": "https://example.com/a"},
			["nested", {"deeper": "https://example.com/b"}],
			null, true, 1.5
		],
		"https://example.com/key-only": "no url here",
		"again": "https://example.com/a"
	}`)

	got := FromPayload(payload)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, got)
}

func TestFromPayloadMalformedYieldsNothing(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `{`, `{"a": "https://example.com/"`, `not json`, `{"a":1} trailing`} {
		require.Empty(t, FromPayload([]byte(raw)), raw)
	}
}

func TestFromPayloadBareStringDocument(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"https://example.com/"}, FromPayload([]byte(`"https://example.com"`)))
}

func TestFromNote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "trailing period",
			text: "Check https://example.com/page.",
			want: []string{"https://example.com/page"},
		},
		{
			name: "sentence punctuation",
			text: "Sources: http://example.org/a, http://example.org/b; and http://example.org/c!",
			want: []string{"http://example.org/a", "http://example.org/b", "http://example.org/c"},
		},
		{
			name: "wrapped in parentheses",
			text: "(see https://example.com/info)",
			want: []string{"https://example.com/info"},
		},
		{
			name: "balanced parentheses kept",
			text: "https://en.wikipedia.org/wiki/Foo_(band).",
			want: []string{"https://en.wikipedia.org/wiki/Foo_(band)"},
		},
		{
			name: "query string survives",
			text: "https://example.com/search?q=a&page=2.",
			want: []string{"https://example.com/search?q=a&page=2"},
		},
		{
			name: "duplicates suppressed",
			text: "https://example.com/x and again https://example.com/x.",
			want: []string{"https://example.com/x"},
		},
		{
			name: "quoted and angle bracketed",
			text: `"https://example.com/q" <https://example.com/r>`,
			want: []string{"https://example.com/q", "https://example.com/r"},
		},
		{
			name: "case insensitive scheme",
			text: "HTTPS://Example.COM/Path",
			want: []string{"https://example.com/Path"},
		},
		{
			name: "comma joined urls",
			text: "https://example.com/a,https://example.com/b",
			want: []string{"https://example.com/a", "https://example.com/b"},
		},
		{
			name: "comma inside query kept",
			text: "https://example.com/?ids=1,2,3",
			want: []string{"https://example.com/?ids=1,2,3"},
		},
		{
			name: "wiki link label",
			text: "[https://example.com/x|label]",
			want: []string{"https://example.com/x"},
		},
		{
			name: "other schemes ignored",
			text: "ftp://example.com/file mailto:someone@example.com",
		},
		{
			name: "missing host",
			text: "http:// nothing",
		},
		{
			name: "whitespace only",
			text: " \n\t ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FromNote(tt.text)
			if len(tt.want) == 0 {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got, ok := Normalize("  https://example.com  ")
	require.True(t, ok)
	require.Equal(t, "https://example.com/", got)

	_, ok = Normalize("javascript:alert(1)")
	require.False(t, ok)
	_, ok = Normalize("/relative/path")
	require.False(t, ok)
	_, ok = Normalize("")
	require.False(t, ok)
}

func TestRowCandidates(t *testing.T) {
	t.Parallel()

	data := ForEditData(archiver.EditDataRow{EditID: 77, Payload: []byte(`{"url":"https://example.com/e"}`)})
	require.Equal(t, []archiver.Candidate{
		{URL: "https://example.com/e", Origin: archiver.OriginEditData, OriginID: 77},
	}, data)

	note := ForEditNote(archiver.EditNoteRow{NoteID: 5, EditID: 77, Text: "see https://example.com/n."})
	require.Equal(t, []archiver.Candidate{
		{URL: "https://example.com/n", Origin: archiver.OriginEditNote, OriginID: 5},
	}, note)

	require.Nil(t, ForEditNote(archiver.EditNoteRow{NoteID: 6, Text: "no links"}))
}

func TestParseNodeKeepsFieldOrderAndNumbers(t *testing.T) {
	t.Parallel()

	n, err := ParseNode([]byte(`{"z": 1, "a": [12345678901234567890, false, null]}`))
	require.NoError(t, err)
	require.Equal(t, KindObject, n.Kind)
	require.Len(t, n.Fields, 2)
	require.Equal(t, "z", n.Fields[0].Key)
	require.Equal(t, "a", n.Fields[1].Key)

	list := n.Fields[1].Value
	require.Equal(t, KindList, list.Kind)
	require.Equal(t, "12345678901234567890", list.List[0].Number.String())
	require.Equal(t, KindBool, list.List[1].Kind)
	require.Equal(t, KindNull, list.List[2].Kind)
}
