package align

import (
	"reflect"
	"testing"

	"github.com/jackzampolin/rectoverso/internal/cards"
)

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []cards.Pair
	}{
		{
			name: "plain markers",
			text: "Front: chat\nBack: cat\nFront: chien\nBack: dog",
			want: []cards.Pair{{Front: "chat", Back: "cat"}, {Front: "chien", Back: "dog"}},
		},
		{
			name: "case and synonyms",
			text: "FRONT: maison\nverso: house\nRecto: arbre\nback: tree",
			want: []cards.Pair{{Front: "maison", Back: "house"}, {Front: "arbre", Back: "tree"}},
		},
		{
			name: "markdown decoration",
			text: "- **Front:** soleil\n- **Back:** sun",
			want: []cards.Pair{{Front: "soleil", Back: "sun"}},
		},
		{
			name: "other lines ignored",
			text: "Here are your cards:\n\nFront: lune\nnote\nBack: moon\nThanks!",
			want: []cards.Pair{{Front: "lune", Back: "moon"}},
		},
		{
			name: "back before front",
			text: "Back: moon\nFront: lune",
			want: []cards.Pair{{Front: "lune", Back: "moon"}},
		},
		{
			name: "unfinished pair dropped",
			text: "Front: a\nBack: b\nFront: c",
			want: []cards.Pair{{Front: "a", Back: "b"}},
		},
		{
			name: "empty value ignored",
			text: "Front:\nFront: x\nBack: y",
			want: []cards.Pair{{Front: "x", Back: "y"}},
		},
		{
			name: "nothing",
			text: "no markers here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMarkers(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMarkers() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePipe(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []cards.Pair
	}{
		{
			name:  "ordinal record",
			lines: []string{"5 maison|house"},
			want:  []cards.Pair{{Ordinal: "5", Front: "maison", Back: "house"}},
		},
		{
			name:  "dotted ordinal",
			lines: []string{"12. arbre | tree"},
			want:  []cards.Pair{{Ordinal: "12", Front: "arbre", Back: "tree"}},
		},
		{
			name:  "no ordinal",
			lines: []string{"chat|cat"},
			want:  []cards.Pair{{Front: "chat", Back: "cat"}},
		},
		{
			name:  "no pipe keeps front",
			lines: []string{"random text"},
			want:  []cards.Pair{{Front: "random text"}},
		},
		{
			name:  "first pipe only",
			lines: []string{"a|b|c"},
			want:  []cards.Pair{{Front: "a", Back: "b|c"}},
		},
		{
			name:  "blank lines skipped",
			lines: []string{"", "  ", "x|y"},
			want:  []cards.Pair{{Front: "x", Back: "y"}},
		},
		{
			name:  "number glued to word is not an ordinal",
			lines: []string{"3D|trois dimensions"},
			want:  []cards.Pair{{Front: "3D", Back: "trois dimensions"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePipe(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePipe() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseColon(t *testing.T) {
	got := ParseColon([]string{
		"chat: cat",
		"no colon here",
		"heure: 10:30",
		":",
		"seul:",
	})
	want := []cards.Pair{
		{Front: "chat", Back: "cat"},
		{Front: "heure", Back: "10:30"},
		{Front: "seul", Back: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseColon() = %+v, want %+v", got, want)
	}
}

func TestPipeLines(t *testing.T) {
	got := PipeLines("Sure, here you go:\n1 chat|cat\n\n 2 chien|dog \nDone.")
	want := []string{"1 chat|cat", "2 chien|dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PipeLines() = %v, want %v", got, want)
	}
}
