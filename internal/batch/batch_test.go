package batch

import (
	"reflect"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name  string
		total int
		size  int
		want  []Batch
	}{
		{
			name:  "remainder in last batch",
			total: 25,
			size:  10,
			want: []Batch{
				{Index: 0, FirstPage: 1, LastPage: 10},
				{Index: 1, FirstPage: 11, LastPage: 20},
				{Index: 2, FirstPage: 21, LastPage: 25},
			},
		},
		{
			name:  "exact multiple",
			total: 20,
			size:  10,
			want: []Batch{
				{Index: 0, FirstPage: 1, LastPage: 10},
				{Index: 1, FirstPage: 11, LastPage: 20},
			},
		},
		{
			name:  "smaller than one batch",
			total: 3,
			size:  10,
			want:  []Batch{{Index: 0, FirstPage: 1, LastPage: 3}},
		},
		{
			name:  "non-positive size uses default",
			total: 11,
			size:  0,
			want: []Batch{
				{Index: 0, FirstPage: 1, LastPage: 10},
				{Index: 1, FirstPage: 11, LastPage: 11},
			},
		},
		{
			name:  "no pages",
			total: 0,
			size:  10,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(tt.total, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan(%d, %d) = %+v, want %+v", tt.total, tt.size, got, tt.want)
			}
		})
	}
}

func TestPlan_CoversEveryPageOnce(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for size := 1; size <= 12; size++ {
			batches := Plan(total, size)
			if want := (total + size - 1) / size; len(batches) != want {
				t.Fatalf("Plan(%d, %d) has %d batches, want %d", total, size, len(batches), want)
			}
			next := 1
			for _, b := range batches {
				if b.FirstPage != next || b.Len() > size || b.Len() < 1 {
					t.Fatalf("Plan(%d, %d) bad batch %+v", total, size, b)
				}
				next = b.LastPage + 1
			}
			if next != total+1 {
				t.Fatalf("Plan(%d, %d) ends at %d", total, size, next-1)
			}
		}
	}
}

func TestBatch(t *testing.T) {
	b := Batch{FirstPage: 11, LastPage: 13}

	if b.Name() != "chunk_11_to_13.pdf" {
		t.Errorf("Name() = %q", b.Name())
	}
	if b.Selection() != "11-13" {
		t.Errorf("Selection() = %q", b.Selection())
	}
	if !reflect.DeepEqual(b.PageNumbers(), []int{11, 12, 13}) {
		t.Errorf("PageNumbers() = %v", b.PageNumbers())
	}

	single := Batch{FirstPage: 4, LastPage: 4}
	if single.Selection() != "4" {
		t.Errorf("Selection() = %q", single.Selection())
	}
}
