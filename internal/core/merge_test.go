package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"elevadorpro/pkg/domain"
)

func TestMerge(t *testing.T) {
	seed := []domain.Record{
		{"id": "A", "v": "seed"},
		{"id": "B", "v": "seed"},
		{"id": "C", "v": "seed"},
	}
	tests := []struct {
		name  string
		slots []domain.Slot
		want  []domain.Record
	}{
		{
			name: "seed only",
			want: seed,
		},
		{
			name:  "overlay replaces in place",
			slots: []domain.Slot{domain.Present(domain.Record{"id": "B", "v": "local"})},
			want:  []domain.Record{{"id": "A", "v": "seed"}, {"id": "B", "v": "local"}, {"id": "C", "v": "seed"}},
		},
		{
			name:  "new overlay ids follow seed",
			slots: []domain.Slot{domain.Present(domain.Record{"id": "Z"}), domain.Present(domain.Record{"id": "Y"})},
			want:  append(append([]domain.Record{}, seed...), domain.Record{"id": "Z"}, domain.Record{"id": "Y"}),
		},
		{
			name: "tombstone hides seed and earlier overlay",
			slots: []domain.Slot{
				domain.Present(domain.Record{"id": "A", "v": "local"}),
				domain.Tombstone("A"),
				domain.Tombstone("missing"),
			},
			want: []domain.Record{{"id": "B", "v": "seed"}, {"id": "C", "v": "seed"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(seed, tt.slots)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	seed := []domain.Record{{"id": "A", "v": "seed"}}
	out := Merge(seed, nil)
	out[0]["v"] = "changed"
	if seed[0]["v"] != "seed" {
		t.Fatalf("merge output aliases the seed")
	}
}

func TestNextID(t *testing.T) {
	tests := []struct {
		prefix string
		ids    []string
		want   string
	}{
		{prefix: "ELV-", want: "ELV-0001"},
		{prefix: "ELV-", ids: []string{"ELV-0001", "ELV-0003"}, want: "ELV-0004"},
		{prefix: "OP-", ids: []string{"OP-0009", "OP-x", "OP-", "OP-+12", "ELV-0100"}, want: "OP-0010"},
		{prefix: "ID-", ids: []string{"ID-12345"}, want: "ID-12346"},
	}
	for _, tt := range tests {
		recs := make([]domain.Record, len(tt.ids))
		for i, id := range tt.ids {
			recs[i] = domain.Record{"id": id}
		}
		if got := NextID(tt.prefix, recs); got != tt.want {
			t.Fatalf("NextID(%s, %v) = %s, want %s", tt.prefix, tt.ids, got, tt.want)
		}
	}
}
