package fdt_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want fdt.Name
	}{
		{"", fdt.Name{}},
		{"cpus", fdt.Name{Node: "cpus"}},
		{"cpu@0", fdt.Name{Node: "cpu", Unit: "0", Address: 0}},
		{"memory@80000000", fdt.Name{Node: "memory", Unit: "80000000", Address: 0x80000000}},
		{"pci@1,0", fdt.Name{Node: "pci", Unit: "1,0", Address: 1}},
		{"linux,cma", fdt.Name{Node: "linux,cma"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := fdt.ParseName(tt.in)
			if err != nil {
				t.Fatalf("ParseName(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseName(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestParseNameInvalid(t *testing.T) {
	for _, in := range []string{
		"@10",
		"cpu@",
		"cpu@xyz",
		"has space",
		"slash/name",
		"a234567890123456789012345678901x",
	} {
		t.Run(in, func(t *testing.T) {
			if _, err := fdt.ParseName(in); !errors.Is(err, fdt.ErrNodeName) {
				t.Fatalf("ParseName(%q) err = %v, want ErrNodeName", in, err)
			}
		})
	}
}

func TestNameOrdering(t *testing.T) {
	names := []fdt.Name{
		fdt.MustParseName("uart@10"),
		fdt.MustParseName("uart@9"),
		fdt.MustParseName("uart"),
		fdt.MustParseName("cpus"),
	}
	slices.SortFunc(names, fdt.CompareNames)
	var got []string
	for _, n := range names {
		got = append(got, n.String())
	}
	want := []string{"cpus", "uart", "uart@9", "uart@10"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %q, want %q", got, want)
	}
}
