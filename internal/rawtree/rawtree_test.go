package rawtree_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeilAllavarpu/device-tree/internal/fdt"
	"github.com/NeilAllavarpu/device-tree/internal/fdt/fdttest"
	"github.com/NeilAllavarpu/device-tree/internal/rawtree"
)

func build(t *testing.T, data []byte) (*rawtree.Node, error) {
	t.Helper()
	blob, err := fdt.ParseHeader(data)
	require.NoError(t, err)
	return rawtree.Build(fdt.NewDecoder(blob.Struct, blob.Strings))
}

func TestBuildMinimal(t *testing.T) {
	b := fdttest.NewBuilder()
	b.BeginNode("")
	b.EndNode()
	root, err := build(t, b.Build())
	require.NoError(t, err)
	assert.Zero(t, root.Properties.Len())
	assert.Zero(t, root.Children.Len())
}

func TestBuildNested(t *testing.T) {
	b := fdttest.NewBuilder()
	b.BeginNode("")
	b.AddPropertyString("model", "acme")
	b.BeginNode("soc")
	b.Nop()
	b.BeginNode("uart@2000")
	b.AddPropertyU32("reg", 0x2000)
	b.EndNode()
	b.BeginNode("uart@1000")
	b.EndNode()
	b.EndNode()
	b.EndNode()
	root, err := build(t, b.Build())
	require.NoError(t, err)

	model, ok := root.Properties.Get("model")
	require.True(t, ok)
	assert.Equal(t, "acme\x00", string(model))

	soc, ok := root.Children.Get(fdt.MustParseName("soc"))
	require.True(t, ok)
	var names []string
	for n := range soc.Children.Keys() {
		names = append(names, n.String())
	}
	assert.Equal(t, []string{"uart@1000", "uart@2000"}, names)

	uart, _ := soc.Children.Get(fdt.MustParseName("uart@2000"))
	assert.True(t, uart.Properties.Has("reg"))
}

func TestBuildPropertyOrderIndependent(t *testing.T) {
	keys := []string{"compatible", "reg", "status", "model"}
	emit := func(order []string) *rawtree.Node {
		b := fdttest.NewBuilder()
		b.BeginNode("")
		for _, k := range order {
			b.AddPropertyString(k, k)
		}
		b.EndNode()
		root, err := build(t, b.Build())
		require.NoError(t, err)
		return root
	}
	rev := slices.Clone(keys)
	slices.Reverse(rev)
	assert.Equal(t, emit(keys).Properties.Entries(), emit(rev).Properties.Entries())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *fdttest.Builder)
		raw   bool
		want  error
	}{
		{
			name: "duplicate property",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.AddPropertyString("model", "a")
				b.AddPropertyString("model", "b")
				b.EndNode()
			},
			want: rawtree.ErrDuplicateProperty,
		},
		{
			name: "duplicate node",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.BeginNode("cpus")
				b.EndNode()
				b.BeginNode("cpus")
				b.EndNode()
				b.EndNode()
			},
			want: rawtree.ErrDuplicateNode,
		},
		{
			name: "property outside node",
			build: func(b *fdttest.Builder) {
				b.AddPropertyString("model", "a")
			},
			want: rawtree.ErrPropertyOutsideNode,
		},
		{
			name: "too many ends",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.EndNode()
				b.EndNode()
			},
			want: rawtree.ErrTooManyEnds,
		},
		{
			name: "unclosed nodes",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.BeginNode("soc")
				b.EndNode()
			},
			want: rawtree.ErrUnclosedNodes,
		},
		{
			name:  "no root",
			build: func(b *fdttest.Builder) { b.Nop() },
			want:  rawtree.ErrNoRoot,
		},
		{
			name: "multiple roots",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.EndNode()
				b.BeginNode("other")
				b.EndNode()
			},
			want: rawtree.ErrMultipleRoots,
		},
		{
			name: "named root",
			build: func(b *fdttest.Builder) {
				b.BeginNode("root")
				b.EndNode()
			},
			want: rawtree.ErrRootName,
		},
		{
			name: "second end",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.EndNode()
				b.End()
			},
			want: rawtree.ErrMultipleEnds,
		},
		{
			name: "trailing data",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.EndNode()
				b.End()
				b.Nop()
			},
			raw:  true,
			want: rawtree.ErrTrailingData,
		},
		{
			name: "missing end",
			build: func(b *fdttest.Builder) {
				b.BeginNode("")
				b.EndNode()
			},
			raw:  true,
			want: rawtree.ErrMissingEnd,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fdttest.NewBuilder()
			tt.build(b)
			data := b.Build()
			if tt.raw {
				data = b.BuildRaw()
			}
			_, err := build(t, data)
			require.ErrorIs(t, err, tt.want)
			var rerr *rawtree.Error
			require.ErrorAs(t, err, &rerr)
		})
	}
}

func TestBuildPassesTokenErrors(t *testing.T) {
	b := fdttest.NewBuilder()
	b.BeginNode("")
	b.Token(0x42)
	_, err := build(t, b.BuildRaw())
	require.ErrorIs(t, err, fdt.ErrInvalidToken)
}

func TestErrorMessageNamesPath(t *testing.T) {
	b := fdttest.NewBuilder()
	b.BeginNode("")
	b.BeginNode("soc")
	b.AddPropertyU32("reg", 1)
	b.AddPropertyU32("reg", 2)
	b.EndNode()
	b.EndNode()
	_, err := build(t, b.Build())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "/soc"), err.Error())
	assert.Contains(t, err.Error(), `"reg"`)
}

func TestBuildDeepNesting(t *testing.T) {
	const depth = 10000
	b := fdttest.NewBuilder()
	b.BeginNode("")
	for range depth {
		b.BeginNode("n")
	}
	for range depth {
		b.EndNode()
	}
	b.EndNode()
	root, err := build(t, b.Build())
	require.NoError(t, err)

	n := root
	for range depth {
		next, ok := n.Children.Get(fdt.MustParseName("n"))
		require.True(t, ok)
		n = next
	}
	assert.Zero(t, n.Children.Len())
}
