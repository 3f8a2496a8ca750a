// phos-inspect prints a summary of one or more canvas container files:
// envelope header, geometry, layer count and history depth.
package main

import (
	"fmt"
	"os"

	phos "github.com/0xc1c4da/phosphor-sub004"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.phos> [...]\n", os.Args[0])
		os.Exit(2)
	}

	codec, err := phos.NewCodec(phos.CodecOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "codec: %v\n", err)
		os.Exit(1)
	}
	defer codec.Close()
	container, err := phos.NewContainer(codec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, path := range os.Args[1:] {
		if err := inspect(container, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(container *phos.Container, path string) error {
	b, err := phos.ReadAll(path)
	if err != nil {
		return err
	}
	info, err := phos.ReadContainerInfo(b)
	if err != nil {
		return err
	}

	fmt.Printf("%s:\n", path)
	if info.Legacy {
		fmt.Printf("  envelope:  legacy document, %d bytes\n", info.CompressedSize)
	} else {
		fmt.Printf("  envelope:  container v%d, %d bytes compressed, %d bytes raw\n",
			info.Version, info.CompressedSize, info.RawSize)
	}

	st, err := container.Unmarshal(b)
	if err != nil {
		return err
	}
	fmt.Printf("  canvas:    %dx%d, %d layer(s), active layer %d\n",
		st.Current.Columns, st.Current.Rows, len(st.Current.Layers), st.Current.ActiveLayer)
	fmt.Printf("  history:   %d undo, %d redo (limit %d)\n",
		len(st.Undo), len(st.Redo), st.UndoLimit)
	if st.Sauce.Present {
		fmt.Printf("  sauce:     %q by %q (%s)\n", st.Sauce.Title, st.Sauce.Author, st.Sauce.Group)
	}
	return nil
}
