package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rustlens/rustlens/internal/cli/ui"
	"github.com/rustlens/rustlens/internal/debug"
	"github.com/rustlens/rustlens/internal/rusttypes"
	"github.com/rustlens/rustlens/internal/value"
)

// NewClassifyCommand creates the classify command
func NewClassifyCommand() *cobra.Command {
	var (
		fields   []string
		union    bool
		manifest string
	)

	cmd := &cobra.Command{
		Use:   "classify <type-name>",
		Short: "Classify the structural shape of a Rust type",
		Long: `Classify the structural shape of a Rust type the way the variable
view would, without attaching to a process.

The type is described either inline with --field flags or looked up in a
type manifest. Useful for checking how a type will render before a debug
session.

Examples:
  rustlens classify 'alloc::vec::Vec<i32>' -f buf:RawVec -f len:usize
  rustlens classify '(i32, i32)' -f __0:i32 -f __1:i32
  rustlens classify 'std::collections::HashMap<K, V>' --types types.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(args[0], fields, union, manifest)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Field as name:type (repeatable)")
	cmd.Flags().BoolVar(&union, "union", false, "Describe the type as a union")
	cmd.Flags().StringVar(&manifest, "types", "", "Look the type up in this manifest instead")

	return cmd
}

// runClassify classifies one described type and prints its shape
func runClassify(name string, fields []string, union bool, manifest string) error {
	var typ *value.Type

	if manifest != "" {
		table, err := debug.LoadManifest(manifest)
		if err != nil {
			return err
		}
		typ = table.Lookup(name)
		if typ == nil {
			return fmt.Errorf("type %q not found in %s", name, manifest)
		}
	} else {
		typ = &value.Type{Name: name, Kind: value.KindStruct}
		if union {
			typ.Kind = value.KindUnion
		}
		for _, spec := range fields {
			fieldName, fieldType, ok := strings.Cut(spec, ":")
			if !ok {
				return fmt.Errorf("invalid field %q: expected name:type", spec)
			}
			typ.Fields = append(typ.Fields, value.Field{
				Name: fieldName,
				Type: &value.Type{Name: fieldType, Kind: value.KindBase},
			})
		}
	}

	shape := rusttypes.Classify(typ)

	nameColor := color.New(color.FgWhite, color.Bold)
	shapeColor := color.New(color.FgGreen, color.Bold)
	if shape == rusttypes.Other {
		shapeColor = color.New(color.FgYellow, color.Bold)
	}

	nameColor.Printf("%s: ", typ.Name)
	shapeColor.Println(shape.String())

	if len(typ.Fields) > 0 {
		fmt.Println()
		table := ui.NewTable(os.Stdout, []string{"Field", "Type", "Offset"}, nil)
		for _, f := range typ.Fields {
			table.AddRow(f.Name, f.Type.Name, strconv.FormatUint(f.Offset, 10))
		}
		table.Render()
	}

	return nil
}
