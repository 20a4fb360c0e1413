package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/slate"
	"github.com/mesh-intelligence/slate/pkg/types"
)

func (a *app) newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and change entity types and fields",
	}
	cmd.AddCommand(a.newSchemaTypesCmd())
	cmd.AddCommand(a.newSchemaTypeCmd())
	cmd.AddCommand(a.newSchemaFieldsCmd())
	cmd.AddCommand(a.newSchemaFieldCmd())
	cmd.AddCommand(a.newSchemaApplyCmd())
	return cmd
}

func (a *app) newSchemaTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered entity types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *slate.Store) error {
				return printJSON(cmd, s.ListEntityTypes())
			})
		},
	}
}

func (a *app) newSchemaTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage entity types",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>...",
		Short: "Register entity types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *slate.Store) error {
				var out []types.EntityType
				for _, name := range args {
					et, err := s.CreateEntityType(name)
					if err != nil {
						return err
					}
					out = append(out, et)
				}
				return printJSON(cmd, out)
			})
		},
	})
	return cmd
}

func (a *app) newSchemaFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <entity-type>",
		Short: "List the fields of an entity type, including id and type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *slate.Store) error {
				fields, err := s.ReadAllFields(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, fields)
			})
		},
	}
}

func (a *app) newSchemaFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage the fields of an entity type",
	}
	cmd.AddCommand(a.newFieldAddCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "update <entity-type> <name> <json>",
		Short: "Change field properties; null removes a property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseObject(args[2])
			if err != nil {
				return err
			}
			return a.withStore(func(s *slate.Store) error {
				spec, err := s.UpdateField(args[0], args[1], props)
				if err != nil {
					return err
				}
				return printJSON(cmd, spec)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <entity-type> <name>",
		Short: "Remove a field and its values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *slate.Store) error {
				if err := s.DeleteField(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s.%s\n", args[0], args[1])
				return nil
			})
		},
	})
	return cmd
}

func (a *app) newFieldAddCmd() *cobra.Command {
	var (
		spec         types.FieldSpec
		fieldType    string
		link         string
		values       string
		defaultValue string
	)
	cmd := &cobra.Command{
		Use:   "add <entity-type> <name>",
		Short: "Add a field to an entity type",
		Long: `Add a field to an entity type.

Example:
  slate schema field add Shot assets --type multi_entity --link Asset --link-field shots --table asset_shots`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Type = types.FieldType(fieldType)
			spec.Link = splitList(link)
			spec.Values = splitList(values)
			if defaultValue != "" {
				d, err := docstore.DecodeValue([]byte(defaultValue))
				if err != nil {
					return fmt.Errorf("%w: --default must be JSON: %v", types.ErrInvalidValue, err)
				}
				spec.Default = d
			}
			return a.withStore(func(s *slate.Store) error {
				out, err := s.CreateField(args[0], args[1], spec)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&fieldType, "type", "", "field type (required)")
	f.StringVar(&link, "link", "", "comma-separated entity types a link field may reference")
	f.StringVar(&spec.LinkField, "link-field", "", "reverse field on the linked entity types")
	f.StringVar(&spec.Table, "table", "", "relation table shared with the reverse field")
	f.BoolVar(&spec.Required, "required", false, "require a value on create")
	f.BoolVar(&spec.Identifier, "identifier", false, "include the field in the uniqueness key")
	f.StringVar(&defaultValue, "default", "", "default value as JSON")
	f.StringVar(&values, "values", "", "comma-separated values of an enum field")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// schemaFile is the layout read by "schema apply".
type schemaFile struct {
	EntityTypes []struct {
		Name   string            `yaml:"name"`
		Fields []types.FieldSpec `yaml:"fields"`
	} `yaml:"entity_types"`
}

// applyResult reports what "schema apply" added.
type applyResult struct {
	EntityTypes []string `json:"entity_types"`
	Fields      []string `json:"fields"`
}

func (a *app) newSchemaApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <file.yaml>",
		Short: "Declare entity types and fields from a YAML file",
		Long: `Register every entity type and field listed in a YAML file. Types and
fields that already exist are skipped, so a file can be applied repeatedly.
A link field and its reverse must name the same relation table.

Example file:
  entity_types:
    - name: Sequence
      fields:
        - {name: code, type: text, required: true, identifier: true}
        - {name: shots, type: multi_entity, link: [Shot], link_field: sequence, table: sequence_shots}
    - name: Shot
      fields:
        - {name: sequence, type: entity, link: [Sequence], link_field: shots, table: sequence_shots}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read schema file: %w", err)
			}
			var file schemaFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("%w: parse schema file: %v", types.ErrSchema, err)
			}
			return a.withStore(func(s *slate.Store) error {
				res, err := applySchema(s, file)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}

// applySchema registers all entity types before any field so link fields
// can name types declared later in the file.
func applySchema(s *slate.Store, file schemaFile) (applyResult, error) {
	res := applyResult{EntityTypes: []string{}, Fields: []string{}}
	for _, et := range file.EntityTypes {
		if s.CheckEntityType(et.Name) {
			continue
		}
		if _, err := s.CreateEntityType(et.Name); err != nil {
			return res, err
		}
		res.EntityTypes = append(res.EntityTypes, et.Name)
	}
	for _, et := range file.EntityTypes {
		for _, f := range et.Fields {
			if s.CheckField(et.Name, f.Name) {
				continue
			}
			if _, err := s.CreateField(et.Name, f.Name, f); err != nil {
				return res, err
			}
			res.Fields = append(res.Fields, et.Name+"."+f.Name)
		}
	}
	return res, nil
}
