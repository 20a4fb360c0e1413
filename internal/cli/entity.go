package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/slate/pkg/slate"
	"github.com/mesh-intelligence/slate/pkg/types"
)

func (a *app) newCreateCmd() *cobra.Command {
	var returnFields string
	cmd := &cobra.Command{
		Use:   "create <entity-type> <json>",
		Short: "Create an entity",
		Long: `Create an entity from a JSON object of field values. Link fields take
{"type": ..., "id": ...} objects (a list of them for multi-entity fields).
Date fields accept YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or phrases like "next friday".

Example:
  slate create Shot '{"code": "0100.0010", "sequence": {"type": "Sequence", "id": 1}}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseObject(args[1])
			if err != nil {
				return err
			}
			return a.withStore(func(s *slate.Store) error {
				if err := convertDates(s, args[0], data); err != nil {
					return err
				}
				rec, err := s.Create(args[0], data, splitList(returnFields))
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}
	cmd.Flags().StringVar(&returnFields, "return", "", "comma-separated fields to return (default: all)")
	return cmd
}

func (a *app) newFindCmd() *cobra.Command {
	var (
		filters      string
		returnFields string
		retired      bool
		one          bool
	)
	cmd := &cobra.Command{
		Use:   "find <entity-type>",
		Short: "Find entities matching filters",
		Long: `Find entities whose fields match every filter. Filters are a JSON list of
[field, operator, value] or [field, operator, value, value] lists. A field of
the form link.Type.field filters through a link.

Example:
  slate find Shot --filter '[["sequence.Sequence.code", "is", "0100"]]' --return code,sequence`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := parseFilters(filters)
			if err != nil {
				return err
			}
			return a.withStore(func(s *slate.Store) error {
				if one {
					rec, err := s.ReadOne(args[0], fs, splitList(returnFields), retired)
					if err != nil {
						return err
					}
					return printJSON(cmd, rec)
				}
				recs, err := s.ReadAll(args[0], fs, splitList(returnFields), retired)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []types.Record{}
				}
				return printJSON(cmd, recs)
			})
		},
	}
	cmd.Flags().StringVar(&filters, "filter", "", "JSON list of filters")
	cmd.Flags().StringVar(&returnFields, "return", "", "comma-separated fields to return (default: all)")
	cmd.Flags().BoolVar(&retired, "retired", false, "search retired entities instead of active ones")
	cmd.Flags().BoolVar(&one, "one", false, "return only the first match, or null")
	return cmd
}

func (a *app) newUpdateCmd() *cobra.Command {
	var modes []string
	cmd := &cobra.Command{
		Use:   "update <entity-type> <id> <json>",
		Short: "Update fields of an entity",
		Long: `Update fields of an active entity. A null value clears a field.
Multi-entity fields replace their value unless a mode is given.

Example:
  slate update Asset 1 '{"shots": [{"type": "Shot", "id": 4}]}' --mode shots=add`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			data, err := parseObject(args[2])
			if err != nil {
				return err
			}
			m, err := parseModes(modes)
			if err != nil {
				return err
			}
			return a.withStore(func(s *slate.Store) error {
				if err := convertDates(s, args[0], data); err != nil {
					return err
				}
				rec, err := s.Update(args[0], id, data, m)
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}
	cmd.Flags().StringArrayVar(&modes, "mode", nil, "multi-entity update mode as field=add|remove|set (repeatable)")
	return cmd
}

// stateChange is printed by delete and revive.
type stateChange struct {
	Type    string `json:"type"`
	ID      int    `json:"id"`
	Changed bool   `json:"changed"`
}

func (a *app) newDeleteCmd() *cobra.Command {
	return a.newStateCmd("delete", "Retire an entity",
		"Retire an active entity. Its links disappear from every partner until it is revived.",
		func(s *slate.Store, et string, id int) (bool, error) { return s.Delete(et, id) })
}

func (a *app) newReviveCmd() *cobra.Command {
	return a.newStateCmd("revive", "Revive a retired entity",
		"Return a retired entity to the active state, restoring links to partners that are still active.",
		func(s *slate.Store, et string, id int) (bool, error) { return s.Revive(et, id) })
}

func (a *app) newStateCmd(use, short, long string, op func(*slate.Store, string, int) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entity-type> <id>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withStore(func(s *slate.Store) error {
				changed, err := op(s, args[0], id)
				if err != nil {
					return err
				}
				return printJSON(cmd, stateChange{Type: args[0], ID: id, Changed: changed})
			})
		},
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", types.ErrInvalidValue, s)
	}
	return id, nil
}
