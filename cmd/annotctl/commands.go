package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	annot "github.com/goliatone/go-annotations"
	"github.com/goliatone/go-annotations/pkg/catalog"
	"github.com/goliatone/go-annotations/schema/openapi"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "annotctl",
		Short: "Inspect and resolve annotation catalogs",
		Long: `annotctl loads a YAML annotation catalog and answers metadata queries
about its declarations: which types are present, their raw instances and
their resolved attribute values after alias, force-alias and mirror relations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("catalog", "", "path to the YAML catalog (env ANNOTCTL_CATALOG)")
	rootCmd.PersistentFlags().String("selector", "", "canonical node selector (env ANNOTCTL_SELECTOR)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log hierarchy builds to stderr")

	rootCmd.AddCommand(newTypesCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newFindCommand())
	rootCmd.AddCommand(newEvalCommand())
	rootCmd.AddCommand(newMergeCommand())

	return rootCmd
}

// session is the state shared by every command invocation.
type session struct {
	catalog *catalog.Catalog
	engine  *annot.Engine
	logger  *zap.Logger
}

func openSession(cmd *cobra.Command) (*session, error) {
	config, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(config.Verbose)
	cat, err := catalog.ParseFile(config.Catalog)
	if err != nil {
		return nil, err
	}
	selector, _ := annot.ParseSelector(config.Selector)
	engine, err := cat.Engine(
		annot.WithSelector(selector),
		annot.WithPredicateEngine(config.Engine),
		annot.WithBuildLogger(annot.ZapBuildLogger(logger)),
		annot.WithEvaluatorLogger(annot.ZapEvaluatorLogger(logger)),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("annotctl: catalog loaded",
		zap.String("catalog", config.Catalog),
		zap.Int("types", cat.Registry.Len()),
		zap.Int("declarations", len(cat.Declarations)),
	)
	return &session{catalog: cat, engine: engine, logger: logger}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

func newTypesCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Print the schema of every registered type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			var generator annot.SchemaGenerator
			switch format {
			case "descriptors", "":
				generator = annot.DefaultSchemaGenerator()
			case "openapi":
				generator = openapi.NewGenerator()
			default:
				return fmt.Errorf("unknown schema format %q", format)
			}
			doc, err := s.catalog.Registry.Schema(generator)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc.Document)
		},
	}
	cmd.Flags().StringVar(&format, "format", "descriptors", "schema format: descriptors or openapi")
	return cmd
}

func newResolveCommand() *cobra.Command {
	var trace string
	cmd := &cobra.Command{
		Use:   "resolve <declaration> [type]",
		Short: "Print resolved attribute values",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			decl := annot.Element(args[0])
			if len(args) == 1 {
				instances, err := s.engine.ResolveAll(decl)
				if err != nil {
					return err
				}
				out := make(map[string]any, len(instances))
				for _, inst := range instances {
					values, err := inst.(*annot.View).Values()
					if err != nil {
						return err
					}
					out[string(inst.AnnotationType())] = values
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			view, err := s.engine.View(decl, annot.TypeID(args[1]))
			if err != nil {
				return err
			}
			if !view.Present() {
				return fmt.Errorf("%s carries no @%s", args[0], args[1])
			}
			if trace != "" {
				t, err := view.Trace(trace)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), t)
			}
			values, err := view.Values()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), values)
		},
	}
	cmd.Flags().StringVar(&trace, "trace", "", "print the provenance of one attribute")
	return cmd
}

type foundInstance struct {
	Type       annot.TypeID   `json:"type"`
	Vertical   int            `json:"vertical"`
	Horizontal int            `json:"horizontal"`
	Canonical  bool           `json:"canonical"`
	Values     map[string]any `json:"values"`
}

func newFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "find <declaration> <type>",
		Short: "Print every raw instance of a type reachable from a declaration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			h, err := s.engine.Hierarchy(annot.Element(args[0]), false)
			if err != nil {
				return err
			}
			out := []foundInstance{}
			for _, n := range h.NodesOf(annot.TypeID(args[1])) {
				values := make(map[string]any, len(n.Type.Attributes))
				for _, attr := range n.Type.Attributes {
					value, err := n.Value(attr.Name)
					if err != nil {
						return err
					}
					values[attr.Name] = value
				}
				out = append(out, foundInstance{
					Type:       n.Type.ID,
					Vertical:   n.Vertical,
					Horizontal: n.Horizontal,
					Canonical:  n.Canonical(),
					Values:     values,
				})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <declaration> <type> <expression>",
		Short: "Evaluate a predicate against resolved attributes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.engine.Evaluate(annot.Element(args[0]), annot.TypeID(args[1]), args[2])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("engine", annot.PredicateExpr, "predicate engine: expr, cel or js (env ANNOTCTL_ENGINE)")
	return cmd
}

func newMergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <declaration> <type>",
		Short: "Merge a type across a declaration, its ancestors and interfaces",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			composite, err := s.engine.Composite(annot.Element(args[0]), true)
			if err != nil {
				return err
			}
			merged, ok, err := composite.Merged(annot.TypeID(args[1]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s carries no @%s", args[0], args[1])
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"declarations": composite.Declarations(),
				"values":       merged,
			})
		},
	}
}

func writeJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
