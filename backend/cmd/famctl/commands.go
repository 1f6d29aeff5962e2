package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"famgraph/backend/internal/export"
	"famgraph/backend/internal/graph"
	"famgraph/backend/internal/model"
	"famgraph/backend/internal/seed"
	"famgraph/backend/pkg/config"
	"famgraph/backend/pkg/logger"
)

// newRootCmd builds the command tree. Every command loads its own graph
// from a fixture since the store lives only in memory.
func newRootCmd() *cobra.Command {
	var (
		fixtureFile string
		verbose     bool
	)

	rootCmd := &cobra.Command{
		Use:           "famctl",
		Short:         "Inspect and export family graph fixtures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&fixtureFile, "file", "f", "", "seed fixture to load (default: embedded demo)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log graph operations to stderr")

	load := func() (*model.Mapper, seed.Summary, error) {
		log := zap.NewNop()
		if verbose {
			if err := logger.Init("development", ""); err != nil {
				return nil, seed.Summary{}, err
			}
			log = logger.Get()
		}
		return loadMapper(fixtureFile, log)
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a fixture and list the people it defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mapper, summary, err := load()
			if err != nil {
				return err
			}
			return printSeed(cmd.OutOrStdout(), mapper, summary)
		},
	}

	treeCmd := &cobra.Command{
		Use:   "tree <business-id>",
		Short: "Print the ancestors and descendants of a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapper, _, err := load()
			if err != nil {
				return err
			}
			person, err := mapper.People().ByID(args[0])
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), person)
		},
	}

	var timeout time.Duration
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a fixture's graph into Neo4j (NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			mapper, _, err := load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			driver, err := export.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			result, err := export.NewExporter(driver, cfg).Export(ctx, mapper.Store())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d nodes and %d edges to %s\n", result.Nodes, result.Edges, cfg.Neo4jURI)
			return nil
		},
	}
	exportCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall export deadline")

	rootCmd.AddCommand(seedCmd, treeCmd, exportCmd)
	return rootCmd
}

func loadMapper(path string, log *zap.Logger) (*model.Mapper, seed.Summary, error) {
	fixture, err := seed.ReadFile(path)
	if err != nil {
		return nil, seed.Summary{}, err
	}
	mapper := model.NewMapperWithLogger(graph.NewStoreWithLogger(log), log)
	summary, err := seed.Load(mapper, fixture, log)
	if err != nil {
		return nil, summary, err
	}
	return mapper, summary, nil
}

func printSeed(w io.Writer, mapper *model.Mapper, summary seed.Summary) error {
	fmt.Fprintf(w, "Loaded %d people, %d parent/child links, %d marriages\n",
		summary.People, summary.ParentChild, summary.Marriages)

	people, err := model.Collect(mapper.People().All())
	if err != nil {
		return err
	}
	for _, p := range people {
		fmt.Fprintf(w, "  %-20s %s%s\n", p.ID(), p.Name(), details(p))
	}
	return nil
}

// printTree writes ancestors above the person and descendants below,
// indented by generation
func printTree(w io.Writer, person *model.Person) error {
	fmt.Fprintln(w, "Ancestors:")
	if err := walkTree(w, person, 1, (*model.Person).Parents, map[string]bool{}); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s%s\n", label(person), details(person))
	spouses, err := person.Spouses()
	if err != nil {
		return err
	}
	for _, s := range spouses {
		fmt.Fprintf(w, "  married to %s\n", label(s))
	}

	fmt.Fprintln(w, "Descendants:")
	return walkTree(w, person, 1, (*model.Person).Children, map[string]bool{})
}

func walkTree(w io.Writer, from *model.Person, depth int, next func(*model.Person) ([]*model.Person, error), seen map[string]bool) error {
	relatives, err := next(from)
	if err != nil {
		return err
	}
	for _, r := range relatives {
		key := r.NodeID().String()
		if seen[key] {
			continue
		}
		seen[key] = true
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label(r))
		if err := walkTree(w, r, depth+1, next, seen); err != nil {
			return err
		}
	}
	return nil
}

func label(p *model.Person) string {
	return fmt.Sprintf("%s (%s)", p.Name(), p.ID())
}

func details(p *model.Person) string {
	var parts []string
	if dob := p.DateOfBirth(); dob != "" {
		parts = append(parts, "b. "+dob)
	}
	if g := p.Gender(); g != "" {
		parts = append(parts, g)
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}
