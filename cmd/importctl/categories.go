package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

func newCategoriesCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect and load the category taxonomy",
	}
	cmd.AddCommand(newCategoriesListCommand(global), newCategoriesLoadCommand(global))
	return cmd
}

func newCategoriesListCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories and their subcategories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			tax, err := deps.Ledger.ListCategories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			printTaxonomy(cmd.OutOrStdout(), tax)
			return nil
		},
	}
}

func newCategoriesLoadCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE",
		Short: "Replace the file-backed ledger taxonomy with a YAML document",
		Example: `  importctl categories load categories.yaml

  # categories.yaml
  categories:
    - name: Groceries
      subcategories: [Supermarket, Bakery]
    - name: Salary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax, err := readTaxonomy(args[0])
			if err != nil {
				return err
			}

			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()
			if deps.Memory == nil {
				return fmt.Errorf("categories load: %w", errMemoryOnly)
			}

			deps.Memory.SetTaxonomy(tax)
			if err := deps.Memory.Save(); err != nil {
				return fmt.Errorf("saving ledger: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d categories\n", len(tax.Categories))
			return nil
		},
	}
}

// readTaxonomy decodes a taxonomy document, rejecting unnamed or repeated categories.
func readTaxonomy(path string) (ledger.Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ledger.Taxonomy{}, fmt.Errorf("failed to read taxonomy: %w", err)
	}

	var tax ledger.Taxonomy
	if err := yaml.Unmarshal(raw, &tax); err != nil {
		return ledger.Taxonomy{}, fmt.Errorf("failed to decode taxonomy: %w", err)
	}

	seen := make(map[string]bool, len(tax.Categories))
	for i, c := range tax.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return ledger.Taxonomy{}, fmt.Errorf("category %d has no name", i+1)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return ledger.Taxonomy{}, fmt.Errorf("category %q is listed twice", name)
		}
		seen[key] = true
		tax.Categories[i].Name = name
	}
	return tax, nil
}

func printTaxonomy(w io.Writer, tax ledger.Taxonomy) {
	if tax.IsEmpty() {
		fmt.Fprintln(w, "No categories. Classification rules apply unrestricted.")
		return
	}
	for _, c := range tax.Categories {
		if len(c.SubCategories) == 0 {
			fmt.Fprintln(w, c.Name)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", c.Name, strings.Join(c.SubCategories, ", "))
	}
}
