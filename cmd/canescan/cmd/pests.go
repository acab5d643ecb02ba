package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/canescan/internal/knowledge"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// pestDetail is a knowledge-base record together with its recommendations.
type pestDetail struct {
	knowledge.PestRecord `yaml:",inline"`
	Recommendations      []knowledge.Recommendation `json:"recommendations" yaml:"recommendations"`
}

func newPestsCmd(_ *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "pests [pest-id]",
		Short: "List the pests canescan can identify",
		Long: `Without arguments, list every pest in the knowledge base. With a pest id,
show its description, field features and control recommendations.

Examples:
  canescan pests
  canescan pests migdolus
  canescan pests --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return writePests(out, knowledge.Pests(), format)
			}
			rec, ok := knowledge.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown pest: %s (run 'canescan pests' for the list)", args[0])
			}
			return writePestDetail(out, pestDetail{PestRecord: rec, Recommendations: knowledge.Recommendations(rec.ID)}, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", outputFormatText, "output format: text, json or yaml")
	return cmd
}

func writePests(w io.Writer, pests []knowledge.PestRecord, format string) error {
	switch format {
	case outputFormatJSON:
		return writeJSON(w, pests)
	case outputFormatYAML:
		return writeYAML(w, pests)
	case outputFormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tNAME\tSCIENTIFIC NAME")
		for _, p := range pests {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.ScientificName)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", format)
	}
}

func writePestDetail(w io.Writer, p pestDetail, format string) error {
	switch format {
	case outputFormatJSON:
		return writeJSON(w, p)
	case outputFormatYAML:
		return writeYAML(w, p)
	case outputFormatText:
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", format)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", p.Name, p.ScientificName)
	fmt.Fprintf(&sb, "ID: %s\n", p.ID)
	if len(p.CommonNames) > 0 {
		fmt.Fprintf(&sb, "Also known as: %s\n", strings.Join(p.CommonNames, ", "))
	}
	fmt.Fprintf(&sb, "Description: %s\n", p.Description())
	if len(p.Damage) > 0 {
		fmt.Fprintf(&sb, "Damage: %s\n", strings.Join(p.Damage, ", "))
	}
	if len(p.Season) > 0 {
		fmt.Fprintf(&sb, "Season: %s\n", strings.Join(p.Season, ", "))
	}
	sb.WriteString("Recommendations:\n")
	for i, r := range p.Recommendations {
		fmt.Fprintf(&sb, "  %d. %s: %s\n", i+1, r.Type, r.Description)
		for _, prod := range r.Products {
			fmt.Fprintf(&sb, "     - %s\n", prod)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
