package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/sldscreen/internal/recommend"
	"github.com/abhisek/sldscreen/internal/screening"
	"github.com/abhisek/sldscreen/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score a parent and teacher response file",
	Long: `Score reads a JSON document of the form

  {"parent": {"q1": 1, "q2": 0, ...}, "teacher": {"q1": 1, ...}}

from a file (or "-" for stdin) and prints the category probabilities and
risk tier. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		withRecs, _ := cmd.Flags().GetBool("recommend")
		rubricPath, _ := cmd.Flags().GetString("rubric")
		if rubricPath == "" {
			rubricPath = cfg.Screening.RubricFile
		}

		raw, err := readInput(args[0])
		if err != nil {
			return err
		}

		rubric, err := loadRubric(rubricPath)
		if err != nil {
			return err
		}

		var doc struct {
			Parent  json.RawMessage `json:"parent"`
			Teacher json.RawMessage `json:"teacher"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}
		parent, err := rubric.ParseResponses(screening.Parent, doc.Parent)
		if err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		teacher, err := rubric.ParseResponses(screening.Teacher, doc.Teacher)
		if err != nil {
			return fmt.Errorf("teacher: %w", err)
		}

		scored := screening.NewScorer(rubric).Score(parent, teacher)
		res := store.Results{
			OverallRisk:                    scored.Risk,
			Probabilities:                  scored.Probabilities,
			Recommendations:                []string{},
			GeneratedAt:                    time.Now().UTC(),
			RequiresProfessionalAssessment: scored.RequiresProfessionalAssessment,
			Flagged:                        scored.Flagged,
			Breakdown:                      scored.Breakdown,
		}

		if withRecs {
			provider := newLLMProvider(cmd.Context(), nil)
			if provider == nil {
				return fmt.Errorf("no LLM provider configured; set SLD_LLM_PROVIDER and an API key")
			}
			svc := recommend.NewService(provider, rubric, cfg.Recommend)
			recs, err := svc.Generate(cmd.Context(), recommend.InputFromResult(scored))
			if err != nil {
				return err
			}
			res.Recommendations = recs
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResults(rubric, &res)
		return nil
	},
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

func printResults(rubric *screening.Rubric, res *store.Results) {
	fmt.Printf("%-24s  %11s  %9s  %s\n", "Category", "Probability", "Threshold", "Flagged")
	fmt.Println(strings.Repeat("─", 60))
	for _, c := range screening.Categories {
		spec := rubric.Categories[c]
		flagged := ""
		if res.Probabilities[c] >= spec.Threshold {
			flagged = "yes"
		}
		fmt.Printf("%-24s  %10.2f%%  %8.2f%%  %s\n",
			categoryLabel(rubric, c), res.Probabilities[c]*100, spec.Threshold*100, flagged)
	}
	fmt.Println(strings.Repeat("─", 60))

	fmt.Printf("Overall risk:   %s\n", strings.ToUpper(string(res.OverallRisk)))
	referral := "no"
	if res.RequiresProfessionalAssessment {
		referral = "yes"
	}
	fmt.Printf("Referral:       %s\n", referral)

	if len(res.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Recommendations")
		for i, r := range res.Recommendations {
			fmt.Printf("%2d. %s\n", i+1, r)
		}
	}
}

// categoryLabel renders "dyslexia" as "Dyslexia (Reading)".
func categoryLabel(rubric *screening.Rubric, c screening.Category) string {
	name := string(c)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	if spec, ok := rubric.Categories[c]; ok && spec.Label != "" {
		return name + " (" + spec.Label + ")"
	}
	return name
}

func init() {
	scoreCmd.Flags().Bool("json", false, "Print results as JSON")
	scoreCmd.Flags().Bool("recommend", false, "Also ask the configured LLM for recommendations")
	scoreCmd.Flags().String("rubric", "", "Rubric YAML file (overrides screening.rubric_file)")
}
