package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/fitscore/internal/domain/scoring"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score R1 ... R10",
		Short: "Print the fit score and classification of ten ratings",
		Args:  cobra.ExactArgs(scoring.ItemCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ratings [scoring.ItemCount]int
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("rating %d: %w", i+1, err)
				}
				if v < scoring.MinRating || v > scoring.MaxRating {
					return fmt.Errorf("rating %d: %d is outside %d..%d", i+1, v, scoring.MinRating, scoring.MaxRating)
				}
				ratings[i] = v
			}
			res := scoring.Evaluate(ratings)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", res.Score, res.Classification)
			return err
		},
	}
}
