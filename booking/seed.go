package booking

import (
	"context"
	"fmt"
)

// Seed copies clubs and competitions from src into dst when dst holds
// neither. It reports whether anything was copied. Ledger entries are
// not copied: a seeded store starts with no bookings.
func Seed(ctx context.Context, dst Store, src Repository) (bool, error) {
	clubs, err := src.LoadClubs(ctx)
	if err != nil {
		return false, fmt.Errorf("seed source clubs: %w", err)
	}
	competitions, err := src.LoadCompetitions(ctx)
	if err != nil {
		return false, fmt.Errorf("seed source competitions: %w", err)
	}

	seeded := false
	err = dst.WithTx(ctx, func(tx Tx) error {
		existingClubs, err := tx.LoadClubs(ctx)
		if err != nil {
			return err
		}
		existingComps, err := tx.LoadCompetitions(ctx)
		if err != nil {
			return err
		}
		if len(existingClubs) > 0 || len(existingComps) > 0 {
			return nil
		}

		if err := tx.SaveClubs(ctx, clubs); err != nil {
			return err
		}
		if err := tx.SaveCompetitions(ctx, competitions); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("seed: %w", err)
	}
	return seeded, nil
}
