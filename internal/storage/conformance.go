package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Factory produces a fresh, empty store for one conformance check.
type Factory func() Store

// Conformance validates a driver against the contract's concurrency
// properties: (a) exactly one of N concurrent updates
// from the same base version wins; (b) exactly one of N concurrent
// initializations of the same (entity, instance) wins; (c) N concurrent
// updates to distinct (entity, instance) all succeed; (d) after a
// contention race the final version is 1 and the final state is
// consistent under a non-locking read. Drivers outside the core run
// the same suite the in-memory reference runs.
func Conformance(ctx context.Context, factory Factory, n int) error {
	if err := CheckUpdateContention(ctx, factory(), n); err != nil {
		return fmt.Errorf("update contention: %w", err)
	}
	if err := CheckInitContention(ctx, factory(), n); err != nil {
		return fmt.Errorf("init contention: %w", err)
	}
	if err := CheckDisjointUpdates(ctx, factory(), n); err != nil {
		return fmt.Errorf("disjoint updates: %w", err)
	}
	return nil
}

// CheckUpdateContention races n updaters of the same cell from base
// version 0 and asserts exactly one wins, every loser observes an OCC
// conflict, and a fresh non-locking read shows version 1 in the
// winner's state (properties a and d).
func CheckUpdateContention(ctx context.Context, s Store, n int) error {
	const entity, instance = "Order", "order-1"
	if err := seedEntity(ctx, s, entity, instance, "pending"); err != nil {
		return err
	}

	wins := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			snap, err := s.BeginSnapshot(gctx)
			if err != nil {
				return err
			}
			err = s.UpdateEntityState(gctx, snap, entity, instance, 0, "confirmed", "conformance", "confirm")
			if err == nil {
				err = s.CommitSnapshot(gctx, snap)
			}
			if err != nil {
				if !IsConflict(err) {
					return fmt.Errorf("loser %d: want ConcurrentConflict, got %w", i, err)
				}
				_ = s.AbortSnapshot(gctx, snap)
				return nil
			}
			wins[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		return fmt.Errorf("want exactly 1 winner out of %d, got %d", n, winners)
	}

	final, err := s.GetEntityState(ctx, entity, instance)
	if err != nil {
		return err
	}
	if final.Version != 1 || final.State != "confirmed" {
		return fmt.Errorf("final read: want (confirmed, v1), got (%s, v%d)", final.State, final.Version)
	}
	return nil
}

// CheckInitContention races n initializers of the same cell and
// asserts exactly one wins (property b).
func CheckInitContention(ctx context.Context, s Store, n int) error {
	const entity, instance = "Order", "order-1"
	wins := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			snap, err := s.BeginSnapshot(gctx)
			if err != nil {
				return err
			}
			err = s.InitializeEntity(gctx, snap, entity, instance, "draft")
			if err == nil {
				err = s.CommitSnapshot(gctx, snap)
			}
			if err != nil {
				var already *AlreadyInitializedError
				if !errors.As(err, &already) {
					return fmt.Errorf("loser %d: want AlreadyInitialized, got %w", i, err)
				}
				_ = s.AbortSnapshot(gctx, snap)
				return nil
			}
			wins[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	winners := 0
	for _, w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		return fmt.Errorf("want exactly 1 winner out of %d, got %d", n, winners)
	}
	final, err := s.GetEntityState(ctx, entity, instance)
	if err != nil {
		return err
	}
	if final.Version != 0 || final.State != "draft" {
		return fmt.Errorf("final read: want (draft, v0), got (%s, v%d)", final.State, final.Version)
	}
	return nil
}

// CheckDisjointUpdates runs n updaters against n distinct instances
// and asserts all commit (property c: non-contending updates are
// isolated from each other).
func CheckDisjointUpdates(ctx context.Context, s Store, n int) error {
	const entity = "Order"
	for i := 0; i < n; i++ {
		if err := seedEntity(ctx, s, entity, fmt.Sprintf("order-%d", i), "pending"); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		instance := fmt.Sprintf("order-%d", i)
		g.Go(func() error {
			snap, err := s.BeginSnapshot(gctx)
			if err != nil {
				return err
			}
			if err := s.UpdateEntityState(gctx, snap, entity, instance, 0, "confirmed", "conformance", "confirm"); err != nil {
				return fmt.Errorf("%s: %w", instance, err)
			}
			return s.CommitSnapshot(gctx, snap)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		instance := fmt.Sprintf("order-%d", i)
		final, err := s.GetEntityState(ctx, entity, instance)
		if err != nil {
			return err
		}
		if final.Version != 1 || final.State != "confirmed" {
			return fmt.Errorf("%s: want (confirmed, v1), got (%s, v%d)", instance, final.State, final.Version)
		}
	}
	return nil
}

func seedEntity(ctx context.Context, s Store, entity, instance, state string) error {
	snap, err := s.BeginSnapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.InitializeEntity(ctx, snap, entity, instance, state); err != nil {
		return err
	}
	return s.CommitSnapshot(ctx, snap)
}
