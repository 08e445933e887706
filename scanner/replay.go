// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scanner

import "context"

// EventSource fetches event records for replay. It is satisfied by
// chain.EventSource; declared locally so this package does not import
// chain.
type EventSource interface {
	FetchTransaction(ctx context.Context, signature string) ([][]byte, error)
	FetchHistory(ctx context.Context, limit int) ([][]byte, error)
}

// Rescan fetches and replays the event records of one transaction. This is
// the path used to promote a note emitted by the same request just
// submitted, before the caller's own forest re-sync would otherwise see it.
func (s *Scanner) Rescan(ctx context.Context, src EventSource, signature string) error {
	records, err := src.FetchTransaction(ctx, signature)
	if err != nil {
		return err
	}
	s.ProcessStream(records)
	return nil
}

// ScanHistory replays the last limit pool-related transactions' records,
// used on wallet re-open.
func (s *Scanner) ScanHistory(ctx context.Context, src EventSource, limit int) error {
	records, err := src.FetchHistory(ctx, limit)
	if err != nil {
		return err
	}
	s.ProcessStream(records)
	return nil
}
