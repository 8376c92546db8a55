package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"polyglot/internal/sqlitedb"
)

// ProcessLeaseName is the lease guarding queue batch processing.
const ProcessLeaseName = "process_queue"

// Lease is a time-bounded mutual-exclusion token.
type Lease struct {
	Name       string
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the lease is no longer valid at now.
func (l Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// AcquireLease takes the named lease for ttl when nobody holds an unexpired
// copy of it. The insert-or-steal is one statement, so two callers racing for
// the same lease cannot both win. When the lease is held, the current holder
// is returned with ok=false.
func (s *Store) AcquireLease(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, errors.New("acquire lease: name required")
	}
	if ttl <= 0 {
		return nil, false, errors.New("acquire lease: ttl must be positive")
	}

	now := time.Now().UTC()
	lease := &Lease{
		Name:       name,
		Owner:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	nowText := sqlitedb.FormatTime(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO processing_leases (name, owner, acquired_at, expires_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            owner = excluded.owner,
            acquired_at = excluded.acquired_at,
            expires_at = excluded.expires_at
        WHERE processing_leases.expires_at <= ?`,
		lease.Name,
		lease.Owner,
		nowText,
		sqlitedb.FormatTime(lease.ExpiresAt),
		nowText,
	)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return lease, true, nil
	}

	holder, err := s.CurrentLease(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return holder, false, nil
}

// ReleaseLease drops the lease if it is still owned by the caller. Releasing
// a lease that expired and was taken over by someone else is a no-op.
func (s *Store) ReleaseLease(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	if _, err := s.execWithRetry(
		ctx,
		`DELETE FROM processing_leases WHERE name = ? AND owner = ?`,
		lease.Name,
		lease.Owner,
	); err != nil {
		return fmt.Errorf("release lease %s: %w", lease.Name, err)
	}
	return nil
}

// CurrentLease returns the unexpired holder of the named lease, or nil.
func (s *Store) CurrentLease(ctx context.Context, name string) (*Lease, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, owner, acquired_at, expires_at FROM processing_leases WHERE name = ? AND expires_at > ?`,
		name,
		sqlitedb.FormatTime(time.Now()),
	)
	var (
		lease       Lease
		acquiredRaw string
		expiresRaw  string
	)
	if err := row.Scan(&lease.Name, &lease.Owner, &acquiredRaw, &expiresRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lease %s: %w", name, err)
	}
	if acquired, err := sqlitedb.ParseTime(acquiredRaw); err == nil {
		lease.AcquiredAt = acquired
	}
	if expires, err := sqlitedb.ParseTime(expiresRaw); err == nil {
		lease.ExpiresAt = expires
	}
	return &lease, nil
}
