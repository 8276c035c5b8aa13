package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createChildrenTable,
		createVenuesTable,
		createActivitiesTable,
		createSlotsTable,
		createBookingsTable,
		createBookingChildrenTable,
		createWaitlistTable,
		createCreditAccountsTable,
		createCreditTransactionsTable,
		createSlotsStartIndex,
		createWaitlistQueueIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'parent',
    company_id INTEGER,
    venue_id INTEGER,
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (role IN ('parent', 'hr_admin', 'venue_admin', 'platform_admin'))
);`

const createChildrenTable = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
CREATE TABLE IF NOT EXISTS children (
    id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
    parent_id INTEGER NOT NULL REFERENCES users(user_id),
    first_name VARCHAR(100) NOT NULL,
    birth_date DATE,
    notes TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createVenuesTable = `
CREATE TABLE IF NOT EXISTS venues (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    city VARCHAR(100) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createActivitiesTable = `
CREATE TABLE IF NOT EXISTS activities (
    id SERIAL PRIMARY KEY,
    venue_id INTEGER NOT NULL REFERENCES venues(id),
    title VARCHAR(500) NOT NULL,
    description TEXT,
    category VARCHAR(100) NOT NULL,
    age_min INTEGER NOT NULL DEFAULT 0,
    age_max INTEGER NOT NULL DEFAULT 18,
    credits_per_child INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    search_vector tsvector GENERATED ALWAYS AS (
        to_tsvector('english', title || ' ' || coalesce(description, '') || ' ' || category)
    ) STORED,

    CHECK (credits_per_child > 0),
    CHECK (age_min <= age_max)
);
CREATE INDEX IF NOT EXISTS activities_search_idx ON activities USING GIN (search_vector);`

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS slots (
    id SERIAL PRIMARY KEY,
    activity_id INTEGER NOT NULL REFERENCES activities(id),
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL,
    capacity INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (capacity > 0),
    CHECK (status IN ('scheduled', 'completed', 'cancelled'))
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    slot_id INTEGER NOT NULL REFERENCES slots(id),
    parent_id INTEGER NOT NULL REFERENCES users(user_id),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    total_credits INTEGER NOT NULL DEFAULT 0,
    cancellation_reason TEXT,
    booked_at TIMESTAMP NOT NULL DEFAULT NOW(),
    confirmed_at TIMESTAMP,
    cancelled_at TIMESTAMP,
    completed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'completed', 'no_show', 'cancelled_parent', 'cancelled_venue'))
);`

const createBookingChildrenTable = `
CREATE TABLE IF NOT EXISTS booking_children (
    id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    child_id UUID NOT NULL REFERENCES children(id),
    credits_charged INTEGER NOT NULL,
    attendance VARCHAR(10) NOT NULL DEFAULT 'pending',
    marked_at TIMESTAMP,

    UNIQUE(booking_id, child_id),
    CHECK (attendance IN ('pending', 'present', 'no_show'))
);`

const createWaitlistTable = `
CREATE TABLE IF NOT EXISTS waitlist_entries (
    id SERIAL PRIMARY KEY,
    slot_id INTEGER NOT NULL REFERENCES slots(id),
    parent_id INTEGER NOT NULL REFERENCES users(user_id),
    child_id UUID NOT NULL REFERENCES children(id),
    position INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'waiting',
    booking_id INTEGER REFERENCES bookings(id),
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
    notified_at TIMESTAMP,
    expires_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('waiting', 'notified', 'converted', 'expired')),
    CHECK (position >= 1)
);
CREATE UNIQUE INDEX IF NOT EXISTS waitlist_active_entry_idx
ON waitlist_entries (slot_id, parent_id, child_id)
WHERE status IN ('waiting', 'notified');`

const createCreditAccountsTable = `
CREATE TABLE IF NOT EXISTS credit_accounts (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(user_id),
    year INTEGER NOT NULL,
    month INTEGER NOT NULL,
    allocated INTEGER NOT NULL DEFAULT 0,
    used INTEGER NOT NULL DEFAULT 0,
    expired INTEGER NOT NULL DEFAULT 0,
    closed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, year, month),
    CHECK (month BETWEEN 1 AND 12),
    CHECK (allocated - used - expired >= 0)
);`

const createCreditTransactionsTable = `
CREATE TABLE IF NOT EXISTS credit_transactions (
    id SERIAL PRIMARY KEY,
    account_id INTEGER NOT NULL REFERENCES credit_accounts(id),
    booking_id INTEGER REFERENCES bookings(id),
    type VARCHAR(20) NOT NULL,
    amount INTEGER NOT NULL,
    balance_after INTEGER NOT NULL,
    description TEXT NOT NULL,
    actor_id INTEGER REFERENCES users(user_id),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (type IN ('allocation', 'booking', 'refund', 'forfeiture', 'expiry', 'adjustment'))
);`

const createSlotsStartIndex = `
CREATE INDEX IF NOT EXISTS slots_starts_at_idx ON slots (starts_at);`

const createWaitlistQueueIndex = `
CREATE INDEX IF NOT EXISTS waitlist_queue_idx
ON waitlist_entries (slot_id, position)
WHERE status IN ('waiting', 'notified');`
