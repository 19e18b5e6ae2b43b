package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('DRAFT', 'PENDING', 'ACTIVE', 'EXPIRED', 'CANCELLED', 'TERMINATED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'customer_status') THEN
			CREATE TYPE customer_status AS ENUM ('LEAD', 'ACTIVE', 'INACTIVE', 'TERMINATED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'customer_plant_status') THEN
			CREATE TYPE customer_plant_status AS ENUM ('ACTIVE', 'REMOVED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name TEXT NOT NULL,
		tax_code VARCHAR(32) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		status customer_status NOT NULL DEFAULT 'LEAD',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS plant_types (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		code VARCHAR(32) NOT NULL,
		name TEXT NOT NULL,
		monthly_price NUMERIC(18,2) NOT NULL CHECK (monthly_price >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_plant_types_code ON plant_types (code);`,
	`CREATE TABLE IF NOT EXISTS inventory (
		plant_type_id UUID PRIMARY KEY REFERENCES plant_types(id),
		available_stock INTEGER NOT NULL DEFAULT 0 CHECK (available_stock >= 0),
		rented_stock INTEGER NOT NULL DEFAULT 0 CHECK (rented_stock >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		number VARCHAR(64) NOT NULL,
		customer_id UUID NOT NULL REFERENCES customers(id),
		status contract_status NOT NULL DEFAULT 'DRAFT',
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		monthly_fee NUMERIC(18,2) NOT NULL DEFAULT 0,
		total_contract_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		deposit_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		payment_terms TEXT,
		terms_notes TEXT,
		previous_contract_id UUID REFERENCES contracts(id),
		termination_reason TEXT,
		activated_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		terminated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_contracts_dates CHECK (end_date > start_date)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_number ON contracts (number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_previous ON contracts (previous_contract_id) WHERE previous_contract_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_customer_id ON contracts (customer_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status_end_date ON contracts (status, end_date);`,
	`CREATE TABLE IF NOT EXISTS contract_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		plant_type_id UUID NOT NULL REFERENCES plant_types(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(18,2) NOT NULL CHECK (unit_price >= 0),
		discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (discount_percent >= 0 AND discount_percent <= 100),
		total_price NUMERIC(18,2) NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_items_contract_id ON contract_items (contract_id, position);`,
	`CREATE OR REPLACE FUNCTION contract_items_draft_only() RETURNS trigger AS $$
	DECLARE
		owner_status contract_status;
	BEGIN
		SELECT status INTO owner_status
		FROM contracts
		WHERE id = COALESCE(NEW.contract_id, OLD.contract_id);
		IF owner_status IS NOT NULL AND owner_status <> 'DRAFT' THEN
			RAISE EXCEPTION 'contract items are immutable once the contract leaves DRAFT';
		END IF;
		RETURN COALESCE(NEW, OLD);
	END
	$$ LANGUAGE plpgsql;`,
	`DROP TRIGGER IF EXISTS trg_contract_items_draft_only ON contract_items;`,
	`CREATE TRIGGER trg_contract_items_draft_only
		BEFORE INSERT OR UPDATE OR DELETE ON contract_items
		FOR EACH ROW EXECUTE FUNCTION contract_items_draft_only();`,
	`CREATE TABLE IF NOT EXISTS customer_plants (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		customer_id UUID NOT NULL REFERENCES customers(id),
		plant_type_id UUID NOT NULL REFERENCES plant_types(id),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		status customer_plant_status NOT NULL DEFAULT 'ACTIVE',
		installed_at TIMESTAMPTZ NOT NULL,
		removed_at TIMESTAMPTZ
	);`,
	`CREATE INDEX IF NOT EXISTS idx_customer_plants_contract ON customer_plants (contract_id) WHERE status = 'ACTIVE';`,
	`CREATE INDEX IF NOT EXISTS idx_customer_plants_customer ON customer_plants (customer_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
