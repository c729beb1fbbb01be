package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bidhaus/bidhaus-backend/pkg/migrate"
)

func TestAuctionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_auctions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no auctions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS auctions",
		"CHECK (starting_price > 0)",
		"CHECK (min_increment > 0)",
		"soft_close_triggered BOOLEAN NOT NULL DEFAULT FALSE",
		"idx_auctions_status_ends_at",
		"DROP TABLE IF EXISTS auctions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProxyBidsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_proxy_bids.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no proxy bids migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS proxy_bids",
		"FOREIGN KEY (auction_id) REFERENCES auctions(id) ON DELETE CASCADE",
		"CHECK (current_bid_amount <= max_proxy_bid)",
		"idx_proxy_bids_auction_status",
		"DROP TABLE IF EXISTS proxy_bids",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
