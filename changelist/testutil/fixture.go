// Package testutil loads the shared catalog fixture the change list
// packages test against.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/internal/bookstore"
)

// Universe is the loaded fixture: a seeded catalog database plus the
// registered models.
//
// Books by primary key:
//
//	1 Border Crossings        2005 hardcover  in print   rated true   author Alice   contributors Dana, Ed
//	2 Signal Fires            2005 paperback  in print   rated false  author Ben     contributors Ed
//	3 The Quiet Coast         2014 ebook      out        rating NULL  author Alice
//	4 Paper Towns of Iron     NULL paperback  in print   rated true   author Carmen  contributors Dana, Ed, Flo
//	5 Gold Harbor             1999 hardcover  out        rated false  no author
//	6 Harbor Lights Again     2014 ebook      in print   rating NULL  author Ben     contributors Flo
//	7 Crossing the Gold Line  2021 hardcover  in print   rated true   author Alice   contributors Dana
type Universe struct {
	DB     *sql.DB
	Models *bookstore.Models
}

// Fixture primary keys, named for the traits tests assert on.
const (
	BookBorderCrossings int64 = 1 // year 2005, hardcover, in print
	BookSignalFires     int64 = 2 // year 2005, paperback
	BookQuietCoast      int64 = 3 // year 2014, out of print, rating NULL
	BookPaperTowns      int64 = 4 // year NULL, no published date
	BookGoldHarbor      int64 = 5 // year 1999, no author
	BookHarborLights    int64 = 6 // year 2014, published 2014-12-31
	BookGoldLine        int64 = 7 // year 2021

	AuthorAlice  int64 = 1
	AuthorBen    int64 = 2
	AuthorCarmen int64 = 3 // age NULL

	ContributorDana int64 = 1
	ContributorEd   int64 = 2
	ContributorFlo  int64 = 3

	// BookCount is the total number of fixture books.
	BookCount = 7
)

// LoadUniverse opens a temporary catalog database, applies the schema,
// seeds the fixture rows, and registers the models.
func LoadUniverse(t *testing.T) *Universe {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := bookstore.Open(path)
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := bookstore.EnsureSchema(db); err != nil {
		t.Fatalf("failed to apply fixture schema: %v", err)
	}
	if err := bookstore.Seed(db); err != nil {
		t.Fatalf("failed to seed fixture: %v", err)
	}

	models, err := bookstore.Register()
	if err != nil {
		t.Fatalf("failed to register fixture models: %v", err)
	}
	return &Universe{DB: db, Models: models}
}

// LoadSite is LoadUniverse plus the demo admin site registrations.
func LoadSite(t *testing.T) (*changelist.Site, *Universe) {
	t.Helper()

	u := LoadUniverse(t)
	site, models, err := bookstore.NewSite(u.DB)
	if err != nil {
		t.Fatalf("failed to build fixture site: %v", err)
	}
	u.Models = models
	return site, u
}
