// Package testutil provides the in-memory store and fake generator shared
// by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"lorecrafter/database"
	"lorecrafter/generation"
	"lorecrafter/models"
	"lorecrafter/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

// NewStore returns a migrated gorm store on a private in-memory SQLite
// database that is closed when the test ends.
func NewStore(t testing.TB) repositories.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenGorm(sqlite.Open(dsn), zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	// One connection keeps transactions from tripping over SQLite table locks.
	sqlDB.SetMaxOpenConns(1)

	store := repositories.NewGormStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

// FakeGenerator returns canned replies, or Err when set.
type FakeGenerator struct {
	mu      sync.Mutex
	Err     error
	Replies map[models.Kind]map[string]any
	Calls   []string // world prompts, in call order
}

var _ generation.Generator = (*FakeGenerator)(nil)

// NewFakeGenerator replies with a fixed desert character and location.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{Replies: map[models.Kind]map[string]any{
		models.KindCharacter: {
			"name":                 "Asha of the Dunes",
			"role":                 "Water-seer",
			"physical_description": "Tall and sun-dark, with glass beads in her hair.",
			"personality_traits":   "Patient, stubborn",
			"backstory":            "Born in a caravan.\n\nShe learned to hear water under sand.",
		},
		models.KindLocation: {
			"name":        "Glass Oasis",
			"description": "A lake ringed by sand fused into glass.\n\nPilgrims come at dusk.",
		},
	}}
}

func (g *FakeGenerator) Generate(_ context.Context, kind models.Kind, worldPrompt string) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = append(g.Calls, worldPrompt)
	if g.Err != nil {
		return nil, g.Err
	}
	out := make(map[string]any, len(g.Replies[kind]))
	for k, v := range g.Replies[kind] {
		out[k] = v
	}
	return out, nil
}
