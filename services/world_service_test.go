package services

import (
	"context"
	"errors"
	"testing"

	"lorecrafter/generation"
	"lorecrafter/models"
	"lorecrafter/repositories"
	"lorecrafter/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWorld(t *testing.T) (WorldService, repositories.Store, *testutil.FakeGenerator) {
	t.Helper()
	store := testutil.NewStore(t)
	gen := testutil.NewFakeGenerator()
	return NewWorldService(store, gen, nil, zap.NewNop()), store, gen
}

func registerUser(t *testing.T, store repositories.Store, email string) string {
	t.Helper()
	u, err := NewAuthService(store).Register(context.Background(), &RegisterInput{
		Username: email, Email: email, Password: "pw",
	})
	require.NoError(t, err)
	return u.ID
}

func TestGenerateStampsRecord(t *testing.T) {
	ctx := context.Background()
	svc, store, gen := newWorld(t)
	owner := registerUser(t, store, "a@example.com")

	rec, err := svc.Generate(ctx, owner, models.KindCharacter, "  a desert world ")
	require.NoError(t, err)
	c, ok := rec.(*models.Character)
	require.True(t, ok)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, owner, c.OwnerID)
	assert.Equal(t, "#58a6ff", c.Color)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, "Asha of the Dunes", c.Name)
	assert.Equal(t, []string{"a desert world"}, gen.Calls)

	rec, err = svc.Generate(ctx, owner, models.KindLocation, "a desert world")
	require.NoError(t, err)
	l := rec.(*models.Location)
	assert.Equal(t, "#00d1ff", l.Color)
	assert.Nil(t, l.Coords)
	assert.Equal(t, models.KindLocation, rec.RecordKind())
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, gen := newWorld(t)
	owner := registerUser(t, store, "a@example.com")

	_, err := svc.Generate(ctx, owner, models.KindCharacter, "   ")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, gen.Calls)

	gen.Err = &generation.ParseError{Raw: "not json", Err: errors.New("bad")}
	_, err = svc.Generate(ctx, owner, models.KindCharacter, "world")
	assert.ErrorIs(t, err, ErrParse)
	var perr *generation.ParseError
	assert.True(t, errors.As(err, &perr))

	gen.Err = generation.ErrUpstream
	_, err = svc.Generate(ctx, owner, models.KindLocation, "world")
	assert.ErrorIs(t, err, ErrUpstream)

	chars, err := svc.ListCharacters(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, chars, "failed generations persist nothing")
}

func TestNoDatabase(t *testing.T) {
	ctx := context.Background()
	svc := NewWorldService(nil, testutil.NewFakeGenerator(), nil, zap.NewNop())

	_, err := svc.Generate(ctx, "1", models.KindCharacter, "world")
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = svc.Export(ctx, "1")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, svc.Delete(ctx, "1", models.KindLocation, "1"), ErrNoDatabase)

	_, err = NewAuthService(nil).Login(ctx, &LoginInput{Email: "a@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestLinkCoordsColor(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newWorld(t)
	alice := registerUser(t, store, "alice@example.com")
	bob := registerUser(t, store, "bob@example.com")

	rec, err := svc.Generate(ctx, alice, models.KindCharacter, "world")
	require.NoError(t, err)
	c := rec.(*models.Character)
	rec, err = svc.Generate(ctx, alice, models.KindLocation, "world")
	require.NoError(t, err)
	l := rec.(*models.Location)
	rec, err = svc.Generate(ctx, bob, models.KindLocation, "world")
	require.NoError(t, err)
	bobs := rec.(*models.Location)

	assert.ErrorIs(t, svc.LinkLocation(ctx, alice, c.ID, ""), ErrValidation)
	assert.ErrorIs(t, svc.LinkLocation(ctx, alice, c.ID, bobs.ID), ErrNotFound, "foreign location")
	assert.ErrorIs(t, svc.LinkLocation(ctx, bob, c.ID, bobs.ID), ErrNotFound, "foreign character")
	require.NoError(t, svc.LinkLocation(ctx, alice, c.ID, l.ID))

	x, y := 10.0, 20.0
	assert.ErrorIs(t, svc.SetCoords(ctx, alice, l.ID, &x, nil), ErrValidation)
	assert.ErrorIs(t, svc.SetCoords(ctx, alice, l.ID, nil, &y), ErrValidation)
	assert.ErrorIs(t, svc.SetCoords(ctx, bob, l.ID, &x, &y), ErrNotFound)
	require.NoError(t, svc.SetCoords(ctx, alice, l.ID, &x, &y))

	assert.ErrorIs(t, svc.SetColor(ctx, alice, models.KindCharacter, c.ID, " "), ErrValidation)
	assert.ErrorIs(t, svc.SetColor(ctx, bob, models.KindCharacter, c.ID, "#123456"), ErrNotFound)
	require.NoError(t, svc.SetColor(ctx, alice, models.KindCharacter, c.ID, "#123456"))

	export, err := svc.Export(ctx, alice)
	require.NoError(t, err)
	require.Len(t, export.Characters, 1)
	require.Len(t, export.Locations, 1)
	assert.Equal(t, l.ID, export.Characters[0].LocationID)
	assert.Equal(t, "#123456", export.Characters[0].Color)
	assert.Equal(t, &models.Coords{X: 10, Y: 20}, export.Locations[0].Coords)
}

func TestGraph(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newWorld(t)
	alice := registerUser(t, store, "alice@example.com")
	bob := registerUser(t, store, "bob@example.com")

	rec, err := svc.Generate(ctx, alice, models.KindCharacter, "world")
	require.NoError(t, err)
	c := rec.(*models.Character)
	rec, err = svc.Generate(ctx, alice, models.KindLocation, "world")
	require.NoError(t, err)
	l := rec.(*models.Location)
	require.NoError(t, svc.LinkLocation(ctx, alice, c.ID, l.ID))
	_, err = svc.Generate(ctx, bob, models.KindCharacter, "world")
	require.NoError(t, err)

	g, err := svc.Graph(ctx, alice)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, GraphNodeData{ID: c.ID, Label: c.Name, Type: "character", Color: "#58a6ff"}, g.Nodes[0].Data)
	assert.Equal(t, "location", g.Nodes[1].Data.Type)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, GraphEdgeData{Source: c.ID, Target: l.ID, Label: "lives in"}, g.Edges[0].Data)

	require.NoError(t, svc.Delete(ctx, alice, models.KindLocation, l.ID))
	g, err = svc.Graph(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	assert.NotNil(t, g.Edges)
}
