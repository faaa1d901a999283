package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lorecrafter/generation"
	"lorecrafter/metrics"
	"lorecrafter/models"
	"lorecrafter/repositories"

	"go.uber.org/zap"
)

// WorldService covers generation and the owner-scoped world operations.
// Every method takes the authenticated owner id; nothing here can reach
// another owner's records.
type WorldService interface {
	Generate(ctx context.Context, ownerID string, kind models.Kind, prompt string) (models.Record, error)
	ListCharacters(ctx context.Context, ownerID string) ([]models.Character, error)
	ListLocations(ctx context.Context, ownerID string) ([]models.Location, error)
	Delete(ctx context.Context, ownerID string, kind models.Kind, id string) error
	LinkLocation(ctx context.Context, ownerID, characterID, locationID string) error
	SetCoords(ctx context.Context, ownerID, locationID string, x, y *float64) error
	SetColor(ctx context.Context, ownerID string, kind models.Kind, id, color string) error
	Export(ctx context.Context, ownerID string) (*WorldExport, error)
	Graph(ctx context.Context, ownerID string) (*GraphData, error)
}

// WorldExport is the full dump of one owner's world.
type WorldExport struct {
	Characters []models.Character `json:"characters"`
	Locations  []models.Location  `json:"locations"`
}

type GraphNodeData struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

type GraphNode struct {
	Data GraphNodeData `json:"data"`
}

type GraphEdgeData struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

type GraphEdge struct {
	Data GraphEdgeData `json:"data"`
}

// GraphData is shaped for Cytoscape.js elements.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

const livesIn = "lives in"

type worldService struct {
	store     repositories.Store // nil when the database is unreachable
	generator generation.Generator
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

var _ WorldService = (*worldService)(nil)

// NewWorldService creates a new WorldService. store may be nil, in which
// case every operation fails with ErrNoDatabase.
func NewWorldService(store repositories.Store, generator generation.Generator, m *metrics.Metrics, log *zap.Logger) WorldService {
	return &worldService{
		store:     store,
		generator: generator,
		metrics:   m,
		log:       log.Named("world"),
		now:       time.Now,
	}
}

func (s *worldService) world(ownerID string) (repositories.WorldRepository, error) {
	if s.store == nil {
		return nil, errNoDatabase
	}
	return s.store.World(ownerID), nil
}

func notFound(kind models.Kind) error {
	return newError(ErrNotFound, kind.Title()+" not found", nil)
}

// Generate calls the generation service once and persists the result.
func (s *worldService) Generate(ctx context.Context, ownerID string, kind models.Kind, prompt string) (models.Record, error) {
	world, err := s.world(ownerID)
	if err != nil {
		return nil, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, newError(ErrValidation, "Prompt is required", nil)
	}

	fields, err := s.generator.Generate(ctx, kind, prompt)
	if err != nil {
		var perr *generation.ParseError
		if errors.As(err, &perr) {
			s.metrics.ObserveGeneration(kind.String(), "parse_error")
			return nil, newError(ErrParse, "Failed to parse LLM response", err)
		}
		s.metrics.ObserveGeneration(kind.String(), "upstream_error")
		return nil, newError(ErrUpstream, "API request failed", err)
	}

	created := s.now().UTC()
	var record models.Record
	switch kind {
	case models.KindCharacter:
		c := generation.Character(fields)
		c.Color = kind.DefaultColor()
		c.CreatedAt = created
		err = world.CreateCharacter(ctx, &c)
		record = &c
	case models.KindLocation:
		l := generation.Location(fields)
		l.Color = kind.DefaultColor()
		l.CreatedAt = created
		l.Coords = nil
		err = world.CreateLocation(ctx, &l)
		record = &l
	default:
		return nil, fmt.Errorf("generate: invalid kind %d", int(kind))
	}
	if err != nil {
		s.metrics.ObserveGeneration(kind.String(), "storage_error")
		return nil, newError(ErrStorage, fmt.Sprintf("Failed to save %s to database", kind), err)
	}

	s.metrics.ObserveGeneration(kind.String(), "ok")
	s.log.Info("Generated record", zap.Stringer("kind", kind), zap.String("owner_id", ownerID))
	return record, nil
}

func (s *worldService) ListCharacters(ctx context.Context, ownerID string) ([]models.Character, error) {
	world, err := s.world(ownerID)
	if err != nil {
		return nil, err
	}
	out, err := world.Characters(ctx)
	if err != nil {
		return nil, newError(ErrStorage, "Failed to fetch characters", err)
	}
	return out, nil
}

func (s *worldService) ListLocations(ctx context.Context, ownerID string) ([]models.Location, error) {
	world, err := s.world(ownerID)
	if err != nil {
		return nil, err
	}
	out, err := world.Locations(ctx)
	if err != nil {
		return nil, newError(ErrStorage, "Failed to fetch locations", err)
	}
	return out, nil
}

// Delete removes an owned record; deleting a location unlinks the owner's
// characters that lived there.
func (s *worldService) Delete(ctx context.Context, ownerID string, kind models.Kind, id string) error {
	world, err := s.world(ownerID)
	if err != nil {
		return err
	}
	if err := world.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(kind)
		}
		return newError(ErrStorage, fmt.Sprintf("Failed to delete %s", kind), err)
	}
	return nil
}

func (s *worldService) LinkLocation(ctx context.Context, ownerID, characterID, locationID string) error {
	world, err := s.world(ownerID)
	if err != nil {
		return err
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return newError(ErrValidation, "location_id is required", nil)
	}

	ok, err := world.LocationExists(ctx, locationID)
	if err != nil {
		return newError(ErrStorage, "Failed to update character", err)
	}
	if !ok {
		return notFound(models.KindLocation)
	}
	if err := world.LinkLocation(ctx, characterID, locationID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(models.KindCharacter)
		}
		return newError(ErrStorage, "Failed to update character", err)
	}
	return nil
}

// SetCoords places a location on the map. Both coordinates are required.
func (s *worldService) SetCoords(ctx context.Context, ownerID, locationID string, x, y *float64) error {
	world, err := s.world(ownerID)
	if err != nil {
		return err
	}
	if x == nil || y == nil {
		return newError(ErrValidation, "x and y coordinates are required", nil)
	}
	if err := world.SetCoords(ctx, locationID, models.Coords{X: *x, Y: *y}); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(models.KindLocation)
		}
		return newError(ErrStorage, "Failed to update location coordinates", err)
	}
	return nil
}

func (s *worldService) SetColor(ctx context.Context, ownerID string, kind models.Kind, id, color string) error {
	world, err := s.world(ownerID)
	if err != nil {
		return err
	}
	color = strings.TrimSpace(color)
	if color == "" {
		return newError(ErrValidation, "color is required", nil)
	}
	if err := world.SetColor(ctx, kind, id, color); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFound(kind)
		}
		return newError(ErrStorage, fmt.Sprintf("Failed to update %s color", kind), err)
	}
	return nil
}

func (s *worldService) Export(ctx context.Context, ownerID string) (*WorldExport, error) {
	characters, err := s.ListCharacters(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	locations, err := s.ListLocations(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &WorldExport{Characters: characters, Locations: locations}, nil
}

// Graph renders the owner's world as nodes and "lives in" edges. Edges to
// locations that are not among the owner's nodes are dropped.
func (s *worldService) Graph(ctx context.Context, ownerID string) (*GraphData, error) {
	w, err := s.Export(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	g := &GraphData{
		Nodes: make([]GraphNode, 0, len(w.Characters)+len(w.Locations)),
		Edges: []GraphEdge{},
	}
	known := make(map[string]struct{}, len(w.Locations))
	for _, l := range w.Locations {
		known[l.ID] = struct{}{}
	}
	for _, c := range w.Characters {
		g.Nodes = append(g.Nodes, GraphNode{Data: GraphNodeData{
			ID: c.ID, Label: c.Name, Type: models.KindCharacter.String(), Color: c.Color,
		}})
		if _, ok := known[c.LocationID]; c.LocationID != "" && ok {
			g.Edges = append(g.Edges, GraphEdge{Data: GraphEdgeData{
				Source: c.ID, Target: c.LocationID, Label: livesIn,
			}})
		}
	}
	for _, l := range w.Locations {
		g.Nodes = append(g.Nodes, GraphNode{Data: GraphNodeData{
			ID: l.ID, Label: l.Name, Type: models.KindLocation.String(), Color: l.Color,
		}})
	}
	return g, nil
}
