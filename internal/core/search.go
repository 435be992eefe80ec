package core

import (
	"context"
	"strings"

	"elevadorpro/internal/format"
	"elevadorpro/pkg/domain"
)

// SearchClients returns clients whose name, contact or document contains
// q, ignoring case and accents. Document matching also compares digits only, so
// "12.345" finds "12345678000190".
func (s *Service) SearchClients(ctx context.Context, q string) ([]domain.Client, error) {
	clients, err := s.Clients().List(ctx)
	if err != nil {
		return nil, err
	}
	term := normalize(q)
	digits := domain.OnlyDigits(q)
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if term == "" ||
			contains(term, c.Nome, c.Responsavel, c.Document()) ||
			(digits != "" && strings.Contains(domain.OnlyDigits(c.Document()), digits)) {
			out = append(out, c)
		}
	}
	return out, nil
}

// SearchElevators filters products by model or id.
func (s *Service) SearchElevators(ctx context.Context, q string) ([]domain.Elevator, error) {
	elevators, err := s.Elevators().List(ctx)
	if err != nil {
		return nil, err
	}
	term := normalize(q)
	out := make([]domain.Elevator, 0, len(elevators))
	for _, e := range elevators {
		if term == "" || contains(term, e.Modelo, e.ID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SearchOperations filters orders by free text over id, description,
// client name and elevator id. A non-empty status must match exactly.
func (s *Service) SearchOperations(ctx context.Context, q, status string) ([]domain.Operation, error) {
	ops, err := s.Operations().List(ctx)
	if err != nil {
		return nil, err
	}
	clients, err := s.Clients().List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Nome
	}
	term := normalize(q)
	out := make([]domain.Operation, 0, len(ops))
	for _, op := range ops {
		if status != "" && op.Status != status {
			continue
		}
		if term != "" && !contains(term, op.ID, op.Descricao, names[op.ClienteID], op.ElevadorID) {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func normalize(s string) string { return format.Fold(strings.TrimSpace(s)) }

func contains(term string, fields ...string) bool {
	return strings.Contains(format.Fold(strings.Join(fields, " ")), term)
}
