// Package sales computes the dashboard aggregates over operations.
package sales

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"elevadorpro/internal/core"
	"elevadorpro/pkg/domain"
)

// Dashboard status buckets.
const (
	StatusConcluida   = "Concluída"
	StatusAguardando  = "Aguardando Peças"
	StatusAndamento   = "Em Andamento"
	StatusNegociacao  = "Em Negociação"
	NoModel           = "—"
	completedFragment = "conclu"
)

// Buckets lists the status buckets in display order.
var Buckets = []string{StatusNegociacao, StatusAndamento, StatusAguardando, StatusConcluida}

// Summary feeds the dashboard cards.
type Summary struct {
	Total       int     `json:"total"`
	Faturamento float64 `json:"faturamento"`
	Pendentes   int     `json:"pendentes"`
	ModeloMais  string  `json:"modeloMais"`
}

// IsOpen reports whether an operation is not yet completed.
func IsOpen(op domain.Operation) bool {
	return !strings.Contains(strings.ToLower(op.Status), completedFragment)
}

// OpenSales keeps the operations that are not completed.
func OpenSales(ops []domain.Operation) []domain.Operation {
	out := make([]domain.Operation, 0, len(ops))
	for _, op := range ops {
		if IsOpen(op) {
			out = append(out, op)
		}
	}
	return out
}

// Bucket maps a free-form status onto one of the dashboard buckets.
func Bucket(status string) string {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, completedFragment):
		return StatusConcluida
	case strings.Contains(s, "aguard"):
		return StatusAguardando
	case strings.Contains(s, "andamento"), strings.Contains(s, "instala"), strings.Contains(s, "produ"):
		return StatusAndamento
	default:
		return StatusNegociacao
	}
}

// ByStatus counts operations per bucket. Buckets without operations are
// omitted.
func ByStatus(ops []domain.Operation) map[string]int {
	out := make(map[string]int)
	for _, op := range ops {
		out[Bucket(op.Status)]++
	}
	return out
}

// ByMonth counts operations per opening month (YYYY-MM). Operations
// without a parseable opening date are skipped.
func ByMonth(ops []domain.Operation) map[string]int {
	out := make(map[string]int)
	for _, op := range ops {
		opened, ok := op.Opened()
		if !ok {
			continue
		}
		out[fmt.Sprintf("%04d-%02d", opened.Year(), int(opened.Month()))]++
	}
	return out
}

// Summarize totals all operations. The most frequent model is resolved
// through the elevator of each operation; operations without a known
// elevator count towards NoModel. Ties go to the model seen first.
func Summarize(ops []domain.Operation, elevators []domain.Elevator) Summary {
	modelOf := make(map[string]string, len(elevators))
	for _, e := range elevators {
		modelOf[e.ID] = e.Modelo
	}
	s := Summary{Total: len(ops), ModeloMais: NoModel}
	counts := make(map[string]int)
	var order []string
	for _, op := range ops {
		s.Faturamento += op.Valor.Float()
		if IsOpen(op) {
			s.Pendentes++
		}
		model := modelOf[op.ElevadorID]
		if model == "" {
			model = NoModel
		}
		if _, seen := counts[model]; !seen {
			order = append(order, model)
		}
		counts[model]++
	}
	best := -1
	for _, model := range order {
		if counts[model] > best {
			s.ModeloMais, best = model, counts[model]
		}
	}
	return s
}

// Dashboard reads the merged collections and computes the aggregates.
type Dashboard struct {
	svc *core.Service
}

// NewDashboard builds a dashboard over svc.
func NewDashboard(svc *core.Service) *Dashboard { return &Dashboard{svc: svc} }

// Open returns the operations still in progress.
func (d *Dashboard) Open(ctx context.Context) ([]domain.Operation, error) {
	ops, err := d.svc.Operations().List(ctx)
	if err != nil {
		return nil, err
	}
	return OpenSales(ops), nil
}

// Status returns the bucket counts.
func (d *Dashboard) Status(ctx context.Context) (map[string]int, error) {
	ops, err := d.svc.Operations().List(ctx)
	if err != nil {
		return nil, err
	}
	return ByStatus(ops), nil
}

// Months returns the per-month counts.
func (d *Dashboard) Months(ctx context.Context) (map[string]int, error) {
	ops, err := d.svc.Operations().List(ctx)
	if err != nil {
		return nil, err
	}
	return ByMonth(ops), nil
}

// Summary loads operations and elevators concurrently and summarizes them.
func (d *Dashboard) Summary(ctx context.Context) (Summary, error) {
	var (
		ops       []domain.Operation
		elevators []domain.Elevator
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ops, err = d.svc.Operations().List(gctx)
		return err
	})
	g.Go(func() (err error) {
		elevators, err = d.svc.Elevators().List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarize(ops, elevators), nil
}
