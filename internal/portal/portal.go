// Package portal implements the public order lookup: a customer enters a
// CPF/CNPJ and optionally a product code and gets their order history.
package portal

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"elevadorpro/internal/core"
	"elevadorpro/internal/format"
	"elevadorpro/pkg/domain"
)

// ErrInvalidDocument is returned when the document has no digits.
var ErrInvalidDocument = errors.New("informe um CPF/CNPJ válido")

// Badge classes used by the portal UI.
const (
	BadgeGreen  = "b-green"
	BadgeBlue   = "b-blue"
	BadgeYellow = "b-yellow"
	BadgeOrange = "b-orange"
)

var (
	doneRe     = regexp.MustCompile(`(?i)conclu`)
	progressRe = regexp.MustCompile(`(?i)andamento|instala|produ`)
	waitingRe  = regexp.MustCompile(`(?i)aguard|peças|proposta`)
)

// BadgeFor returns the badge class of a status.
func BadgeFor(status string) string {
	switch {
	case doneRe.MatchString(status):
		return BadgeGreen
	case progressRe.MatchString(status):
		return BadgeBlue
	case waitingRe.MatchString(status):
		return BadgeYellow
	default:
		return BadgeOrange
	}
}

// Order is one operation as shown to the customer.
type Order struct {
	ID           string  `json:"id"`
	Produto      string  `json:"produto"`
	ElevadorID   string  `json:"elevadorId,omitempty"`
	Status       string  `json:"status"`
	Badge        string  `json:"badge"`
	DataAbertura string  `json:"dataAbertura"`
	DataLimite   string  `json:"dataLimite"`
	Valor        float64 `json:"valor"`
	ValorTexto   string  `json:"valorTexto"`
	Descricao    string  `json:"descricao,omitempty"`
}

// Result is the lookup outcome. Found is false when no client has the
// document.
type Result struct {
	Found  bool           `json:"found"`
	Client *domain.Client `json:"client,omitempty"`
	Orders []Order        `json:"orders"`
}

// Query holds the lookup inputs.
type Query struct {
	Document string
	Product  string // optional elevator id
}

// Portal answers lookups from the merged collections.
type Portal struct {
	svc *core.Service
}

// New builds a portal over svc.
func New(svc *core.Service) *Portal { return &Portal{svc: svc} }

// Lookup finds the client whose document digits equal the query's and
// returns their orders, most recent first.
func (p *Portal) Lookup(ctx context.Context, q Query) (Result, error) {
	doc := domain.OnlyDigits(q.Document)
	if doc == "" {
		return Result{}, ErrInvalidDocument
	}
	var (
		clients   []domain.Client
		ops       []domain.Operation
		elevators []domain.Elevator
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { clients, err = p.svc.Clients().List(gctx); return err })
	g.Go(func() (err error) { ops, err = p.svc.Operations().List(gctx); return err })
	g.Go(func() (err error) { elevators, err = p.svc.Elevators().List(gctx); return err })
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Match(doc, q.Product, clients, ops, elevators), nil
}

// Match is the pure form of Lookup over already loaded collections.
func Match(doc, product string, clients []domain.Client, ops []domain.Operation, elevators []domain.Elevator) Result {
	res := Result{Orders: []Order{}}
	doc = domain.OnlyDigits(doc)
	for i := range clients {
		if domain.OnlyDigits(clients[i].Document()) == doc {
			c := clients[i]
			res.Client = &c
			res.Found = true
			break
		}
	}
	if !res.Found {
		return res
	}
	modelOf := make(map[string]string, len(elevators))
	for _, e := range elevators {
		modelOf[e.ID] = e.Modelo
	}
	product = strings.TrimSpace(product)

	var mine []domain.Operation
	for _, op := range ops {
		if op.ClienteID != res.Client.ID {
			continue
		}
		if product != "" && !strings.EqualFold(op.ElevadorID, product) {
			continue
		}
		mine = append(mine, op)
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return sortDate(mine[i]).After(sortDate(mine[j]))
	})
	for _, op := range mine {
		name := modelOf[op.ElevadorID]
		if name == "" {
			name = format.Placeholder
		}
		res.Orders = append(res.Orders, Order{
			ID:           op.ID,
			Produto:      name,
			ElevadorID:   op.ElevadorID,
			Status:       op.Status,
			Badge:        BadgeFor(op.Status),
			DataAbertura: format.Date(op.DataAbertura),
			DataLimite:   format.Date(op.DataLimite),
			Valor:        op.Valor.Float(),
			ValorTexto:   format.Money(op.Valor.Float()),
			Descricao:    op.Descricao,
		})
	}
	return res
}

// sortDate prefers the deadline, then the opening date, then the epoch.
func sortDate(op domain.Operation) time.Time {
	if t, ok := op.Deadline(); ok {
		return t
	}
	if t, ok := op.Opened(); ok {
		return t
	}
	return time.Unix(0, 0)
}
