package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"elevadorpro/pkg/domain"
)

const testClients = `[
	{"id":"CLI-0001","nome":"Construtora Alfa","cpfCnpj":"12.345.678/0001-90","responsavel":"Ana","telefone":"1","email":"a@alfa.com","endereco":"Rua 1"},
	{"id":"CLI-0002","nome":"Beta Residencial","cnpj":"98765432000111","responsavel":"Bruno","telefone":"2","email":"b@beta.com","endereco":"Rua 2"}
]`

func newService(t *testing.T) (*Service, fixture) {
	t.Helper()
	f := newFixture(t, map[domain.Collection]string{
		domain.CollectionClients:    testClients,
		domain.CollectionElevators:  `[{"id":"ELV-0001","modelo":"Gen2 Comfort","capacidadeKg":630,"velocidadeMps":1,"preco":"98000"}]`,
		domain.CollectionOperations: `[{"id":"OP-0001","tipoId":"venda","status":"Em Andamento","clienteId":"CLI-0002","elevadorId":"ELV-0001","dataAbertura":"2024-03-02","descricao":"Torre B"}]`,
	})
	clock := func() time.Time { return time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC) }
	return NewService(f.engine, WithClock(clock)), f
}

func TestServiceCreateAppliesOperationDefaults(t *testing.T) {
	svc, _ := newService(t)
	rec, err := svc.Create(context.Background(), domain.CollectionOperations, domain.Record{
		"tipoId": "manutencao", "clienteId": "CLI-0001", "descricao": "Revisão",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID() != "OP-0002" || rec.String("status") != "Aberta" || rec.String("prioridade") != "Média" || rec.String("dataAbertura") != "2024-05-06" {
		t.Fatalf("defaults not applied: %v", rec)
	}
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, domain.CollectionClients, domain.Record{"nome": "X", "email": "bad"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !verr.Has("email", domain.CodeEmail) || !verr.Has("telefone", domain.CodeRequired) {
		t.Fatalf("unexpected fields %+v", verr.Fields)
	}

	// a partial update is validated against the merged record
	if _, err := svc.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-0001", "telefone": "99"}); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	if _, err := svc.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-0001", "email": "nope"}); !errors.As(err, &verr) {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, domain.Collection("bogus"), domain.Record{}); !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestServiceRejectsNonTextFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, domain.CollectionClients, domain.Record{
		"nome": "Acme", "cpfCnpj": 12345678000190.0, "responsavel": "Ana",
		"telefone": "1", "email": "a@acme.com", "endereco": "Rua 3",
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("cpfCnpj", domain.CodeType) {
		t.Fatalf("expected cpfCnpj type error, got %v", err)
	}
	if _, err := svc.Update(ctx, domain.CollectionOperations, domain.Record{"id": "OP-0001", "clienteId": 5.0}); !errors.As(err, &verr) || !verr.Has("clienteId", domain.CodeType) {
		t.Fatalf("expected clienteId type error, got %v", err)
	}
	clients, err := svc.Clients().List(ctx)
	if err != nil || len(clients) != 2 {
		t.Fatalf("typed list after rejected writes: %v %v", clients, err)
	}
	if _, err := svc.Operations().List(ctx); err != nil {
		t.Fatalf("typed operations list: %v", err)
	}
}

func TestServiceUpdateOfRemovedRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	if err := svc.Remove(ctx, domain.CollectionClients, "CLI-0002"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-0002", "telefone": "99"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a partial patch, got %v", err)
	}
	// an id unknown to both sides is still validated as a full record
	var verr *domain.ValidationError
	if _, err := svc.Update(ctx, domain.CollectionClients, domain.Record{"id": "CLI-0042", "telefone": "99"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for a new id, got %v", err)
	}
}

func TestRepositoriesAreTyped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	elevators, err := svc.Elevators().List(ctx)
	if err != nil || len(elevators) != 1 || elevators[0].Preco != 98000 {
		t.Fatalf("elevators = %+v err %v", elevators, err)
	}
	created, err := svc.Elevators().Create(ctx, domain.Elevator{Modelo: "MRL", CapacidadeKg: 450, VelocidadeMps: 1, Preco: 75000})
	if err != nil || created.ID != "ELV-0002" {
		t.Fatalf("created %+v err %v", created, err)
	}
	var changes int
	unsubscribe := svc.Elevators().OnChange(func() { changes++ })
	defer unsubscribe()
	created.Preco = 80000
	if _, err := svc.Elevators().Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.Elevators().Get(ctx, "ELV-0002")
	if got.Preco != 80000 || changes != 1 {
		t.Fatalf("got %+v changes %d", got, changes)
	}
	if err := svc.Elevators().Remove(ctx, "ELV-0002"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Elevators().Get(ctx, "ELV-0002"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		q    string
		want []string
	}{
		{q: "", want: []string{"CLI-0001", "CLI-0002"}},
		{q: "alfa", want: []string{"CLI-0001"}},
		{q: "BRUNO", want: []string{"CLI-0002"}},
		{q: "98765", want: []string{"CLI-0002"}},
		{q: "345.678", want: []string{"CLI-0001"}},
	}
	for _, tt := range tests {
		clients, err := svc.SearchClients(ctx, tt.q)
		if err != nil {
			t.Fatalf("search %q: %v", tt.q, err)
		}
		var got []string
		for _, c := range clients {
			got = append(got, c.ID)
		}
		if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
			t.Fatalf("search %q = %v, want %v", tt.q, got, tt.want)
		}
	}

	elevators, _ := svc.SearchElevators(ctx, "gen2")
	if len(elevators) != 1 {
		t.Fatalf("elevator search = %v", elevators)
	}
	ops, _ := svc.SearchOperations(ctx, "beta", "")
	if len(ops) != 1 || ops[0].ID != "OP-0001" {
		t.Fatalf("operation search by client name = %v", ops)
	}
	ops, _ = svc.SearchOperations(ctx, "", "Concluída")
	if len(ops) != 0 {
		t.Fatalf("status filter should exclude, got %v", ops)
	}
}
