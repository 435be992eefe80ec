package sales

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"elevadorpro/internal/core"
	"elevadorpro/internal/infra/persistence/memory"
	seedmem "elevadorpro/internal/infra/seedstore/memory"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seed"
	"elevadorpro/pkg/domain"
)

var ops = []domain.Operation{
	{ID: "OP-1", Status: "Concluída", ElevadorID: "ELV-1", DataAbertura: "2024-01-15", Valor: 100},
	{ID: "OP-2", Status: "Aguardando peças", ElevadorID: "ELV-2", DataAbertura: "2024-01-20T10:00:00Z", Valor: 50.5},
	{ID: "OP-3", Status: "Em instalação", ElevadorID: "ELV-2", DataAbertura: "2024-02-01"},
	{ID: "OP-4", Status: "Proposta enviada", DataAbertura: "not a date", Valor: 10},
	{ID: "OP-5", Status: "Em produção", ElevadorID: "ELV-1", DataAbertura: ""},
}

var elevators = []domain.Elevator{{ID: "ELV-1", Modelo: "Gen2"}, {ID: "ELV-2", Modelo: "MRL"}}

func TestOpenSales(t *testing.T) {
	open := OpenSales(ops)
	if len(open) != 4 || open[0].ID != "OP-2" {
		t.Fatalf("open sales = %v", open)
	}
	if IsOpen(domain.Operation{Status: "CONCLUÍDO"}) {
		t.Fatalf("completion check must ignore case")
	}
}

func TestByStatus(t *testing.T) {
	want := map[string]int{StatusConcluida: 1, StatusAguardando: 1, StatusAndamento: 2, StatusNegociacao: 1}
	if diff := cmp.Diff(want, ByStatus(ops)); diff != "" {
		t.Fatalf("by status (-want +got):\n%s", diff)
	}
}

func TestByMonth(t *testing.T) {
	want := map[string]int{"2024-01": 2, "2024-02": 1}
	if diff := cmp.Diff(want, ByMonth(ops)); diff != "" {
		t.Fatalf("by month (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(ops, elevators)
	want := Summary{Total: 5, Faturamento: 160.5, Pendentes: 4, ModeloMais: "Gen2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
	if empty := Summarize(nil, nil); empty.ModeloMais != NoModel || empty.Total != 0 {
		t.Fatalf("empty summary = %+v", empty)
	}
}

func TestDashboardReadsMergedView(t *testing.T) {
	ctx := context.Background()
	src := seedmem.New()
	src.PutString("operations.json", `[{"id":"OP-0001","status":"Em negociação","elevadorId":"ELV-0001","valor":"1000","dataAbertura":"2024-04-01"}]`)
	src.PutString("elevators.json", `[{"id":"ELV-0001","modelo":"Gen2"}]`)
	engine := core.NewEngine(seed.NewReader(src), overlay.NewStore(memory.NewStore()))
	d := NewDashboard(core.NewService(engine))

	if _, err := engine.Update(ctx, domain.CollectionOperations, domain.Record{"id": "OP-0001", "status": "Concluída"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	summary, err := d.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Pendentes != 0 || summary.Faturamento != 1000 || summary.ModeloMais != "Gen2" {
		t.Fatalf("summary = %+v", summary)
	}
	open, _ := d.Open(ctx)
	status, _ := d.Status(ctx)
	months, _ := d.Months(ctx)
	if len(open) != 0 || status[StatusConcluida] != 1 || months["2024-04"] != 1 {
		t.Fatalf("open=%v status=%v months=%v", open, status, months)
	}
}
