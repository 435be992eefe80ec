package domain

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Field error codes. Presentation layers translate them into messages.
const (
	CodeRequired = "required"
	CodeEmail    = "email"
	CodeDate     = "date"
	CodeNumber   = "number"
	CodeType     = "type"
)

// FieldError reports one invalid field.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// ValidationError aggregates field errors for a record write.
type ValidationError struct {
	Collection Collection
	Fields     []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Code)
	}
	return "invalid " + string(e.Collection) + " record: " + strings.Join(parts, ", ")
}

// Has reports whether field failed with code.
func (e *ValidationError) Has(field, code string) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Code == code {
			return true
		}
	}
	return false
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// IsEmail applies the same loose check the dashboard forms used.
func IsEmail(s string) bool { return emailPattern.MatchString(s) }

var requiredFields = map[Collection][]string{
	CollectionClients:    {"nome", "cpfCnpj", "responsavel", "telefone", "email", "endereco"},
	CollectionElevators:  {"modelo", "capacidadeKg", "velocidadeMps", "preco"},
	CollectionOperations: {"clienteId", "dataAbertura", "descricao"},
	CollectionUsers:      {"email", "senha", "role"},
}

var numericFields = map[Collection][]string{
	CollectionElevators:  {"capacidadeKg", "velocidadeMps", "preco"},
	CollectionOperations: {"valor"},
}

// textFields are decoded into string struct fields and so must hold JSON
// strings or null. The id is left out because writes normalize it.
var textFields = map[Collection][]string{
	CollectionClients:    {"nome", "cpfCnpj", "cnpj", "responsavel", "telefone", "email", "endereco"},
	CollectionElevators:  {"modelo"},
	CollectionOperations: {"tipoId", "tipoOperacao", "status", "prioridade", "clienteId", "elevadorId", "responsavelId", "responsavelTecnico", "dataAbertura", "dataLimite", "descricao"},
	CollectionUsers:      {"nome", "email", "senha", "role"},
}

// RequiredFields lists the fields a collection write must carry.
func RequiredFields(c Collection) []string {
	return append([]string(nil), requiredFields[c]...)
}

// Validate checks rec against the rules of collection c. It returns nil or
// a *ValidationError.
func Validate(c Collection, rec Record) error {
	var errs []FieldError
	add := func(field, code string) { errs = append(errs, FieldError{Field: field, Code: code}) }

	mistyped := make(map[string]bool)
	for _, field := range textFields[c] {
		switch rec[field].(type) {
		case nil, string:
		default:
			mistyped[field] = true
			add(field, CodeType)
		}
	}
	for _, field := range requiredFields[c] {
		if mistyped[field] {
			continue
		}
		if strings.TrimSpace(fieldText(c, rec, field)) == "" {
			add(field, CodeRequired)
		}
	}
	for _, field := range numericFields[c] {
		if _, ok := rec[field]; !ok {
			continue
		}
		raw, err := json.Marshal(rec[field])
		var n Number
		if err != nil || n.UnmarshalJSON(raw) != nil {
			add(field, CodeNumber)
		}
	}

	switch c {
	case CollectionClients, CollectionUsers:
		if email := strings.TrimSpace(rec.String("email")); email != "" && !mistyped["email"] && !IsEmail(email) {
			add("email", CodeEmail)
		}
	case CollectionOperations:
		if rec.String("tipoId") == "" && rec.String("tipoOperacao") == "" {
			add("tipoId", CodeRequired)
		}
		for _, field := range []string{"dataAbertura", "dataLimite"} {
			if v := rec.String(field); v != "" && !mistyped[field] {
				if _, ok := ParseDate(v); !ok {
					add(field, CodeDate)
				}
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationError{Collection: c, Fields: errs}
}

func fieldText(c Collection, rec Record, field string) string {
	v := rec.String(field)
	if v == "" && c == CollectionClients && field == "cpfCnpj" {
		return rec.String("cnpj")
	}
	return v
}
