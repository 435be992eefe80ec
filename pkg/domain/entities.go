package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Role values carried by users.
const (
	RoleAdmin       = "admin"
	RoleGerente     = "gerente"
	RoleFuncionario = "funcionario"
)

// Number is a numeric field that tolerates string encodings such as "1200"
// or "1.5", which form submissions and older seed files contain.
type Number float64

// UnmarshalJSON accepts JSON numbers, numeric strings, empty strings and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Client is a customer of the elevator business.
type Client struct {
	ID          string `json:"id"`
	Nome        string `json:"nome"`
	CPFCNPJ     string `json:"cpfCnpj"`
	Responsavel string `json:"responsavel,omitempty"`
	Telefone    string `json:"telefone,omitempty"`
	Email       string `json:"email,omitempty"`
	Endereco    string `json:"endereco,omitempty"`
	// LegacyCNPJ is read from older seeds that predate cpfCnpj.
	LegacyCNPJ string `json:"cnpj,omitempty"`
}

// Document returns the CPF/CNPJ, falling back to the legacy field.
func (c Client) Document() string {
	if c.CPFCNPJ != "" {
		return c.CPFCNPJ
	}
	return c.LegacyCNPJ
}

// Elevator is a catalog product.
type Elevator struct {
	ID            string `json:"id"`
	Modelo        string `json:"modelo"`
	CapacidadeKg  Number `json:"capacidadeKg"`
	VelocidadeMps Number `json:"velocidadeMps"`
	Preco         Number `json:"preco"`
}

// Operation is a sale or work order.
type Operation struct {
	ID                 string `json:"id"`
	TipoID             string `json:"tipoId,omitempty"`
	TipoOperacao       string `json:"tipoOperacao,omitempty"`
	Status             string `json:"status"`
	Prioridade         string `json:"prioridade,omitempty"`
	ClienteID          string `json:"clienteId"`
	ElevadorID         string `json:"elevadorId,omitempty"`
	ResponsavelID      string `json:"responsavelId,omitempty"`
	ResponsavelTecnico string `json:"responsavelTecnico,omitempty"`
	DataAbertura       string `json:"dataAbertura,omitempty"`
	DataLimite         string `json:"dataLimite,omitempty"`
	Descricao          string `json:"descricao,omitempty"`
	Valor              Number `json:"valor,omitempty"`
}

// Opened parses DataAbertura.
func (o Operation) Opened() (time.Time, bool) { return ParseDate(o.DataAbertura) }

// Deadline parses DataLimite.
func (o Operation) Deadline() (time.Time, bool) { return ParseDate(o.DataLimite) }

// User is a dashboard account.
type User struct {
	ID    string `json:"id"`
	Nome  string `json:"nome,omitempty"`
	Email string `json:"email"`
	Senha string `json:"senha,omitempty"`
	Role  string `json:"role"`
}

// Public returns the user without its password.
func (u User) Public() User {
	u.Senha = ""
	return u
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate accepts the ISO variants found in seed files plus the pt-BR
// dd/mm/yyyy form.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OnlyDigits strips everything but ASCII digits, used to compare CPF/CNPJ
// values typed with or without punctuation.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
