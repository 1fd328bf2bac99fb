// Package mapper converts accounts between the persisted shape (models.Account)
// and the transfer shape (dto.Account).
//
// Conversions are driven by a fixed rule table. New checks that table against
// the fields of both structs, so adding a field to either shape without a rule
// stops the process at startup instead of silently dropping data per request.
package mapper

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hongminglow/guest-account/internal/models"
	"github.com/hongminglow/guest-account/internal/models/dto"
)

// Rule pairs one persisted field with one transfer field.
type Rule struct {
	Persisted string
	Transfer  string

	toTransfer  func(src models.Account, dst *dto.Account)
	toPersisted func(src dto.Account, dst *models.Account)
}

var accountRules = []Rule{
	{
		Persisted:   "ID",
		Transfer:    "ID",
		toTransfer:  func(src models.Account, dst *dto.Account) { dst.ID = src.ID },
		toPersisted: func(src dto.Account, dst *models.Account) { dst.ID = src.ID },
	},
	{
		Persisted:   "Guest",
		Transfer:    "Guest",
		toTransfer:  func(src models.Account, dst *dto.Account) { dst.Guest = src.Guest },
		toPersisted: func(src dto.Account, dst *models.Account) { dst.Guest = src.Guest },
	},
	{
		Persisted:   "CreatedAt",
		Transfer:    "CreatedAt",
		toTransfer:  func(src models.Account, dst *dto.Account) { dst.CreatedAt = src.CreatedAt },
		toPersisted: func(src dto.Account, dst *models.Account) { dst.CreatedAt = src.CreatedAt },
	},
}

// ConfigurationError lists every problem found while validating a rule table.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "mapping configuration invalid: " + strings.Join(e.Problems, "; ")
}

// Mapper converts accounts in both directions. The zero value is not usable;
// construct it with New.
type Mapper struct {
	rules []Rule
}

// New validates the account rule table and returns a ready Mapper.
func New() (*Mapper, error) {
	persisted := reflect.TypeOf(models.Account{})
	transfer := reflect.TypeOf(dto.Account{})
	if err := Validate(persisted, transfer, accountRules); err != nil {
		return nil, err
	}
	return &Mapper{rules: accountRules}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew() *Mapper {
	m, err := New()
	if err != nil {
		panic(err)
	}
	return m
}

// ToTransfer converts a persisted account into its transfer shape.
func (m *Mapper) ToTransfer(src models.Account) dto.Account {
	var dst dto.Account
	for _, r := range m.rules {
		r.toTransfer(src, &dst)
	}
	return dst
}

// ToPersisted converts a transfer account back into its persisted shape.
func (m *Mapper) ToPersisted(src dto.Account) models.Account {
	var dst models.Account
	for _, r := range m.rules {
		r.toPersisted(src, &dst)
	}
	return dst
}

// Validate checks that rules cover every exported field of both struct types
// exactly once, that every rule names existing fields and converts in both
// directions, and that paired fields share a type.
func Validate(persisted, transfer reflect.Type, rules []Rule) error {
	if persisted.Kind() != reflect.Struct || transfer.Kind() != reflect.Struct {
		return &ConfigurationError{Problems: []string{"both shapes must be structs"}}
	}

	pFields := exportedFields(persisted)
	tFields := exportedFields(transfer)
	pSeen := make(map[string]int, len(pFields))
	tSeen := make(map[string]int, len(tFields))

	var problems []string
	for _, r := range rules {
		pf, pok := pFields[r.Persisted]
		tf, tok := tFields[r.Transfer]
		if !pok {
			problems = append(problems, fmt.Sprintf("rule %s->%s: %s has no field %q", r.Persisted, r.Transfer, persisted, r.Persisted))
		}
		if !tok {
			problems = append(problems, fmt.Sprintf("rule %s->%s: %s has no field %q", r.Persisted, r.Transfer, transfer, r.Transfer))
		}
		if r.toTransfer == nil {
			problems = append(problems, fmt.Sprintf("rule %s->%s: missing toTransfer", r.Persisted, r.Transfer))
		}
		if r.toPersisted == nil {
			problems = append(problems, fmt.Sprintf("rule %s->%s: missing toPersisted", r.Persisted, r.Transfer))
		}
		if pok && tok && pf.Type != tf.Type {
			problems = append(problems, fmt.Sprintf("rule %s->%s: type %s does not match %s", r.Persisted, r.Transfer, pf.Type, tf.Type))
		}
		pSeen[r.Persisted]++
		tSeen[r.Transfer]++
	}

	problems = append(problems, coverage(persisted, pFields, pSeen)...)
	problems = append(problems, coverage(transfer, tFields, tSeen)...)

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func coverage(t reflect.Type, fields map[string]reflect.StructField, seen map[string]int) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	for _, name := range names {
		switch n := seen[name]; {
		case n == 0:
			problems = append(problems, fmt.Sprintf("%s.%s has no mapping rule", t, name))
		case n > 1:
			problems = append(problems, fmt.Sprintf("%s.%s is mapped by %d rules", t, name, n))
		}
	}
	return problems
}

func exportedFields(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() {
			out[f.Name] = f
		}
	}
	return out
}
