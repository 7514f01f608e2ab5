// Package form defines the destination metadata is written into and two
// implementations of it: an in-memory form and a YAML file backed form.
package form

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// FieldSet is a set of named, settable value slots.
type FieldSet interface {
	Exists(name string) bool
	IsEmpty(name string) bool
	Value(name string) string
	Set(name, value string)
}

// Sink is a form: scalar fields plus repeating groups of rows.
type Sink interface {
	FieldSet
	HasGroup(group string) bool
	// Rows returns the ids of the rows of group in display order.
	Rows(group string) []string
	// AppendRow adds an empty row to group. The row may only become visible
	// through Rows once AppendRow returns.
	AppendRow(ctx context.Context, group string) error
	// Row returns the fields of one row, or nil when id is unknown.
	Row(group, id string) FieldSet
}

type row struct {
	id     string
	fields map[string]string
}

type group struct {
	template []string
	rows     []*row
}

// Memory is a Sink held in memory. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	fields map[string]string
	groups map[string]*group
	nextID int
}

// NewMemory creates a form with the given scalar fields, all empty.
func NewMemory(fields ...string) *Memory {
	m := &Memory{
		fields: make(map[string]string, len(fields)),
		groups: make(map[string]*group),
	}
	for _, name := range fields {
		m.fields[name] = ""
	}
	return m
}

// FromValues creates a form from a snapshot.
func FromValues(v *models.FormValues) *Memory {
	m := NewMemory()
	if v == nil {
		return m
	}
	for name, value := range v.Fields {
		m.fields[name] = value
	}
	for name, fields := range v.GroupFields {
		m.DefineGroup(name, fields...)
	}
	for name, rows := range v.Groups {
		g := m.ensureGroup(name)
		for _, values := range rows {
			r := m.newRow(g)
			for k, val := range values {
				r.fields[k] = val
				if !contains(g.template, k) {
					g.template = append(g.template, k)
				}
			}
		}
		sort.Strings(g.template)
	}
	return m
}

// DefineGroup declares a repeating group whose new rows carry fields.
func (m *Memory) DefineGroup(name string, fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.ensureGroup(name)
	for _, f := range fields {
		if !contains(g.template, f) {
			g.template = append(g.template, f)
		}
	}
}

func (m *Memory) ensureGroup(name string) *group {
	g, ok := m.groups[name]
	if !ok {
		g = &group{}
		m.groups[name] = g
	}
	return g
}

func (m *Memory) newRow(g *group) *row {
	m.nextID++
	r := &row{id: fmt.Sprintf("row-%d", m.nextID), fields: make(map[string]string, len(g.template))}
	for _, f := range g.template {
		r.fields[f] = ""
	}
	g.rows = append(g.rows, r)
	return r
}

func (m *Memory) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.fields[name]
	return ok
}

func (m *Memory) IsEmpty(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.TrimSpace(m.fields[name]) == ""
}

// Set writes an existing field; unknown fields are ignored.
func (m *Memory) Set(name, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fields[name]; ok {
		m.fields[name] = value
	}
}

// Value returns the current value of a field.
func (m *Memory) Value(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields[name]
}

func (m *Memory) HasGroup(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.groups[name]
	return ok
}

func (m *Memory) Rows(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[name]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(g.rows))
	for _, r := range g.rows {
		ids = append(ids, r.id)
	}
	return ids
}

func (m *Memory) AppendRow(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[name]
	if !ok {
		return fmt.Errorf("unknown group %q", name)
	}
	m.newRow(g)
	return nil
}

func (m *Memory) Row(name, id string) FieldSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[name]
	if !ok {
		return nil
	}
	for _, r := range g.rows {
		if r.id == id {
			return &rowFields{mu: &m.mu, row: r}
		}
	}
	return nil
}

// Values returns a snapshot of the form.
func (m *Memory) Values() *models.FormValues {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := &models.FormValues{Fields: make(map[string]string, len(m.fields))}
	for k, val := range m.fields {
		v.Fields[k] = val
	}
	if len(m.groups) == 0 {
		return v
	}

	v.Groups = make(map[string][]map[string]string, len(m.groups))
	v.GroupFields = make(map[string][]string, len(m.groups))
	for name, g := range m.groups {
		rows := make([]map[string]string, 0, len(g.rows))
		for _, r := range g.rows {
			values := make(map[string]string, len(r.fields))
			for k, val := range r.fields {
				values[k] = val
			}
			rows = append(rows, values)
		}
		v.Groups[name] = rows
		v.GroupFields[name] = append([]string(nil), g.template...)
	}
	return v
}

type rowFields struct {
	mu  *sync.Mutex
	row *row
}

func (r *rowFields) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.row.fields[name]
	return ok
}

func (r *rowFields) IsEmpty(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.TrimSpace(r.row.fields[name]) == ""
}

func (r *rowFields) Value(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.row.fields[name]
}

func (r *rowFields) Set(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.row.fields[name]; ok {
		r.row.fields[name] = value
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
