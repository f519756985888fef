package common

import (
	"fmt"
	"strings"
)

// NewMutation creates an empty mutation
func NewMutation() *Mutation {
	return &Mutation{}
}

// SetSetNquads sets the RDF triples to add
func (m *Mutation) SetSetNquads(set string) {
	m.SetNquads = []byte(set)
}

// SetDeleteNquads sets the RDF triples to delete
func (m *Mutation) SetDeleteNquads(del string) {
	m.DelNquads = []byte(del)
}

// SetCond sets the condition of an upsert block (e.g. "@if(eq(len(u), 0))")
func (m *Mutation) SetCond(cond string) {
	m.Cond = cond
}

// String returns a multi line, human readable representation of the mutation
func (m *Mutation) String() string {
	var sb strings.Builder

	addField := func(name string, value any) {
		sb.WriteString(fmt.Sprintf("  %s: %v\n", name, value))
	}

	sb.WriteString("Mutation {\n")
	addField("set_json", string(m.SetJson))
	addField("delete_json", string(m.DeleteJson))
	addField("set_nquads", string(m.SetNquads))
	addField("del_nquads", string(m.DelNquads))
	addField("set", formatNQuads(m.Set))
	addField("del", formatNQuads(m.Del))
	addField("cond", m.Cond)
	addField("commit_now", m.CommitNow)
	sb.WriteString("}\n")

	return sb.String()
}

func formatNQuads(quads []*NQuad) string {
	parts := make([]string, 0, len(quads))
	for _, q := range quads {
		if q == nil {
			continue
		}
		obj := q.ObjectId
		if obj == "" {
			obj = fmt.Sprintf("%q", q.ObjectValue)
			if q.Lang != "" {
				obj += "@" + q.Lang
			}
		}
		parts = append(parts, fmt.Sprintf("<%s> <%s> %s", q.Subject, q.Predicate, obj))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
