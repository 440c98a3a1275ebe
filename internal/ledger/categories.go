package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"budget/internal/core"
)

// categories is one scoped collection. Iteration follows insertion order,
// and the JSON object keeps that order, so "first match by name" is stable
// across saves and reloads.
type categories struct {
	order []string
	byID  map[string]*core.Category
}

func newCategories() *categories {
	return &categories{byID: make(map[string]*core.Category)}
}

func (c *categories) len() int { return len(c.order) }

func (c *categories) get(id string) (*core.Category, bool) {
	cat, ok := c.byID[id]
	return cat, ok
}

func (c *categories) add(cat *core.Category) {
	if _, exists := c.byID[cat.ID]; !exists {
		c.order = append(c.order, cat.ID)
	}
	c.byID[cat.ID] = cat
}

func (c *categories) remove(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// findByName returns the first category, in insertion order, named name.
func (c *categories) findByName(name string) (*core.Category, bool) {
	for _, id := range c.order {
		if cat := c.byID[id]; cat.Name == name {
			return cat, true
		}
	}
	return nil, false
}

func (c *categories) each(fn func(*core.Category)) {
	for _, id := range c.order {
		fn(c.byID[id])
	}
}

func (c *categories) list() []core.Category {
	out := make([]core.Category, 0, len(c.order))
	c.each(func(cat *core.Category) { out = append(out, cat.Clone()) })
	return out
}

func (c *categories) clone() *categories {
	out := newCategories()
	c.each(func(cat *core.Category) {
		cp := cat.Clone()
		out.add(&cp)
	})
	return out
}

func (c *categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.byID[id])
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an id → category object in document order. A category
// without an id takes its key.
func (c *categories) UnmarshalJSON(b []byte) error {
	*c = categories{byID: make(map[string]*core.Category)}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var cat core.Category
		if err := dec.Decode(&cat); err != nil {
			return fmt.Errorf("category %s: %w", key, err)
		}
		if cat.ID == "" {
			cat.ID = key
		}
		c.add(&cat)
	}
	_, err = dec.Token()
	return err
}
