package transfo

import (
	"fmt"
	"strings"
)

// ComposedModel chains models that cannot be folded into one matrix.
// The direct relation applies each model in order.
type ComposedModel struct {
	models []Model
}

func newComposed(first, second Model) *ComposedModel {
	c := &ComposedModel{}
	c.push(first)
	c.push(second)
	return c
}

func (c *ComposedModel) push(m Model) {
	if inner, ok := m.(*ComposedModel); ok {
		for _, im := range inner.models {
			c.push(im)
		}
		return
	}
	if m.Kind() == Identity {
		return
	}

	// fold adjacent matrix models as they arrive
	if len(c.models) > 0 {
		last, lastIsMatrix := c.models[len(c.models)-1].(*MatrixModel)
		if next, ok := m.(*MatrixModel); ok && lastIsMatrix {
			c.models[len(c.models)-1] = last.ComposeInverseWithDirectOf(next)
			return
		}
	}
	c.models = append(c.models, m.Clone())
}

// Models returns the chain, in direct order.
func (c *ComposedModel) Models() []Model {
	return c.models
}

func (c *ComposedModel) Kind() Kind {
	return Composed
}

func (c *ComposedModel) String() string {
	parts := make([]string, len(c.models))
	for i, m := range c.models {
		parts[i] = m.String()
	}
	return fmt.Sprintf("%s(%s)", Composed, strings.Join(parts, " -> "))
}

func (c *ComposedModel) Transform(x, y float64) (float64, float64) {
	for _, m := range c.models {
		x, y = m.Transform(x, y)
	}
	return x, y
}

func (c *ComposedModel) InverseTransform(x, y float64) (float64, float64) {
	for i := len(c.models) - 1; i >= 0; i-- {
		x, y = c.models[i].InverseTransform(x, y)
	}
	return x, y
}

func (c *ComposedModel) Clone() Model {
	models := make([]Model, len(c.models))
	for i, m := range c.models {
		models[i] = m.Clone()
	}
	return &ComposedModel{models: models}
}

func (c *ComposedModel) Reverse() {
	n := len(c.models)
	for i := 0; i < n/2; i++ {
		c.models[i], c.models[n-1-i] = c.models[n-1-i], c.models[i]
	}
	for _, m := range c.models {
		m.Reverse()
	}
}

func (c *ComposedModel) ComposeInverseWithDirectOf(other Model) Model {
	result := &ComposedModel{}
	result.push(c)
	result.push(other)

	if len(result.models) == 1 {
		return result.models[0]
	} else if len(result.models) == 0 {
		return NewIdentity()
	}
	return result
}

// Compose folds models left to right with ComposeInverseWithDirectOf.
// The first model is cloned so none of the inputs is modified.
func Compose(models ...Model) Model {
	if len(models) == 0 {
		return NewIdentity()
	}

	result := models[0].Clone()
	for _, m := range models[1:] {
		result = result.ComposeInverseWithDirectOf(m)
	}
	return result
}
