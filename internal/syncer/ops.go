package syncer

import "envdesk/internal/model"

// Direction is a single-step move within a value list.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

func (c *Controller) AddVariable(name string) error {
	return c.Mutate(model.AddVariable(name))
}

func (c *Controller) DeleteVariable(name string) error {
	return c.Mutate(model.DeleteVariable(name, nil))
}

// SetValues replaces the whole value list of an existing variable.
func (c *Controller) SetValues(name string, values []string) error {
	return c.Mutate(model.ModifyVariable(name, values))
}

func (c *Controller) AppendValue(name, value string) error {
	return c.Mutate(model.AppendValue(name, value))
}

func (c *Controller) ModifyValue(name string, index int, value string) error {
	return c.Mutate(model.ModifyValue(name, index, "", value))
}

func (c *Controller) DeleteValue(name string, index int) error {
	return c.Mutate(model.DeleteValue(name, index, ""))
}

func (c *Controller) ReorderValue(name string, from, to int) error {
	return c.Mutate(model.ReorderValue(name, from, to, ""))
}

// MoveValue moves the value at index one place up or down.
func (c *Controller) MoveValue(name string, index int, dir Direction) error {
	return c.ReorderValue(name, index, index+int(dir))
}
