package actions

import (
	"fmt"

	"github.com/odyssey-erp/crudkit/internal/shared"
)

// AbsoluteURLer is implemented by instances with a canonical detail page.
type AbsoluteURLer interface {
	AbsoluteURL() string
}

// EditURLer is implemented by editable instances.
type EditURLer interface {
	EditURL() string
}

// DeleteURLer is implemented by deletable instances.
type DeleteURLer interface {
	DeleteURL() string
}

// CopyURLer is implemented by instances that can seed a new record.
type CopyURLer interface {
	CopyURL() string
}

// EditActioner lets an instance contribute extra buttons to its edit page.
type EditActioner interface {
	EditActions() []Action
}

// Actioner lets an instance replace the default row actions.
type Actioner interface {
	Actions() []Action
}

// DetailOf is Detail for instances only known at runtime.
// It panics when instance has no detail page: that is a wiring mistake, not a data error.
func DetailOf(instance any) Action {
	v, ok := instance.(AbsoluteURLer)
	if !ok {
		panic(notImplemented(instance, "AbsoluteURL"))
	}
	return Detail(v)
}

// EditOf is Edit for instances only known at runtime. It panics when instance is not editable.
func EditOf(instance any) Action {
	v, ok := instance.(EditURLer)
	if !ok {
		panic(notImplemented(instance, "EditURL"))
	}
	return Edit(v)
}

// DeleteOf is Delete for instances only known at runtime. It panics when instance is not deletable.
func DeleteOf(instance any) Action {
	v, ok := instance.(DeleteURLer)
	if !ok {
		panic(notImplemented(instance, "DeleteURL"))
	}
	return Delete(v)
}

// CopyOf is Copy for instances only known at runtime. It panics when instance cannot be copied.
func CopyOf(instance any) Action {
	v, ok := instance.(CopyURLer)
	if !ok {
		panic(notImplemented(instance, "CopyURL"))
	}
	return Copy(v)
}

// InstanceActions returns the row actions of instance: its own Actions when it declares them,
// otherwise a copy action when it can be copied.
func InstanceActions(instance any) []Action {
	if v, ok := instance.(Actioner); ok {
		return v.Actions()
	}
	if v, ok := instance.(CopyURLer); ok {
		return []Action{Copy(v)}
	}
	return nil
}

// RowActions returns the edit/delete actions an instance supports, in that order.
func RowActions(instance any) []Action {
	var out []Action
	if v, ok := instance.(EditURLer); ok {
		out = append(out, Edit(v))
	}
	if v, ok := instance.(DeleteURLer); ok {
		out = append(out, Delete(v))
	}
	return out
}

func notImplemented(instance any, method string) error {
	return fmt.Errorf("actions: %T must implement %s() string: %w", instance, method, shared.ErrNotImplemented)
}
