package nasc

import (
	"fmt"
	"reflect"
	"strings"
)

// tagOptions represents parsed options from an inject tag.
type tagOptions struct {
	skip     bool     // Don't inject this field
	optional bool     // Leave the field alone if nothing resolves
	names    []string // Qualifiers; more than one is a configuration error
}

// parseInjectTag parses an inject struct tag and returns options.
// Supported formats:
//   - `inject:""` - basic injection
//   - `inject:"optional"` - optional injection
//   - `inject:"name=foo"` - qualified binding
//   - `inject:"optional,name=foo"` - combined options
//   - `inject:"-"` - never injected
func parseInjectTag(tag string) tagOptions {
	opts := tagOptions{}

	if tag == "-" {
		opts.skip = true
		return opts
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)

		switch {
		case part == "optional":
			opts.optional = true
		case strings.HasPrefix(part, "name="):
			if name := strings.TrimPrefix(part, "name="); name != "" {
				opts.names = append(opts.names, name)
			}
		}
	}

	return opts
}

// InjectMembers sets every exported struct field tagged `inject` from the container.
// The field type and its `name=` qualifier form the binding key.
//
// Example:
//
//	type IngestionSuite struct {
//	    Client   *cluster.HTTPAdminClient `inject:""`
//	    Fixture  string                   `inject:"name=fixture"`
//	    Metrics  MetricsSink              `inject:"optional"`
//	}
//
//	suite := &IngestionSuite{}
//	err := container.InjectMembers(suite)
func (c *Container) InjectMembers(instance interface{}) error {
	if instance == nil {
		return fmt.Errorf("cannot inject members into nil instance")
	}

	value := reflect.ValueOf(instance)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return fmt.Errorf("InjectMembers requires a non-nil pointer to struct, got %T", instance)
	}
	if value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("InjectMembers requires a pointer to struct, got pointer to %v", value.Elem().Kind())
	}

	return c.injectMembers(value, c.path)
}

func (c *Container) injectMembers(ptr reflect.Value, path []Key) error {
	structValue := ptr.Elem()
	structType := structValue.Type()

	for _, field := range c.reflectionCache.getFieldInfo(structType) {
		if err := c.injectField(structType, structValue.Field(field.index), field, path); err != nil {
			return fmt.Errorf("failed to inject field %s.%s: %w", structType.Name(), field.name, err)
		}
	}

	return nil
}

// injectField resolves and sets a single field.
func (c *Container) injectField(owner reflect.Type, fieldValue reflect.Value, field fieldInfo, path []Key) error {
	if len(field.options.names) > 1 {
		return &QualifierConflictError{
			Point:      fmt.Sprintf("field %s.%s", owner.Name(), field.name),
			Qualifiers: field.options.names,
		}
	}

	key := Key{Type: field.typ}
	if len(field.options.names) == 1 {
		key.Qualifier = field.options.names[0]
	}

	resolved, err := c.resolve(key, path)
	if err != nil {
		if field.options.optional {
			return nil
		}
		return err
	}

	if resolved == nil {
		fieldValue.Set(reflect.Zero(field.typ))
		return nil
	}

	resolvedValue := reflect.ValueOf(resolved)
	if !resolvedValue.Type().AssignableTo(field.typ) {
		return fmt.Errorf("resolved type %v is not assignable to field type %v",
			resolvedValue.Type(), field.typ)
	}

	fieldValue.Set(resolvedValue)
	return nil
}
