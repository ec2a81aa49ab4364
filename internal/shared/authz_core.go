package shared

// Resource names a business record table guarded by the gateway.
type Resource string

// Action names an operation on a resource.
type Action string

// Guarded resources.
const (
	ResourceEmployees Resource = "employees"
	ResourceProjects  Resource = "projects"
	ResourceOrders    Resource = "orders"
)

// Resource actions.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// FieldKind describes how a field value is coerced before storage.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
)

// Field is one declared column of a resource.
type Field struct {
	Name string
	Kind FieldKind
}

// ResourceSchema lists the declared fields of a resource. All declared fields are required on create.
type ResourceSchema struct {
	Name   Resource
	Fields []Field
}

var catalog = []ResourceSchema{
	{Name: ResourceEmployees, Fields: []Field{
		{Name: "name", Kind: FieldText},
		{Name: "position", Kind: FieldText},
		{Name: "salary", Kind: FieldNumber},
		{Name: "department", Kind: FieldText},
	}},
	{Name: ResourceProjects, Fields: []Field{
		{Name: "name", Kind: FieldText},
		{Name: "assigned_to", Kind: FieldText},
		{Name: "status", Kind: FieldText},
		{Name: "budget", Kind: FieldNumber},
	}},
	{Name: ResourceOrders, Fields: []Field{
		{Name: "customer_name", Kind: FieldText},
		{Name: "amount", Kind: FieldNumber},
		{Name: "status", Kind: FieldText},
		{Name: "order_date", Kind: FieldText},
	}},
}

// Resources returns the closed set of guarded resources in declaration order.
func Resources() []ResourceSchema {
	out := make([]ResourceSchema, len(catalog))
	copy(out, catalog)
	return out
}

// LookupResource returns the schema for name.
func LookupResource(name string) (ResourceSchema, bool) {
	for _, schema := range catalog {
		if string(schema.Name) == name {
			return schema, true
		}
	}
	return ResourceSchema{}, false
}

// Field returns the declared field by name.
func (s ResourceSchema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Actions lists every resource action.
func Actions() []Action {
	return []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, bool) {
	for _, a := range Actions() {
		if string(a) == raw {
			return a, true
		}
	}
	return "", false
}
