package dao

// Parameter is a named list filter
type Parameter struct {
	Name  string
	Value interface{}
}

// Parameter names understood by the stores
const (
	ParameterState        = "State"
	ParameterDefinitionID = "DefinitionID"
)

// NewParameter creates a filter matching any of values
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
