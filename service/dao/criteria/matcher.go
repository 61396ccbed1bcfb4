package criteria

import (
	"github.com/viant/procflow/service/dao"
)

// Match returns true when every parameter naming a known field accepts its value.
// Parameters naming unknown fields are ignored.
func Match(fields map[string]string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		value, ok := fields[parameter.Name]
		if !ok {
			continue
		}
		if !accepts(value, parameter.Value) {
			return false
		}
	}
	return true
}

// FilterByState returns true when state is accepted by a State parameter
func FilterByState(state string, parameters []*dao.Parameter) bool {
	return Match(map[string]string{dao.ParameterState: state}, parameters)
}

func accepts(value string, expected interface{}) bool {
	switch actual := expected.(type) {
	case string:
		return value == actual
	case []string:
		for _, s := range actual {
			if value == s {
				return true
			}
		}
		return false
	}
	return true
}
