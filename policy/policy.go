package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Kind identifies a policy variant
type Kind int

const (
	// ExactType matches the type name of the failure itself
	ExactType Kind = iota + 1
	// Hierarchy matches the type name or any declared super type of the failure and its causes
	Hierarchy
	// RootCause matches the type name of the failure or any wrapped cause
	RootCause
	// MessageRegex matches when the code, compiled as a regular expression, finds a match in the failure message
	MessageRegex
	// Coded matches numeric error codes, optionally prefixed with a scheme such as "HTTP:"
	Coded
)

// HTTPScheme is the scheme recognised by Coded policies by default
const HTTPScheme = "HTTP"

func (k Kind) String() string {
	switch k {
	case ExactType:
		return "exactType"
	case Hierarchy:
		return "hierarchy"
	case RootCause:
		return "rootCause"
	case MessageRegex:
		return "messageRegex"
	case Coded:
		return "coded"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Policy is a stateless predicate over a declared error code and a failure
type Policy struct {
	Kind Kind
	// IgnoreCase makes MessageRegex patterns case-insensitive
	IgnoreCase bool
	// Schemes lists code prefixes accepted by Coded policies
	Schemes []string
}

// Test reports whether code matches err
func (p Policy) Test(code string, err error) bool {
	if err == nil || code == "" {
		return false
	}
	switch p.Kind {
	case ExactType:
		return TypeName(err) == code
	case RootCause:
		return walk(err, func(cause error) bool {
			return TypeName(cause) == code
		})
	case Hierarchy:
		return walk(err, func(cause error) bool {
			if TypeName(cause) == code {
				return true
			}
			if h, ok := cause.(hierarchical); ok {
				for _, name := range h.SuperTypeNames() {
					if name == code {
						return true
					}
				}
			}
			return false
		})
	case MessageRegex:
		expr := compile(code, p.IgnoreCase)
		return expr != nil && expr.MatchString(err.Error())
	case Coded:
		return p.testCode(code, err)
	}
	return false
}

func (p Policy) testCode(code string, err error) bool {
	actual, ok := ErrorCode(err)
	if !ok {
		return false
	}
	actualValue, convErr := strconv.Atoi(actual)
	if convErr != nil {
		return false
	}
	declared := code
	for _, scheme := range p.Schemes {
		prefix := scheme + ":"
		if len(declared) > len(prefix) && strings.EqualFold(declared[:len(prefix)], prefix) {
			declared = declared[len(prefix):]
			break
		}
	}
	declaredValue, convErr := strconv.Atoi(strings.TrimSpace(declared))
	if convErr != nil {
		return false
	}
	return declaredValue == actualValue
}

// maxPatterns bounds the expression cache; a full cache is reset
const maxPatterns = 256

var patterns = struct {
	mux   sync.Mutex
	exprs map[string]*regexp.Regexp
}{exprs: map[string]*regexp.Regexp{}}

// compile returns a cached expression for pattern, or nil when it is invalid
func compile(pattern string, ignoreCase bool) *regexp.Regexp {
	key := pattern
	if ignoreCase {
		key = "(?i)" + pattern
	}
	patterns.mux.Lock()
	defer patterns.mux.Unlock()
	if expr, ok := patterns.exprs[key]; ok {
		return expr
	}
	expr, err := regexp.Compile(key)
	if err != nil {
		expr = nil
	}
	if len(patterns.exprs) >= maxPatterns {
		patterns.exprs = map[string]*regexp.Regexp{}
	}
	patterns.exprs[key] = expr
	return expr
}
