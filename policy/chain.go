package policy

// Chain evaluates policies in registration order
type Chain struct {
	policies []Policy
}

// Test reports whether any policy matches code against err. Evaluation stops
// at the first match; a panicking policy counts as a non-match.
func (c *Chain) Test(code string, err error) bool {
	if c == nil || err == nil || code == "" {
		return false
	}
	for _, policy := range c.policies {
		if safeTest(policy, code, err) {
			return true
		}
	}
	return false
}

// Match returns the first matching policy
func (c *Chain) Match(code string, err error) (Policy, bool) {
	if c == nil || err == nil || code == "" {
		return Policy{}, false
	}
	for _, policy := range c.policies {
		if safeTest(policy, code, err) {
			return policy, true
		}
	}
	return Policy{}, false
}

// Policies returns a copy of the registered policies
func (c *Chain) Policies() []Policy {
	return append([]Policy(nil), c.policies...)
}

func safeTest(policy Policy, code string, err error) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
		}
	}()
	return policy.Test(code, err)
}

// NewChain creates a chain evaluating policies in the given order
func NewChain(policies ...Policy) *Chain {
	return &Chain{policies: append([]Policy(nil), policies...)}
}

// DefaultChain returns exact type, hierarchy, root cause, message and coded policies
func DefaultChain() *Chain {
	return NewChain(
		Policy{Kind: ExactType},
		Policy{Kind: Hierarchy},
		Policy{Kind: RootCause},
		Policy{Kind: MessageRegex},
		Policy{Kind: Coded, Schemes: []string{HTTPScheme}},
	)
}
