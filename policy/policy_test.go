package policy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type panicError struct{}

func (panicError) Error() string { panic("broken error") }

func TestChain_Test(t *testing.T) {
	illegalState := NewFailure("java.lang.IllegalStateException", "Unknown error, status code 400",
		"java.lang.RuntimeException", "java.lang.Exception", "java.lang.Throwable")
	coded := NewFailure("org.kie.kogito.process.workitem.WorkItemExecutionException", "Unknown error").WithCode("500")

	var testCases = []struct {
		description string
		code        string
		err         error
		expect      bool
	}{
		{description: "super type", code: "java.lang.RuntimeException", err: illegalState, expect: true},
		{description: "message literal", code: "Unknown error", err: illegalState, expect: true},
		{description: "inline case flag", code: "(?i)Status code 400", err: illegalState, expect: true},
		{description: "greedy prefix", code: "(.*)code 4[0-9]{2}", err: illegalState, expect: true},
		{description: "partial match", code: "code 4[0-9]{2}", err: illegalState, expect: true},
		{description: "invalid regex", code: "[", err: illegalState, expect: false},
		{description: "http scheme", code: "HTTP:500", err: coded, expect: true},
		{description: "bare code", code: "500", err: coded, expect: true},
		{description: "http scheme non numeric", code: "HTTP:xyz", err: coded, expect: false},
		{description: "non numeric", code: "xyz", err: coded, expect: false},
		{description: "nil error", code: "500", err: nil, expect: false},
		{description: "empty code", code: "", err: illegalState, expect: false},
		{description: "panicking error", code: "anything", err: panicError{}, expect: false},
	}

	chain := DefaultChain()
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, chain.Test(testCase.code, testCase.err))
		})
	}
}

func TestPolicy_Test(t *testing.T) {
	rootCause := NewFailure("java.lang.RuntimeException", "boom")
	nested := fmt.Errorf("outer: %w", fmt.Errorf("middle: %w", rootCause))
	joined := errors.Join(errors.New("first"), NewFailure("io.Timeout", "second"))
	badCode := NewFailure("Remote", "failed").WithCode("5xx")

	var testCases = []struct {
		description string
		policy      Policy
		code        string
		err         error
		expect      bool
	}{
		{description: "exact type on declared name", policy: Policy{Kind: ExactType}, code: "java.lang.RuntimeException", err: rootCause, expect: true},
		{description: "exact type ignores causes", policy: Policy{Kind: ExactType}, code: "java.lang.RuntimeException", err: nested, expect: false},
		{description: "exact type on go type", policy: Policy{Kind: ExactType}, code: "*errors.errorString", err: errors.New("x"), expect: true},
		{description: "root cause two levels deep", policy: Policy{Kind: RootCause}, code: "java.lang.RuntimeException", err: nested, expect: true},
		{description: "root cause through join", policy: Policy{Kind: RootCause}, code: "io.Timeout", err: joined, expect: true},
		{description: "root cause miss", policy: Policy{Kind: RootCause}, code: "java.io.IOException", err: nested, expect: false},
		{description: "hierarchy on cause super type", policy: Policy{Kind: Hierarchy}, code: "java.lang.Exception",
			err: fmt.Errorf("wrapped: %w", NewFailure("java.lang.IllegalStateException", "x", "java.lang.RuntimeException", "java.lang.Exception")), expect: true},
		{description: "hierarchy miss", policy: Policy{Kind: Hierarchy}, code: "java.lang.Error", err: rootCause, expect: false},
		{description: "case sensitive regex", policy: Policy{Kind: MessageRegex}, code: "BOOM", err: rootCause, expect: false},
		{description: "case insensitive regex", policy: Policy{Kind: MessageRegex, IgnoreCase: true}, code: "BOOM", err: rootCause, expect: true},
		{description: "regex on wrapped message", policy: Policy{Kind: MessageRegex}, code: "middle: boom$", err: nested, expect: true},
		{description: "coded without schemes", policy: Policy{Kind: Coded}, code: "HTTP:500", err: NewFailure("Remote", "x").WithCode("500"), expect: false},
		{description: "coded lower case scheme", policy: Policy{Kind: Coded, Schemes: []string{HTTPScheme}}, code: "http:500", err: NewFailure("Remote", "x").WithCode("500"), expect: true},
		{description: "coded malformed failure code", policy: Policy{Kind: Coded, Schemes: []string{HTTPScheme}}, code: "5xx", err: badCode, expect: false},
		{description: "coded on wrapped failure", policy: Policy{Kind: Coded}, code: "404", err: fmt.Errorf("call: %w", NewFailure("Remote", "x").WithCode("404")), expect: true},
		{description: "unknown kind", policy: Policy{}, code: "x", err: rootCause, expect: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.policy.Test(testCase.code, testCase.err))
		})
	}
}

func TestChain_Match(t *testing.T) {
	chain := DefaultChain()
	err := NewFailure("java.lang.IllegalStateException", "status code 400", "java.lang.RuntimeException")

	policy, ok := chain.Match("java.lang.IllegalStateException", err)
	assert.True(t, ok)
	assert.Equal(t, ExactType, policy.Kind)

	policy, ok = chain.Match("java.lang.RuntimeException", err)
	assert.True(t, ok)
	assert.Equal(t, Hierarchy, policy.Kind)

	policy, ok = chain.Match("code 400", err)
	assert.True(t, ok)
	assert.Equal(t, MessageRegex, policy.Kind)

	_, ok = chain.Match("[", err)
	assert.False(t, ok)
	assert.Len(t, chain.Policies(), 5)
}

func TestFailure_Error(t *testing.T) {
	var testCases = []struct {
		description string
		failure     *Failure
		expect      string
	}{
		{description: "message", failure: NewFailure("T", "boom"), expect: "boom"},
		{description: "type fallback", failure: NewFailure("T", ""), expect: "T"},
		{description: "with cause", failure: NewFailure("T", "outer").WithCause(errors.New("inner")), expect: "outer: inner"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.failure.Error())
		})
	}
}

func TestErrorCode(t *testing.T) {
	var testCases = []struct {
		description string
		err         error
		expect      string
		expectOk    bool
	}{
		{description: "no code", err: errors.New("plain")},
		{description: "direct code", err: NewFailure("T", "boom").WithCode("404"), expect: "404", expectOk: true},
		{description: "code on cause", err: NewFailure("Outer", "outer").WithCause(NewFailure("Inner", "inner").WithCode("503")), expect: "503", expectOk: true},
		{description: "outer code wins", err: NewFailure("Outer", "outer").WithCode("400").WithCause(NewFailure("Inner", "inner").WithCode("503")), expect: "400", expectOk: true},
		{description: "code inside joined errors", err: fmt.Errorf("wrapped: %w", errors.Join(errors.New("x"), NewFailure("T", "y").WithCode(" 409 "))), expect: "409", expectOk: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			code, ok := ErrorCode(testCase.err)
			assert.Equal(t, testCase.expectOk, ok)
			assert.Equal(t, testCase.expect, code)
		})
	}
}

func TestCompile_Bounded(t *testing.T) {
	for i := 0; i < 4*maxPatterns; i++ {
		compile(fmt.Sprintf("code-%d[", i), false)
		compile(fmt.Sprintf("code-%d", i), i%2 == 0)
	}
	patterns.mux.Lock()
	size := len(patterns.exprs)
	patterns.mux.Unlock()
	assert.LessOrEqual(t, size, maxPatterns)

	expr := compile("timeout.*", true)
	if assert.NotNil(t, expr) {
		assert.True(t, expr.MatchString("TIMEOUT exceeded"))
	}
	assert.Nil(t, compile("[", false))
}
