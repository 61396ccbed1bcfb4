// Package policy classifies runtime failures against error codes declared by
// process definitions. A Chain evaluates a fixed, ordered set of policies and
// matches when any of them does; malformed inputs never fail evaluation.
package policy
