// Package procflow provides a process execution runtime.
//
// The runtime creates and starts process instances from definitions, routes
// signals to listeners (including definition start triggers), schedules timer
// driven starts, classifies behavior failures against declared exception
// handlers, and brackets every state change in an exclusive operation whose
// unit of work commits side effects only when the operation succeeds.
//
// End-users typically interact with the runtime via the Service facade:
//
//	srv, _ := procflow.New(procflow.WithBehavior(behavior))
//	_ = srv.Start(ctx)
//	_, _ = srv.LoadDefinitions(ctx, "file:///etc/procflow/definitions")
//	inst, _ := srv.Runtime().StartProcess(ctx, "order", map[string]interface{}{"id": 1})
package procflow
