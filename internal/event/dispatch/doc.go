// Package dispatch invokes a single event handler and reports what happened.
//
// Execute runs the handler on the caller's goroutine. A returned error and a
// recovered panic both come back as a Result, so one failing mod listener
// never stops delivery to the next:
//
//	result := dispatch.NewExecutor().Execute(e, handler)
//	switch result.Outcome {
//	case dispatch.Failed:
//	    log(result.Err)
//	case dispatch.Panicked:
//	    log(result.Panic, result.Stack)
//	}
package dispatch
