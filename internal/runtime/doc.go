// Package runtime wires the schema registry, event log, persistence
// bridge and audit hook into a single-node ledger instance. Open builds
// the configured durable backend, hydrates the log from it, and returns
// a Runtime ready to accept appends.
//
// Example:
//
//	cfg := config.Default()
//	rt, err := runtime.Open(context.Background(), runtime.Options{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//	res, err := rt.Store().Append("sale.recorded.v2", payload,
//	    eventlog.AppendOptions{Key: "till-7:op-123", Params: payload})
package runtime
