// Package resync keeps a local view of a remote REST collection in sync.
//
// A Controller drives one resource (employees, holdings, ...) described by a
// resource.Definition. It loads and refreshes the collection, submits drafts
// and probes the service's health, applying every outcome to a state.Store
// that a presentation layer reads or subscribes to.
//
//	tr, _ := transport.New(baseURL)
//	client := resource.NewClient(tr, resource.Holdings())
//	ctrl, _ := resync.NewController(client, resource.Holdings())
//	_ = ctrl.Start(ctx)
//	ctrl.UpdateDraft(map[string]any{"ticker": "ACME", "amount": 10, "price": 2.5})
//	record, err := ctrl.Submit(ctx)
//
// Derived fields and validation rules are expressions evaluated by
// expr-lang/expr by default; NewCELEvaluator and NewJSEvaluator (js_eval
// build tag) select other engines.
//
// Overlapping refreshes are last-write-wins unless WithStaleResponseGuard is
// set, and concurrent submits are allowed unless WithSubmitGuard is set.
package resync
