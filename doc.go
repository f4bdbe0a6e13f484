// Package autoroute is the runtime imported by code that the autoroute
// generator writes next to annotated handlers.
//
// A handler declares its route in a doc-comment directive:
//
//	//autoroute:route GET, path="/items/{id}", responses=[(200, body=Item), (NOT_FOUND, body=string, serializer=NONE)]
//	func GetItem(ctx context.Context, p autoroute.Path[ItemParams]) GetItemResponses
//
// Running `autoroute generate` produces the GetItemResponses contract, its
// constructors, an http.HandlerFunc adapter built on the extractors of this
// package, and a GetItemRoute function ready to be added to a Router.
package autoroute
