// Package harness runs YAML HTTP scenarios against an in-process server.
//
// A scenario is a list of requests with expected responses plus final
// assertions over the namespace state. Every run gets a fresh data
// directory, a deterministic clock and sequential record ids ("rec-1",
// "rec-2", ...), so responses are identical across runs and can be
// compared against golden files.
//
// Scenario format:
//
//	name: edge_upsert
//	description: re-posting an edge replaces its metadata
//	steps:
//	  - name: create
//	    method: POST
//	    path: /rels
//	    body: {from_id: a, relation: r, to_id: b, metadata: {w: 1}}
//	    capture: {created: created_at}
//	    expect:
//	      status: 200
//	  - name: replace
//	    method: POST
//	    path: /rels
//	    body: {from_id: a, relation: r, to_id: b, metadata: {w: 2}}
//	    expect:
//	      status: 200
//	      body: {metadata: {w: 2}, created_at: "${created}"}
//	assertions:
//	  - type: edge_count
//	    from_id: a
//	    count: 1
//
// Strings of the form ${name} in paths and bodies are replaced by values
// captured from earlier responses.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
