// Package graph implements the core graph execution engine: the vertex/edge
// data model and validator, the data-driven ready-set scheduler, and the
// supporting retry, metrics and cost-accounting infrastructure shared by
// every run. Per-vertex reasoning is implemented by the sibling operator
// package; model and search access are implemented by graph/model and
// graph/search.
package graph
