// Package graph holds the property-graph data model used by the scene: raw
// records as produced by a source, and the ingested Graph in which every edge
// references existing nodes.
//
// Ingestion is lenient. Malformed, duplicate, dangling and over-limit records
// are counted in IngestStats and skipped; the node set is always built from
// whatever is extractable.
package graph
