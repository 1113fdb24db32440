// Package kowari provides a lightweight, embeddable vector database for Go.
//
// kowari stores fixed-dimension float32 vectors with optional JSON
// metadata and answers approximate or exact nearest-neighbour queries by
// cosine similarity. It is designed to run in-process: there is no server,
// no network protocol, and no external runtime dependency beyond the
// pure-Go SQLite driver used for the metadata side-store.
//
// # Quick start
//
//	mgr, err := collection.NewManager(kowari.DefaultConfig("./data"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	col, err := mgr.Create(context.Background(), "docs", 384)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	v := kowari.NewVector(nil, []float32{ /* 384 floats */ }, nil)
//	if err := col.Add(context.Background(), v); err != nil {
//		log.Fatal(err)
//	}
//
// # Indexes
//
// Three interchangeable nearest-neighbour indexes live in pkg/index:
// Flat (exact brute force), LSH (random-hyperplane hashing) and HNSW
// (layered navigable small-world graph). All three satisfy the same
// index.Index contract and can be swapped without touching the
// collection or query layers.
//
// # On-disk layout
//
// Each collection is a directory containing vectors.kwi (the KWI binary
// container, pkg/kwi) and metadata.sqlite3 (the relational side-store,
// pkg/metastore). See pkg/kwi for the exact byte layout.
package kowari
