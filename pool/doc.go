// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// NUMA-tagged buffer pooling for Nexus: a fixed-size-class slab pool
// (slab_pool.go) backed by a lock-free ring, for callers that know their
// message size up front and want per-class, per-NUMA-node allocation
// stats. sendbuf.NUMAPool is the one caller in this tree; it builds
// SendBuffers from a slabPool instance per size class.
package pool
