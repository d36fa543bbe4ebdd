// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package concurrency provides the task executor and lock-free ring buffer
// that back Nexus's NUMA-tagged buffer pools and async callback dispatch.
package concurrency
