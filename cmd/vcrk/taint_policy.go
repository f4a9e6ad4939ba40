package main

import "vcrkernel/cpg"

// isTaintSource and isTaintSink are the CLI's default taint policy:
// every function parameter is a source candidate, every call site is a
// sink candidate. A real policy (which sinks matter, which parameters
// carry external input) belongs to the caller, not the kernel; this is
// just the default the bare `vcrk taint` command runs with.
func isTaintSource(n cpg.Node) bool { return n.Kind == cpg.KindParameter }

func isTaintSink(n cpg.Node) bool { return n.Kind == cpg.KindCall }
